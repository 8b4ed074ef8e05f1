package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskeval/internal/services"
)

const maxUploadBytes = 5 << 20

type FileHandler struct {
	service services.FileService
}

func NewFileHandler(service services.FileService) *FileHandler {
	return &FileHandler{service: service}
}

// POST /files — multipart upload, returns the URL to put on a task.
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	src, err := fh.Open()
	if err != nil {
		respondError(c, "[file][upload]", err)
		return
	}
	defer src.Close()

	url, err := h.service.Save(userID, fh.Filename, src)
	if err != nil {
		respondError(c, "[file][upload]", err)
		return
	}
	log.Printf("[file][upload][ok] user=%d name=%q url=%s", userID, fh.Filename, url)
	c.JSON(http.StatusCreated, gin.H{"file_url": url})
}

// GET /files/:user/:name — public, URLs are unguessable uuids.
func (h *FileHandler) Serve(c *gin.Context) {
	path, err := h.service.Resolve(c.Param("user"), c.Param("name"))
	if err != nil {
		respondError(c, "[file][serve]", err)
		return
	}
	c.File(path)
}
