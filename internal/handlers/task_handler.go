package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskeval/internal/apperrors"
	"taskeval/internal/models"
	"taskeval/internal/pdf"
	"taskeval/internal/services"
)

type TaskHandler struct {
	service   services.TaskService
	reportGen pdf.Generator
}

func NewTaskHandler(service services.TaskService, reportGen pdf.Generator) *TaskHandler {
	return &TaskHandler{service: service, reportGen: reportGen}
}

// @Summary      Submit a task
// @Description  Creates a draft task owned by the authenticated user
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        task  body      models.CreateTaskRequest  true  "Task payload"
// @Success      201   {object}  models.TaskView
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("[task][create] user=%d title=%q file=%q", userID, req.Title, req.FileURL)

	task, err := h.service.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, "[task][create]", err)
		return
	}
	log.Printf("[task][create][ok] id=%s user=%d", task.ID, userID)
	c.JSON(http.StatusCreated, gin.H{"task": models.PresentTask(task)})
}

// GET /tasks
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	tasks, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "[task][list]", err)
		return
	}
	log.Printf("[task][list][ok] user=%d count=%d", userID, len(tasks))
	c.JSON(http.StatusOK, gin.H{"tasks": models.PresentTasks(tasks)})
}

// GET /tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	task, err := h.service.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "[task][getByID]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": models.PresentTask(task)})
}

// DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, "[task][delete]", err)
		return
	}
	log.Printf("[task][delete][ok] id=%s user=%d", id, userID)
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

// @Summary      Evaluate a task
// @Description  Runs the AI evaluation once for a draft task
// @Tags         Tasks
// @Produce      json
// @Param        id  path      string  true  "Task id"
// @Success      200  {object}  models.TaskView
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /tasks/{id}/evaluate [post]
func (h *TaskHandler) Evaluate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id := c.Param("id")
	log.Printf("[task][evaluate] id=%s user=%d", id, userID)

	task, err := h.service.Evaluate(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, "[task][evaluate]", err)
		return
	}
	log.Printf("[task][evaluate][ok] id=%s score=%d", id, *task.AIScore)
	c.JSON(http.StatusOK, gin.H{"task": models.PresentTask(task)})
}

// GET /tasks/:id/report — full evaluation as PDF, paid tasks only.
func (h *TaskHandler) Report(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id := c.Param("id")
	task, err := h.service.GetByID(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, "[task][report]", err)
		return
	}
	if !task.Evaluated() {
		respondError(c, "[task][report]", apperrors.Conflict("task not evaluated yet"))
		return
	}
	if !task.IsPaid {
		respondError(c, "[task][report]", apperrors.Conflict("report not unlocked"))
		return
	}

	data := pdf.ReportData{
		TaskID:       task.ID,
		Title:        task.Title,
		Score:        *task.AIScore,
		Strengths:    task.Strengths,
		Improvements: task.Improvements,
		CreatedAt:    task.CreatedAt,
	}
	b, err := h.reportGen.GenerateEvaluationReport(data)
	if err != nil {
		respondError(c, "[task][report]", err)
		return
	}
	log.Printf("[task][report][ok] id=%s bytes=%d", id, len(b))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.pdf"`, task.ID))
	c.Data(http.StatusOK, "application/pdf", b)
}
