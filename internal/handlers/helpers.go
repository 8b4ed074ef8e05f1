package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskeval/internal/apperrors"
)

// tolerant to how the middleware stored the id (int / int64 / float64 / string)
func currentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// respondError logs the full error server-side and sends the caller-safe
// message with the status the error kind maps to.
func respondError(c *gin.Context, tag string, err error) {
	log.Printf("%s[err] %v", tag, err)
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.Message(err)})
}

func requireUser(c *gin.Context) (int64, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return userID, true
}
