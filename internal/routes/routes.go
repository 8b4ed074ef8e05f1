package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskeval/internal/handlers"
	"taskeval/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	taskHandler *handlers.TaskHandler,
	paymentHandler *handlers.PaymentHandler,
	fileHandler *handlers.FileHandler,
	jwtSecret []byte,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.RefreshToken)
	r.POST("/register", authHandler.Register)
	r.POST("/register/confirm", authHandler.Confirm)
	r.POST("/register/resend", authHandler.Resend)

	// provider callbacks authenticate by signature, not by session
	r.POST("/webhooks/payments", paymentHandler.Webhook)

	// uploaded task files (uuid names, no listing)
	r.GET("/files/:user/:name", fileHandler.Serve)

	// ---- protected
	r.Use(middleware.AuthMiddleware(jwtSecret))

	tasks := r.Group("/tasks")
	{
		tasks.POST("/", taskHandler.Create)
		tasks.GET("/", taskHandler.List)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.DELETE("/:id", taskHandler.Delete)
		tasks.POST("/:id/evaluate", taskHandler.Evaluate)
		tasks.GET("/:id/report", taskHandler.Report)
	}

	payments := r.Group("/payments")
	{
		payments.POST("/checkout", paymentHandler.Checkout)
		payments.GET("/", paymentHandler.List)
	}

	r.POST("/files", fileHandler.Upload)

	return r
}
