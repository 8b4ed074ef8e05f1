package app

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"taskeval/internal/config"
	"taskeval/internal/evaluation"
	"taskeval/internal/handlers"
	"taskeval/internal/payments"
	"taskeval/internal/pdf"
	"taskeval/internal/repositories"
	"taskeval/internal/routes"
	"taskeval/internal/services"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "taskeval/docs"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)

	// === External clients ===
	var evaluator evaluation.Evaluator
	if cfg.Evaluation.DryRun {
		log.Printf("[app] evaluation dry-run enabled, using mock evaluator")
		evaluator = evaluation.NewMockEvaluator()
	} else {
		evaluator = evaluation.NewClient(
			cfg.Evaluation.APIKey,
			cfg.Evaluation.BaseURL,
			cfg.Evaluation.Model,
			cfg.Evaluation.MaxAttempts,
			time.Duration(cfg.Evaluation.BackoffSecs)*time.Second,
		)
	}

	checkoutClient := payments.NewClient(
		cfg.Payments.APIKey,
		cfg.Payments.WebhookSecret,
		cfg.Payments.BaseURL,
		cfg.App.BaseURL,
		cfg.Payments.Currency,
		cfg.Payments.UnlockPrice,
	)

	// === Services ===
	authService := services.NewAuthService()
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	telegramService := services.NewTelegramService(cfg.Telegram.BotToken)

	userService := services.NewUserService(userRepo, emailService, authService)
	taskService := services.NewTaskService(taskRepo, evaluator)
	paymentService := services.NewPaymentService(
		taskRepo, paymentRepo, userRepo,
		checkoutClient, emailService,
		telegramService, cfg.Telegram.AdminChatID,
	)
	fileService := services.NewFileService(cfg.Files.RootDir, cfg.App.BaseURL)

	reportGen := pdf.NewReportGenerator()

	// === Handlers ===
	jwtSecret := []byte(cfg.Auth.JWTSecret)
	authHandler := handlers.NewAuthHandler(userService, authService, jwtSecret)
	taskHandler := handlers.NewTaskHandler(taskService, reportGen)
	paymentHandler := handlers.NewPaymentHandler(paymentService, checkoutClient)
	fileHandler := handlers.NewFileHandler(fileService)

	// === Gin ===
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		authHandler,
		taskHandler,
		paymentHandler,
		fileHandler,
		jwtSecret,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("server listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
