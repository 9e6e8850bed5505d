package main

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Faaiz-uddin/CloudDrive/database"
	"github.com/Faaiz-uddin/CloudDrive/handlers"
	"github.com/Faaiz-uddin/CloudDrive/mailer"
	"github.com/Faaiz-uddin/CloudDrive/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	handlers.InitLogger(os.Getenv("APP_ENV") != "production")
	logger := handlers.GetLogger()

	// Database connection
	db, err := database.Connect()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Object storage
	store, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Region:          os.Getenv("S3_REGION"),
		Bucket:          os.Getenv("S3_BUCKET"),
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		UsePathStyle:    os.Getenv("S3_ENDPOINT") != "",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create S3 store")
	}

	// Outbound mail (OTP codes)
	smtpPort, _ := strconv.Atoi(os.Getenv("MAIL_PORT"))
	if smtpPort == 0 {
		smtpPort = 587
	}
	mail := mailer.New(mailer.Config{
		Host:     os.Getenv("MAIL_HOST"),
		Port:     smtpPort,
		User:     os.Getenv("MAIL_USERNAME"),
		Pass:     os.Getenv("MAIL_PASSWORD"),
		From:     os.Getenv("MAIL_FROM_ADDRESS"),
		FromName: os.Getenv("MAIL_FROM_NAME"),
	}, logger)

	// Create handlers
	h := handlers.NewHandler(db)
	settingsHandler := handlers.NewSettingsHandler(db)
	limiter := handlers.NewLoginLimiter(settingsHandler)
	authHandler := handlers.NewAuthHandler(db, mail, settingsHandler, limiter)
	auditHandler := handlers.NewAuditHandler(db)
	folderHandler := handlers.NewFolderHandler(db, store, auditHandler)
	documentHandler := handlers.NewDocumentHandler(db, store, auditHandler)
	adminHandler := handlers.NewAdminHandler(db, store, auditHandler)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(handlers.RequestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions},
		AllowHeaders: []string{"*", "Authorization", "Content-Type"},
	}))

	// Routes
	e.GET("/health", h.HealthCheck)
	e.GET("/api/health", h.HealthCheck)
	e.GET("/api/version", GetVersion)

	// API group
	api := e.Group("/api")

	// Auth routes (public)
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)
	api.POST("/verify-otp", authHandler.VerifyOTP,
		middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(5.0/60.0))))
	api.POST("/forgot-password", authHandler.ForgotPassword)
	api.POST("/reset-password", authHandler.ResetPassword)

	// Auth routes (protected)
	authApi := api.Group("")
	authApi.Use(authHandler.JWTMiddleware)
	authApi.POST("/logout", authHandler.Logout)
	authApi.GET("/user", authHandler.GetUser)

	// Folder routes (protected)
	authApi.POST("/folders/setup", folderHandler.SetupDefaultStructure)
	authApi.GET("/folders", folderHandler.ListFolders)
	authApi.DELETE("/folders", folderHandler.DestroyAll)

	// Document routes (protected)
	authApi.POST("/employee/documents/upload", documentHandler.Upload)
	authApi.GET("/employee/documents/:folder", documentHandler.ListByFolder)
	authApi.GET("/employee/documents/:category/:id/download", documentHandler.Download)
	authApi.DELETE("/employee/document/:category/:id", documentHandler.Delete)

	// Admin routes (protected + admin only)
	adminApi := authApi.Group("/admin")
	adminApi.Use(authHandler.AdminMiddleware)
	adminApi.POST("/setup-hr-structure", folderHandler.SetupStructure)
	adminApi.POST("/add-hr-folder", folderHandler.AddFolder)
	adminApi.GET("/users", adminHandler.ListUsers)
	adminApi.GET("/documents", adminHandler.ListDocuments)
	adminApi.DELETE("/documents/:id", adminHandler.DeleteDocument)
	adminApi.GET("/settings", settingsHandler.ListSettings)
	adminApi.PUT("/settings/:key", settingsHandler.UpdateSetting)
	adminApi.GET("/audit-logs", auditHandler.ListAuditLogs)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info().Str("port", port).Str("version", Version).Msg("Starting CloudDrive API")
	if err := e.Start(":" + port); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
}
