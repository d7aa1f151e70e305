package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"survey-service/internal/config"
	"survey-service/internal/events"
	"survey-service/internal/handlers"
	"survey-service/internal/metrics"
	"survey-service/internal/middleware"
	"survey-service/internal/models"
	"survey-service/internal/providers"
	"survey-service/internal/repository"
	"survey-service/internal/scheduler"
	"survey-service/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	if err := autoMigrate(db, logger); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	m := metrics.New()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	whitelistRepo := repository.NewWhitelistRepository(db)
	activationRepo := repository.NewActivationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	surveyRepo := repository.NewSurveyRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	// Providers
	var emailProvider providers.EmailProvider
	if cfg.Email.APIKey != "" {
		emailProvider = providers.NewResendProvider(cfg.Email.APIKey, cfg.Email.FromEmail, cfg.Email.FromName, cfg.Email.BaseURL, logger)
	} else {
		emailProvider = providers.NewNoopProvider(logger)
	}
	idVerifier := providers.NewIDVerifier(cfg.IDCheck, logger)
	storage, err := providers.NewS3Storage(cfg.Storage, cfg.GetPresignTTL(), logger)
	if err != nil {
		logger.Fatalf("Failed to initialize object storage: %v", err)
	}

	publisher := events.NewPublisher(cfg.NATS.URL, logger)
	defer publisher.Close()

	// Services
	jwtService := services.NewJWTService(cfg.JWT)
	authService := services.NewAuthService(userRepo, jwtService, logger)
	activationService := services.NewActivationService(
		cfg, db, activationRepo, whitelistRepo, userRepo, auditRepo,
		emailProvider, idVerifier, publisher, m, jwtService, logger)
	whitelistService := services.NewWhitelistService(whitelistRepo, userRepo, idVerifier, logger)
	notificationService := services.NewNotificationService(notificationRepo, logger)
	surveyService := services.NewSurveyService(surveyRepo, logger)
	assignmentService := services.NewAssignmentService(assignmentRepo, surveyRepo, userRepo, notificationService, logger)
	responseService := services.NewResponseService(db, responseRepo, surveyRepo, assignmentRepo, documentRepo, m, logger)
	documentService := services.NewDocumentService(cfg, documentRepo, storage, m, logger)
	userService := services.NewUserService(userRepo, auditRepo, logger)

	// Rate limiter over Redis; a nil client fails open.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	rateLimiter := middleware.NewRateLimiter(redisClient, auditRepo, m, logger, cfg.Activation.RateLimitPerMinute)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(authService)
	activationHandler := handlers.NewActivationHandler(activationService)
	whitelistHandler := handlers.NewWhitelistHandler(whitelistService)
	surveyHandler := handlers.NewSurveyHandler(surveyService, assignmentService)
	mobileHandler := handlers.NewMobileHandler(assignmentService, responseService, documentService)
	adminHandler := handlers.NewAdminHandler(userService, assignmentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Maintenance scheduler
	sched := scheduler.New(activationRepo, documentRepo, auditRepo, publisher, logger)
	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	router := setupRouter(cfg, logger, m, jwtService, rateLimiter,
		healthHandler, authHandler, activationHandler, whitelistHandler,
		surveyHandler, mobileHandler, adminHandler, notificationHandler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting survey-service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server exited")
}

func setupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	m *metrics.Metrics,
	jwtService *services.JWTService,
	rateLimiter *middleware.RateLimiter,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	activationHandler *handlers.ActivationHandler,
	whitelistHandler *handlers.WhitelistHandler,
	surveyHandler *handlers.SurveyHandler,
	mobileHandler *handlers.MobileHandler,
	adminHandler *handlers.AdminHandler,
	notificationHandler *handlers.NotificationHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(logger, m))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", "X-API-Version", "X-Device-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health and metrics (no auth)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIVersionGate(cfg.Server.MinAPIVersion))

	// Public activation endpoints, rate limited per IP
	activation := v1.Group("/activation")
	{
		activation.POST("/validate", rateLimiter.Limit("validate"), activationHandler.Validate)
		activation.POST("/complete", rateLimiter.Limit("complete"), activationHandler.Complete)
	}

	// Authentication
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.Auth(jwtService), authHandler.Logout)
		auth.GET("/me", middleware.Auth(jwtService), authHandler.Me)
	}

	authed := v1.Group("")
	authed.Use(middleware.Auth(jwtService))

	// Notifications, any role
	notifications := authed.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
	}

	// Mobile surface, brigadistas and their supervisors
	mobile := authed.Group("/mobile")
	mobile.Use(middleware.RequireRole(models.RoleBrigadista, models.RoleEncargado, models.RoleAdmin))
	{
		mobile.GET("/surveys", mobileHandler.MySurveys)
		mobile.POST("/responses/batch", mobileHandler.SubmitBatch)
		mobile.GET("/responses", mobileHandler.MyResponses)
		mobile.GET("/responses/:clientId/documents", mobileHandler.ResponseDocuments)
		mobile.POST("/documents/upload", mobileHandler.RequestUpload)
		mobile.POST("/documents/confirm", mobileHandler.ConfirmUpload)
		mobile.GET("/sync-status", mobileHandler.SyncStatus)
	}

	// Survey management, supervisors and admins
	surveys := authed.Group("/surveys")
	surveys.Use(middleware.RequireRole(models.RoleEncargado, models.RoleAdmin))
	{
		surveys.POST("", surveyHandler.Create)
		surveys.GET("", surveyHandler.List)
		surveys.GET("/:id", surveyHandler.Get)
		surveys.DELETE("/:id", surveyHandler.Delete)
		surveys.POST("/:id/versions", surveyHandler.CreateVersion)
		surveys.GET("/:id/versions/:versionId", surveyHandler.GetVersion)
		surveys.POST("/:id/versions/:versionId/publish", surveyHandler.Publish)
		surveys.GET("/:id/assignments", surveyHandler.ListAssignments)
	}

	assignments := authed.Group("/assignments")
	assignments.Use(middleware.RequireRole(models.RoleEncargado, models.RoleAdmin))
	{
		assignments.POST("", adminHandler.CreateAssignment)
		assignments.PATCH("/:id/status", adminHandler.UpdateAssignmentStatus)
		assignments.DELETE("/:id", adminHandler.DeleteAssignment)
	}

	// Admin-only surface
	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/whitelist", whitelistHandler.Create)
		admin.GET("/whitelist", whitelistHandler.List)
		admin.GET("/whitelist/:id", whitelistHandler.Get)
		admin.PATCH("/whitelist/:id", whitelistHandler.UpdateNotes)

		admin.POST("/activation-codes", activationHandler.Generate)
		admin.GET("/activation-codes", activationHandler.List)
		admin.GET("/activation-codes/stats", activationHandler.Stats)
		admin.GET("/activation-codes/audit", activationHandler.AuditLog)
		admin.GET("/activation-codes/:id", activationHandler.Get)
		admin.POST("/activation-codes/:id/revoke", activationHandler.Revoke)
		admin.POST("/activation-codes/:id/extend", activationHandler.Extend)
		admin.POST("/activation-codes/:id/resend", activationHandler.Resend)

		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/users/:id", adminHandler.GetUser)
		admin.PATCH("/users/:id", adminHandler.UpdateUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)

		admin.GET("/audit-log", adminHandler.AdminAuditLog)
	}

	return router
}

func autoMigrate(db *gorm.DB, logger *logrus.Logger) error {
	logger.Info("Starting database migration...")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		logger.Warnf("Failed to create uuid-ossp extension: %v", err)
	}

	modelsToMigrate := []interface{}{
		&models.User{},
		&models.WhitelistEntry{},
		&models.ActivationCode{},
		&models.ActivationAuditLog{},
		&models.AdminAuditLog{},
		&models.Survey{},
		&models.SurveyVersion{},
		&models.Question{},
		&models.AnswerOption{},
		&models.Assignment{},
		&models.SurveyResponse{},
		&models.QuestionAnswer{},
		&models.Notification{},
		&models.Document{},
	}
	for _, model := range modelsToMigrate {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	logger.Info("Database migration completed")
	return nil
}

func initDatabase(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database")
	return db, nil
}
