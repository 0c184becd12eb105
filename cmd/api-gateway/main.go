package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/campus-events-api/api/swagger"
	"github.com/noah-isme/campus-events-api/internal/credential"
	"github.com/noah-isme/campus-events-api/internal/handler"
	"github.com/noah-isme/campus-events-api/internal/middleware"
	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/repository"
	"github.com/noah-isme/campus-events-api/internal/service"
	"github.com/noah-isme/campus-events-api/pkg/cache"
	"github.com/noah-isme/campus-events-api/pkg/config"
	"github.com/noah-isme/campus-events-api/pkg/database"
	"github.com/noah-isme/campus-events-api/pkg/jobs"
	"github.com/noah-isme/campus-events-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-events-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-events-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-events-api/pkg/storage"
)

// @title Campus Events API
// @version 1.0.0
// @description Event registration, attendance credentials and check-in for campus events
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, document caching disabled", "error", err)
		redisClient = nil
	}

	signer, err := credential.NewSigner(cfg.Credential.Secret)
	if err != nil {
		logr.Sugar().Fatalw("failed to init credential signer", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	exportStore, err := storage.NewLocalStorage("./exports")
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	exportQueue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
		artifact, ok := job.Payload.(service.ExportArtifact)
		if !ok {
			return fmt.Errorf("unexpected payload for job %s", job.ID)
		}
		_, err := exportStore.Save(artifact.Filename, artifact.Data)
		return err
	}, jobs.QueueConfig{Workers: 1, Logger: logr})
	exportQueue.Start(context.Background())
	defer exportQueue.Stop()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Credential.DocumentCacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-events-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	eventSvc := service.NewEventService(eventRepo, registrationRepo, validate, logr)
	eventSvc.PurgeRenderedDocuments(cacheSvc)
	registrationSvc := service.NewRegistrationService(registrationRepo, eventRepo, userRepo, metricsSvc, validate, logr)
	registrationSvc.ArchiveExports(exportQueue)
	credentialSvc := service.NewCredentialService(registrationRepo, eventRepo, signer, cacheRepo, metricsSvc, service.CredentialOptions{
		QRSize:           cfg.Credential.QRSize,
		DocumentCacheTTL: cfg.Credential.DocumentCacheTTL,
		OrganizerName:    cfg.Organizer.Name,
		OrganizerEmail:   cfg.Organizer.Email,
		OrganizerPhone:   cfg.Organizer.Phone,
	}, logr)
	checkInSvc := service.NewCheckInService(registrationRepo, signer, metricsSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	credentialHandler := handler.NewCredentialHandler(credentialSvc)
	checkInHandler := handler.NewCheckInHandler(checkInSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	jwtAuth := middleware.JWT(authSvc)
	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", jwtAuth, authHandler.Logout)
		auth.POST("/change-password", jwtAuth, authHandler.ChangePassword)
		auth.GET("/me", jwtAuth, authHandler.Me)
	}

	users := api.Group("/users", jwtAuth)
	{
		users.GET("", staffOnly, userHandler.List)
		users.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionUserCreate, "users"), userHandler.Create)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleStaff), "SELF"), userHandler.Get)
		users.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionUserUpdate, "users"), userHandler.Update)
		users.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionUserDelete, "users"), userHandler.Delete)
	}

	events := api.Group("/events", jwtAuth)
	{
		events.GET("", eventHandler.List)
		events.GET("/:id", eventHandler.Get)
		events.POST("", staffOnly, middleware.Audit(userRepo, models.AuditActionEventCreate, "events"), eventHandler.Create)
		events.PUT("/:id", staffOnly, middleware.Audit(userRepo, models.AuditActionEventUpdate, "events"), eventHandler.Update)
		events.PATCH("/:id/status", staffOnly, middleware.Audit(userRepo, models.AuditActionEventUpdate, "events"), eventHandler.UpdateStatus)
		events.POST("/:id/registrations", middleware.Audit(userRepo, models.AuditActionRegister, "registrations"), registrationHandler.Register)
		events.GET("/:id/attendance/export", staffOnly, registrationHandler.ExportAttendance)
	}

	registrations := api.Group("/registrations", jwtAuth)
	{
		registrations.GET("", registrationHandler.List)
		registrations.GET("/:id", registrationHandler.Get)
		registrations.POST("/:id/decision", staffOnly, middleware.Audit(userRepo, models.AuditActionDecide, "registrations"), registrationHandler.Decide)
		registrations.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionCancel, "registrations"), registrationHandler.Cancel)
		registrations.GET("/:id/credential", credentialHandler.Issue)
		registrations.GET("/:id/credential/document", credentialHandler.Document)
	}

	api.POST("/check-in", jwtAuth, staffOnly, middleware.Audit(userRepo, models.AuditActionCheckIn, "registrations"), checkInHandler.CheckIn)
	api.GET("/metrics/snapshot", jwtAuth, adminOnly, metricsHandler.Snapshot)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
