package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/shams-connect/school-needs-api/api/swagger"
	"github.com/shams-connect/school-needs-api/internal/handler"
	"github.com/shams-connect/school-needs-api/internal/middleware"
	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/notify"
	"github.com/shams-connect/school-needs-api/internal/repository"
	"github.com/shams-connect/school-needs-api/internal/service"
	"github.com/shams-connect/school-needs-api/pkg/cache"
	"github.com/shams-connect/school-needs-api/pkg/config"
	"github.com/shams-connect/school-needs-api/pkg/database"
	"github.com/shams-connect/school-needs-api/pkg/jobs"
	"github.com/shams-connect/school-needs-api/pkg/logger"
	corsmiddleware "github.com/shams-connect/school-needs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/shams-connect/school-needs-api/pkg/middleware/requestid"
	"github.com/shams-connect/school-needs-api/pkg/storage"
)

// @title School Needs API
// @version 1.0.0
// @description Platform connecting Syrian schools with donors around infrastructure needs
// @BasePath /api/v1
// @schemes http https

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
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	needRepo := repository.NewNeedRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	pageRepo := repository.NewPageRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	hub := notify.NewHub(cfg.Notifications.SubscriberBuffer, logr)
	defer hub.Close()
	notificationSvc := service.NewNotificationService(notificationRepo, hub, logr)

	schoolSvc := service.NewSchoolService(schoolRepo, userRepo, notificationSvc, cacheSvc, validate, logr)
	needSvc := service.NewNeedService(needRepo, schoolRepo, userRepo, userRepo, notificationSvc, cacheSvc, validate, logr)
	pageSvc := service.NewPageService(pageRepo, userRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(needRepo, schoolRepo, userRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}

	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(exportRepo, needRepo, exportStore, signer, cfg.Exports.SignedURLTTL, logr)

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		exportQueue = jobs.NewQueue("export", exportSvc.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.AttachQueue(exportQueue)
		exportQueue.Start(ctx)
		defer exportQueue.Stop()

		if err := exportSvc.RecoverQueued(ctx); err != nil {
			logr.Sugar().Warnw("failed to re-enqueue pending exports", "error", err)
		}
		go exportCleanupLoop(ctx, exportSvc, cfg.Exports.CleanupInterval, logr)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc, dashboardSvc)
	needHandler := handler.NewNeedHandler(needSvc, dashboardSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	pageHandler := handler.NewPageHandler(pageSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	userHandler := handler.NewUserHandler(userSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	uploadHandler := handler.NewUploadHandler(uploadStore, handler.UploadConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
		PublicBaseURL:    cfg.Uploads.PublicBaseURL,
	})
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, routeDeps{
		auth:          authSvc,
		userRepo:      userRepo,
		authHandler:   authHandler,
		schools:       schoolHandler,
		needs:         needHandler,
		notifications: notificationHandler,
		pages:         pageHandler,
		dashboard:     dashboardHandler,
		users:         userHandler,
		exports:       exportHandler,
		uploads:       uploadHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

type routeDeps struct {
	auth          *service.AuthService
	userRepo      *repository.UserRepository
	authHandler   *handler.AuthHandler
	schools       *handler.SchoolHandler
	needs         *handler.NeedHandler
	notifications *handler.NotificationHandler
	pages         *handler.PageHandler
	dashboard     *handler.DashboardHandler
	users         *handler.UserHandler
	exports       *handler.ExportHandler
	uploads       *handler.UploadHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, deps routeDeps) {
	api := r.Group(cfg.APIPrefix)

	requireAuth := middleware.JWT(deps.auth)
	optionalAuth := middleware.OptionalJWT(deps.auth)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	principalOnly := middleware.RequireRoles(models.RolePrincipal)

	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.authHandler.Login)
		auth.POST("/register", deps.authHandler.Register)
		auth.POST("/refresh", deps.authHandler.Refresh)
		auth.POST("/logout", requireAuth, deps.authHandler.Logout)
		auth.POST("/change-password", requireAuth, deps.authHandler.ChangePassword)
		auth.GET("/me", requireAuth, deps.authHandler.Me)
	}

	schools := api.Group("/schools")
	{
		schools.GET("", deps.schools.List)
		schools.GET("/stats", deps.schools.Stats)
		schools.GET("/me", requireAuth, principalOnly, deps.schools.GetOwn)
		schools.GET("/:id", optionalAuth, deps.schools.Get)
		schools.GET("/:id/needs", deps.needs.ListForSchool)
		schools.GET("/:id/stats", optionalAuth, deps.schools.NeedStats)
		schools.POST("", requireAuth, principalOnly, deps.schools.Register)
		schools.PATCH("/:id", requireAuth, deps.schools.Update)
		schools.DELETE("/:id", requireAuth, adminOnly, deps.schools.Delete)
	}

	needs := api.Group("/needs")
	{
		needs.GET("", deps.needs.List)
		needs.GET("/stats", deps.needs.Stats)
		needs.GET("/:id", deps.needs.Get)
		needs.POST("", requireAuth, deps.needs.Create)
		needs.PATCH("/:id", requireAuth, deps.needs.Update)
		needs.PUT("/:id/status", requireAuth, deps.needs.SetStatus)
		needs.DELETE("/:id", requireAuth, deps.needs.Delete)
	}

	if cfg.Notifications.Enabled {
		notifications := api.Group("/notifications", requireAuth)
		{
			notifications.GET("", deps.notifications.List)
			notifications.GET("/stream", deps.notifications.Stream)
			notifications.POST("/read-all", deps.notifications.MarkAllRead)
			notifications.POST("/:id/read", deps.notifications.MarkRead)
		}
	}

	pages := api.Group("/pages")
	{
		pages.GET("", optionalAuth, deps.pages.List)
		pages.GET("/:slug", optionalAuth, deps.pages.Get)
	}

	if cfg.Dashboard.Enabled {
		api.GET("/dashboard", requireAuth, deps.dashboard.Overview)
	}

	api.POST("/uploads", requireAuth,
		middleware.Audit(deps.userRepo, models.AuditActionUpload, "upload"),
		deps.uploads.Upload)

	if cfg.Exports.Enabled {
		api.GET("/exports/files", deps.exports.Fetch)
	}

	admin := api.Group("/admin", requireAuth, adminOnly)
	{
		admin.GET("/schools", deps.schools.AdminList)
		admin.POST("/schools/:id/moderate", deps.schools.Moderate)
		admin.PUT("/needs/status", deps.needs.BulkSetStatus)

		admin.POST("/pages", deps.pages.Create)
		admin.PUT("/pages/:slug", deps.pages.Update)
		admin.DELETE("/pages/:slug", deps.pages.Delete)

		admin.GET("/users", deps.users.List)
		admin.GET("/users/:id", deps.users.Get)
		admin.POST("/users", deps.users.Create)
		admin.PATCH("/users/:id", deps.users.Update)
		admin.GET("/audit-logs", deps.users.AuditLogs)

		if cfg.Exports.Enabled {
			admin.POST("/exports",
				middleware.Audit(deps.userRepo, models.AuditActionExportCreate, "export"),
				deps.exports.Create)
			admin.GET("/exports/:id", deps.exports.Get)
			admin.GET("/exports/:id/download", deps.exports.Download)
		}
	}
}

func exportCleanupLoop(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := exports.Cleanup(ctx); err != nil {
				logr.Sugar().Warnw("export cleanup failed", "error", err)
			}
		}
	}
}
