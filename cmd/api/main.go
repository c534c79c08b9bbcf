package main

import (
	"context"
	"errors"
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

	_ "github.com/eduflow-app/eduflow-api/api/swagger"
	"github.com/eduflow-app/eduflow-api/internal/handler"
	internalmiddleware "github.com/eduflow-app/eduflow-api/internal/middleware"
	"github.com/eduflow-app/eduflow-api/internal/models"
	"github.com/eduflow-app/eduflow-api/internal/repository"
	"github.com/eduflow-app/eduflow-api/internal/service"
	"github.com/eduflow-app/eduflow-api/pkg/cache"
	"github.com/eduflow-app/eduflow-api/pkg/config"
	"github.com/eduflow-app/eduflow-api/pkg/database"
	"github.com/eduflow-app/eduflow-api/pkg/export"
	"github.com/eduflow-app/eduflow-api/pkg/identity"
	"github.com/eduflow-app/eduflow-api/pkg/logger"
	corsmiddleware "github.com/eduflow-app/eduflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/eduflow-app/eduflow-api/pkg/middleware/requestid"
	"github.com/eduflow-app/eduflow-api/pkg/webhook"
)

// @title EduFlow API
// @version 0.1.0
// @description Course marketplace backend
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, browse caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	verifier, err := webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)
	if err != nil {
		logr.Sugar().Fatalw("failed to init webhook verifier", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	identitySvc := service.NewIdentityService(userRepo, identity.NewClient(cfg.Identity), validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	catalogSvc := service.NewCatalogService(catalogRepo, cacheRepo, service.CatalogConfig{
		DefaultLimit: cfg.Catalog.DefaultLimit,
		MaxLimit:     cfg.Catalog.MaxLimit,
		CacheTTL:     cfg.Catalog.CacheTTL,
	}, logr)
	certRenderer := export.NewCertificateRenderer(cfg.Certificates.IssuerName)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, certRenderer, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, userRepo, enrollmentRepo, catalogSvc, export.NewCSVExporter(), validate, logr)
	messageSvc := service.NewMessageService(messageRepo, userRepo, courseRepo, validate, logr)
	favoriteSvc := service.NewFavoriteService(favoriteRepo, courseRepo, logr)

	webhookHandler := handler.NewWebhookHandler(verifier, identitySvc, metricsSvc, logr)
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(identitySvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	favoriteHandler := handler.NewFavoriteHandler(favoriteSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	r.POST("/webhooks/identity", webhookHandler.HandleIdentityEvent)

	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	catalog := r.Group("/catalog", internalmiddleware.OptionalJWT(authSvc))
	{
		catalog.GET("/popular", catalogHandler.Popular)
		catalog.GET("/new", catalogHandler.New)
		catalog.GET("/courses/:id", catalogHandler.Detail)
	}

	authed := r.Group("/", internalmiddleware.JWT(authSvc))
	{
		authed.GET("/me", userHandler.Me)
		authed.PATCH("/me", userHandler.UpdateProfile)
		authed.POST("/onboarding", userHandler.Onboard)

		authed.POST("/enrollments", enrollmentHandler.Create)
		authed.GET("/me/courses", enrollmentHandler.ListMine)
		authed.PUT("/enrollments/:id/lessons/:lessonID/progress", enrollmentHandler.Progress)
		authed.POST("/enrollments/:id/review", enrollmentHandler.Review)
		authed.GET("/enrollments/:id/certificate", enrollmentHandler.Certificate)

		authed.PATCH("/courses/:id", courseHandler.Update)
		authed.POST("/courses/:id/modules", courseHandler.AddModule)
		authed.PATCH("/modules/:moduleID", courseHandler.UpdateModule)
		authed.DELETE("/modules/:moduleID", courseHandler.DeleteModule)
		authed.POST("/modules/:moduleID/lessons", courseHandler.AddLesson)
		authed.DELETE("/lessons/:lessonID", courseHandler.DeleteLesson)
		authed.POST("/courses/:id/resources", courseHandler.AddResource)
		authed.DELETE("/courses/:id/resources/:resourceID", courseHandler.DeleteResource)
		authed.POST("/courses/:id/live-classes", courseHandler.ScheduleLiveClass)
		authed.GET("/courses/:id/live-classes", courseHandler.ListLiveClasses)

		instructor := authed.Group("/", internalmiddleware.RequireRoles(models.RoleInstructor, models.RoleAdmin))
		{
			instructor.POST("/courses", courseHandler.Create)
			instructor.GET("/instructor/courses", courseHandler.ListMine)
			instructor.GET("/courses/:id/roster.csv", courseHandler.RosterCSV)
		}

		authed.GET("/conversations", messageHandler.Conversations)
		authed.GET("/messages/:peerID", messageHandler.Thread)
		authed.POST("/messages", messageHandler.Send)

		authed.GET("/favorites", favoriteHandler.List)
		authed.POST("/favorites/:id", favoriteHandler.Save)
		authed.DELETE("/favorites/:id", favoriteHandler.Unsave)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
