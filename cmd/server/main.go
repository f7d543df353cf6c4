package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"case_registry_go/config"
	"case_registry_go/db"
	"case_registry_go/handlers"
	"case_registry_go/middleware"
	"case_registry_go/models"
	"case_registry_go/services"
	"case_registry_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.User{},
		&models.Case{},
		&models.Complainant{},
		&models.Respondent{},
		&models.TrackingEntry{},
		&models.Attachment{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Services
	notifier := services.NewResendNotifier(cfg)
	users := services.NewGormUserDirectory(db.DB)

	cases := services.NewCaseService(db.DB, users, notifier)
	if cfg.StrictTransitions {
		cases.Policy = services.NewStrictPolicy()
		log.Println("Strict status transitions enabled")
	}
	if counter := newSequenceCounter(cfg); counter != nil {
		cases.Counter = counter
	}

	attachments := services.NewAttachmentService(db.DB, services.NewStorage(cfg), notifier, cfg.MaxUploadSize)
	stats := services.NewStatisticsService(db.DB)
	h := handlers.NewCaseHandler(cases, attachments, stats, cfg.MaxUploadSize)
	h.TurnstileSecretKey = cfg.TurnstileSecretKey
	if cfg.TurnstileSecretKey != "" {
		log.Println("Turnstile CAPTCHA enabled on public intake")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, middleware.HeaderUserID, handlers.HeaderTurnstileToken},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit(cfg.MaxUploadSize)))
	e.Use(middleware.ActorContext(users))

	// Operational routes
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Complainant routes (no actor)
	intakeLimiter := middleware.NewPublicIntakeRateLimiter(cfg.PublicIntakeLimit)
	defer intakeLimiter.Stop()
	filesLimiter := middleware.NewPublicFilesRateLimiter(cfg.PublicIntakeLimit)
	defer filesLimiter.Stop()
	lookupLimiter := middleware.NewPublicLookupRateLimiter(cfg.PublicLookupLimit)
	defer lookupLimiter.Stop()

	public := e.Group("/api/public/cases")
	{
		public.POST("", h.PublicIntakeHandler, intakeLimiter.Middleware())
		public.GET("/code/:code", h.PublicCaseLookupHandler, lookupLimiter.Middleware())
		public.POST("/:id/attachments", h.PublicUploadAttachmentHandler, filesLimiter.Middleware())
		public.POST("/:id/certificate", h.SendCertificateHandler, filesLimiter.Middleware())
	}

	// Staff routes
	staff := e.Group("/api/cases")
	staff.Use(middleware.RequireActor())
	{
		staff.POST("", h.CreateCaseHandler)
		staff.GET("", h.ListCasesHandler)
		staff.GET("/stats", h.CaseStatsHandler)
		staff.GET("/code/:code", h.GetCaseByCodeHandler)
		staff.GET("/:id", h.GetCaseHandler)
		staff.PATCH("/:id", h.UpdateCaseHandler)
		staff.POST("/:id/tracking", h.AddTrackingEntryHandler)
		staff.GET("/:id/tracking", h.ListTrackingEntriesHandler)
		staff.POST("/:id/certificate", h.SendCertificateHandler)
		staff.POST("/:id/attachments", h.UploadAttachmentHandler)
		staff.GET("/:id/attachments", h.ListAttachmentsHandler)
		staff.GET("/:id/attachments/:attachmentId", h.DownloadAttachmentHandler)

		// Admin and officers only
		officers := staff.Group("")
		officers.Use(middleware.RequireRole(models.UserRoleAdmin, models.UserRoleOfficer))
		{
			officers.GET("/export", h.ExportCasesHandler)
			officers.POST("/:id/assign", h.AssignCaseHandler)
			officers.DELETE("/:id", h.ArchiveCaseHandler)
		}
	}

	// Overdue case scan (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		jobs.ScanOverdueCases(db.DB, time.Now())
		for range ticker.C {
			jobs.ScanOverdueCases(db.DB, time.Now())
		}
	}()

	// Start server
	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARNING] Server shutdown failed: %v", err)
	}
}

// newSequenceCounter connects to Redis when configured. Without it, codes come from the stored maximum alone.
func newSequenceCounter(cfg *config.Config) services.SequenceCounter {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[WARNING] Redis unavailable at %s: %v. Case codes will use the stored maximum only.", cfg.RedisAddr, err)
		client.Close()
		return nil
	}

	log.Printf("Redis sequence counter connected (%s)", cfg.RedisAddr)
	return services.NewRedisSequenceCounter(client)
}

// bodyLimit leaves room for multipart framing around the largest allowed upload, in echo's size notation
func bodyLimit(maxUpload int64) string {
	const framing = 1 << 20
	return strconv.FormatInt((maxUpload+framing)/1024+1, 10) + "K"
}
