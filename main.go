package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/internal/audit"
	"github.com/healthmate/companion/internal/config"
	"github.com/healthmate/companion/internal/handler"
	"github.com/healthmate/companion/internal/middleware"
	"github.com/healthmate/companion/internal/pdf"
	"github.com/healthmate/companion/internal/security"
	"github.com/healthmate/companion/internal/service"
	"github.com/healthmate/companion/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("api_url", cfg.API.BaseURL),
	)

	// Session token persistence, sealed when a key is configured
	key, err := cfg.Session.Key()
	if err != nil {
		logger.Fatal("Invalid session encryption key", zap.Error(err))
	}
	var sealer *security.TokenSealer
	if key != nil {
		sealer, err = security.NewTokenSealer(key)
		if err != nil {
			logger.Fatal("Failed to initialize token encryption", zap.Error(err))
		}
	}
	tokens := session.NewFileTokenStore(cfg.Session.TokenFile, sealer)

	opts := apiclient.Options{Timeout: cfg.API.Timeout}
	if cfg.API.ValidateContract {
		opts.Validator, err = apiclient.NewContractValidator(context.Background())
		if err != nil {
			logger.Fatal("Failed to load backend contract", zap.Error(err))
		}
		logger.Info("Backend contract validation enabled")
	}

	// The client reads the token from the store, which is created right after it
	var sessions *session.Store
	client := apiclient.New(cfg.API.BaseURL, apiclient.TokenFunc(func() string {
		return sessions.Token()
	}), opts, logger.Named("apiclient"))
	sessions = session.NewStore(client.Auth, tokens, logger.Named("session"))

	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.API.Timeout)
	state := sessions.Init(initCtx)
	cancelInit()
	logger.Info("Session initialized", zap.String("state", string(state)))

	auditLogger := audit.NewLogger(logger, 500)

	// Initialize services
	dashboardService := service.NewDashboardService(client.Files, client.Vitals, logger)
	uploadService := service.NewUploadService(client.Files, client.Insights, logger)
	vitalsService := service.NewVitalsService(client.Vitals, logger)
	reportService := service.NewReportService(client.Files, client.Insights, logger)
	timelineService := service.NewTimelineService(client.Files, client.Vitals, logger)

	pdfGenerator := pdf.NewPDFGenerator(logger)

	handlers := &handler.Handlers{
		Auth:      handler.NewAuthHandler(sessions, auditLogger, logger),
		Dashboard: handler.NewDashboardHandler(dashboardService, logger),
		Upload:    handler.NewUploadHandler(uploadService, auditLogger, logger),
		Vitals:    handler.NewVitalsHandler(vitalsService, auditLogger, logger),
		Report:    handler.NewReportHandler(reportService, auditLogger, logger),
		Timeline:  handler.NewTimelineHandler(timelineService, pdfGenerator, logger),
		Health:    handler.NewHealthHandler(sessions),
		Audit:     handler.NewAuditHandler(auditLogger),
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Recovery must be first
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	handler.RegisterRoutes(r, handlers, middleware.RequireSession(sessions, logger))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newLogger builds the production logger in production and the development logger
// elsewhere, then applies the configured level and encoding
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Server.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Logging.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = level
	}
	switch cfg.Logging.Format {
	case "json", "console":
		zapCfg.Encoding = cfg.Logging.Format
	}

	return zapCfg.Build()
}
