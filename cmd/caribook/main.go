package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"caribook/internal/auth"
	"caribook/internal/backend"
	"caribook/internal/bookings"
	"caribook/internal/cache"
	"caribook/internal/cli"
	apphttp "caribook/internal/http"
	"caribook/internal/invoice"
	"caribook/internal/log"
	"caribook/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend",
			log.FieldError, err,
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo := bookings.NewRepository(result.Store,
		bookings.WithLocation(cfg.Location()),
		bookings.WithLogger(logger))

	// A nil *amqp.Client must not become a non-nil interface.
	var publisher services.Publisher
	if result.Publisher != nil {
		publisher = result.Publisher
	}
	events := services.NewEventService(repo, result.Store, publisher, logger)

	documents := cache.NewLRUCache[services.Document](64, 15*time.Minute)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(documents)
	cacheManager.StartCleanup(5 * time.Minute)
	invoices := services.NewInvoiceService(repo, invoice.Render, documents, logger)

	authService := auth.NewService(result.Store, cfg.AdminEmails, cfg.JWTSecret, cfg.SessionTTL,
		auth.WithLogger(logger))

	var ready func(context.Context) error
	if pinger, ok := result.Store.(interface{ Ping(context.Context) error }); ok {
		ready = pinger.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Events:   events,
		Bookings: repo,
		Invoices: invoices,
		Auth:     authService,
		Artists:  result.Store,
		Labels:   result.Store,
		Ready:    ready,
		Logger:   logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting caribook server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone,
		"fan_out", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
