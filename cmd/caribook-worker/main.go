package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"caribook/internal/amqp"
	"caribook/internal/cli"
	"caribook/internal/log"
	"caribook/internal/sheets/google"
	"caribook/internal/worker"
)

const consumeRetryDelay = 5 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting caribook-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.HasSheets() {
		logger.Error("Spreadsheet mirror is not configured, set GOOGLE_SPREADSHEET_ID",
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	// The worker reads sync state that only the SQLite store keeps.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	credentials, err := google.LoadCredentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		logger.Error("Failed to load Google credentials", log.FieldError, err)
		repo.Close()
		os.Exit(1)
	}
	mirror, err := google.New(context.Background(), google.Config{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
		Location:      cfg.Location(),
	}, credentials)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	var client *amqp.Client
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			repo.Close()
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only")
	}

	syncWorker := worker.NewSyncWorker(repo, mirror, cfg.SyncBatchSize, logger)
	poller := worker.NewPoller(syncWorker, cfg.SyncInterval)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := poller.Stop(shutdownCtx); err != nil {
			logger.Warn("Poller did not stop cleanly", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Performing startup sync check...")
		if err := syncWorker.StartupSyncCheck(gctx); err != nil && gctx.Err() == nil {
			logger.Error("Failed startup sync check", log.FieldError, err)
		}
		return nil
	})
	if err := poller.Start(gctx); err != nil {
		logger.Error("Failed to start poller", log.FieldError, err)
	}
	if client != nil {
		g.Go(func() error {
			return consume(gctx, client, syncWorker, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
	}
	cli.WaitForShutdown(ctx, done)

	if client != nil {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
	if err := repo.Close(); err != nil {
		logger.Warn("Failed to close SQLite repository", log.FieldError, err)
	}
	logger.Info("Worker shutdown complete")
}

// consume feeds sync messages to the worker until ctx ends. A dropped
// broker connection is retried after a pause.
func consume(ctx context.Context, client *amqp.Client, w *worker.SyncWorker, logger *log.Logger) error {
	for {
		err := client.ConsumeEventSync(ctx, w.HandleMessage)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption stopped, retrying",
				log.FieldError, err,
				"retry_in", consumeRetryDelay)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(consumeRetryDelay):
		}
	}
}
