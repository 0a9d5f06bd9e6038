package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"paie/internal/amqp"
	"paie/internal/config"
	"paie/internal/log"
	"paie/internal/sheets"
	"paie/internal/sheets/google"
	"paie/internal/sheets/memory"
	"paie/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	logger.Info("Starting paie-journal")

	if err := cfg.Validate(config.RoleJournal); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("Journal worker failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Journal worker stopped")
}

// run consumes ledger events until ctx is done. The AMQP connection is
// closed before run returns.
func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	writer, err := newJournalWriter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer amqpClient.Close()

	return worker.NewJournalWorker(writer, logger).Run(ctx, amqpClient)
}

// newJournalWriter returns the Google Sheets journal when a spreadsheet is
// configured, an in-memory one otherwise.
func newJournalWriter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.JournalWriter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, journal kept in memory")
		return memory.New(), nil
	}

	client, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Location:        cfg.Location(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	// Not fatal: AppendEntry retries the header on first use.
	if err := client.EnsureHeader(ctx); err != nil {
		logger.Warn("Could not prepare journal sheet", log.FieldError, err.Error())
	}
	logger.Info("Google Sheets journal initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}
