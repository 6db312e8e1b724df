package main

import (
	"os"
	"time"

	"github.com/felipesemedo05/parcelas-servico/internal/amqp"
	"github.com/felipesemedo05/parcelas-servico/internal/cli"
	applog "github.com/felipesemedo05/parcelas-servico/internal/log"
	"github.com/felipesemedo05/parcelas-servico/internal/store/sheets"
	"github.com/felipesemedo05/parcelas-servico/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting parcelas-worker")

	cfg := cli.LoadAndValidateConfig(logger.Logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)

	// The digest reads the same store the web server writes.
	res := cli.InitStore(ctx, logger.Logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	var (
		consumer worker.Consumer
		mirror   *worker.Mirror
	)
	if cfg.AMQPEnabled() && cfg.GoogleSpreadsheetID != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		sheet, err := sheets.New(ctx, sheets.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleMirrorSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		consumer, mirror = client, worker.NewMirror(sheet)
		logger.Info("Sheets mirror enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleMirrorSheetName,
			"queue", cfg.AMQPQueue)
	} else {
		logger.Info("Sheets mirror disabled - AMQP_URL and GOOGLE_SPREADSHEET_ID are both required")
	}

	var notifier worker.Notifier = worker.LogNotifier{Logger: logger.Logger}
	if cfg.SMTPEnabled() {
		notifier = worker.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.DigestFrom, cfg.DigestTo)
		logger.Info("Digest email enabled", "host", cfg.SMTPHost, "to", cfg.DigestTo)
	}

	scheduler, err := worker.NewScheduler(cfg.DigestSchedule, worker.NewDigestJob(res.Store, notifier))
	if err != nil {
		logger.Error("Invalid digest schedule", "error", err)
		os.Exit(1)
	}

	if err := worker.New(consumer, mirror, scheduler).Run(ctx); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
