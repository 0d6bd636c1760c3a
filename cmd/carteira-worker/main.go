package main

import (
	"context"
	"errors"
	"os"
	"time"

	"carteira/internal/amqp"
	"carteira/internal/cache"
	"carteira/internal/cli"
	"carteira/internal/export"
	"carteira/internal/log"
	"carteira/internal/mail"
	"carteira/internal/services"
	gsheet "carteira/internal/sheets/google"
	"carteira/internal/worker"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.MustLoad()
	logger.Info("Starting carteira-worker", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	be, err := cli.InitBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer be.Close()

	loc := cli.Location(cfg, logger)

	var sheetsClient *gsheet.Client
	if cfg.MirrorEnabled() {
		sheetsClient, err = gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			Location:        loc,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	g, gctx := errgroup.WithContext(ctx)

	switch {
	case sheetsClient != nil && cfg.AMQPURL != "":
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		mirror := worker.NewMirrorWorker(be.Transactions, sheetsClient, logger)
		g.Go(func() error {
			err := amqpClient.ConsumeTransactionEvents(gctx, mirror.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	case sheetsClient != nil:
		logger.Warn("Google Sheets mirror needs AMQP_URL, transaction mirroring disabled")
	}

	if cfg.ReportSchedule != "" {
		sinks := []export.Sink{export.NewFileSink(afero.NewOsFs(), cfg.ExportDir)}
		if sheetsClient != nil {
			sinks = append(sinks, sheetsClient)
		}
		var mailer worker.Mailer
		if cfg.MailEnabled() {
			mailer = mail.NewSender(cli.MailConfig(cfg), logger)
		}

		scheduler, err := worker.NewReportScheduler(worker.SchedulerConfig{
			Schedule:   cfg.ReportSchedule,
			UserID:     cfg.ReportUserID,
			Recipients: cfg.ReportRecipients,
			Location:   loc,
		}, services.NewReportService(be.Transactions, loc, logger), sinks, mailer, logger)
		if err != nil {
			logger.Error("Invalid report schedule", log.FieldError, err, "schedule", cfg.ReportSchedule)
			os.Exit(1)
		}
		g.Go(func() error { return scheduler.Run(gctx) })
	}

	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache))
	for _, c := range be.Caches {
		cacheManager.Register(c)
	}
	g.Go(func() error {
		cacheManager.Run(gctx, 10*time.Minute)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
