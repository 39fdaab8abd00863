package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finreport/internal/cache"
	"finreport/internal/cli"
	apphttp "finreport/internal/http"
	applog "finreport/internal/log"
	"finreport/internal/report"
	"finreport/internal/services"
	"finreport/internal/sheets/google"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid report timezone", applog.FieldError, err, "timezone", cfg.ReportTimezone)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	res, err := cli.OpenBackend(ctx, logger, cfg, "")
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	reportCache := cache.NewLRUCache[report.Report](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(reportCache)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	var publisher services.Publisher
	if cfg.SheetsEnabled() {
		p, err := google.NewPublisher(ctx, google.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleReportSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets publisher", applog.FieldError, err)
			os.Exit(1)
		}
		publisher = p
	} else {
		logger.Info("Google Sheets publishing disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	reports := services.NewReportService(res.Store, services.ReportConfig{
		Cache:         reportCache,
		Publisher:     publisher,
		SourceTimeout: cfg.SourceTimeout,
		Location:      loc,
	})

	// Cached reports are dropped whenever the importer announces new data.
	amqpClient, err := cli.ConnectAMQP(ctx, logger, cfg)
	if err != nil {
		logger.Warn("AMQP unavailable, cache invalidation relies on TTL", applog.FieldError, err)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
		go func() {
			if err := amqpClient.ConsumeRecordsChanged(ctx, reports.HandleRecordsChanged); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("AMQP consumer stopped", applog.FieldError, err)
			}
		}()
	}

	srv := apphttp.NewServer(":"+cfg.Port, reports, apphttp.Options{
		Ready: apphttp.ReadyFunc(res.Ping),
	})

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting finreport server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
