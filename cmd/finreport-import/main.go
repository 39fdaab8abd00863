package main

import (
	"flag"
	"fmt"
	"os"

	"finreport/internal/backend"
	"finreport/internal/cli"
	applog "finreport/internal/log"
	"finreport/internal/services"
)

func main() {
	file := flag.String("file", "", "path to the JSON dump to import (required)")
	source := flag.String("source", "finreport-import", "producer name sent in records changed messages")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: finreport-import -file dump.json [-source name]")
		os.Exit(2)
	}

	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentImport)

	ctx, stop := cli.SignalContext()
	defer stop()

	// The memory backend lives in the server process, so imports always
	// target the SQLite database.
	res, err := cli.OpenBackend(ctx, logger, cfg, backend.SQLiteBackend)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer res.Close()

	var notifier services.Notifier
	client, err := cli.ConnectAMQP(ctx, logger, cfg)
	if err != nil {
		logger.Warn("AMQP unavailable, consumers will not be notified", applog.FieldError, err)
	}
	if client != nil {
		defer client.Close()
		notifier = client
	}

	stats, err := services.NewImportService(res.Store, notifier, *source).ImportFile(ctx, *file)
	if err != nil {
		logger.Error("Import failed", applog.FieldError, err, "file", *file)
		res.Close()
		os.Exit(1)
	}

	logger.Info("Import completed",
		applog.FieldOperation, applog.OpImport,
		applog.FieldSnapshot, stats.Version,
		"file", *file,
		"users", stats.Users,
		"expenses", stats.Expenses,
		"incomes", stats.Incomes)
}
