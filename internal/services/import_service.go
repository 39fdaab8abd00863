package services

import (
	"context"
	"fmt"
	"log/slog"

	"finreport/internal/amqp"
	applog "finreport/internal/log"
	"finreport/internal/records"
)

// Notifier announces that the stored records changed.
type Notifier interface {
	PublishRecordsChanged(ctx context.Context, msg *amqp.RecordsChangedMessage) error
}

// ImportService loads a dump into the store and tells consumers about it.
type ImportService struct {
	store    records.Importer
	notifier Notifier
	source   string
}

// NewImportService creates the service. notifier may be nil; source names
// the producer in outgoing messages.
func NewImportService(store records.Importer, notifier Notifier, source string) *ImportService {
	return &ImportService{store: store, notifier: notifier, source: source}
}

// ImportFile reads a JSON dump from path and imports it.
func (s *ImportService) ImportFile(ctx context.Context, path string) (records.ImportStats, error) {
	snap, err := records.ReadDumpFile(path)
	if err != nil {
		return records.ImportStats{}, err
	}

	// Import into the store first; the notification is best effort.
	stats, err := s.store.Import(ctx, snap)
	if err != nil {
		return records.ImportStats{}, fmt.Errorf("import records: %w", err)
	}

	slog.InfoContext(ctx, "Records imported",
		applog.FieldComponent, applog.ComponentImport,
		applog.FieldOperation, applog.OpImport,
		applog.FieldSnapshot, stats.Version,
		"users", stats.Users,
		"expenses", stats.Expenses,
		"incomes", stats.Incomes)

	if err := s.notify(ctx, stats.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish records changed message",
			applog.FieldComponent, applog.ComponentImport,
			applog.FieldError, err)
	}
	return stats, nil
}

func (s *ImportService) notify(ctx context.Context, version string) error {
	if s.notifier == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping records changed message")
		return nil
	}
	return s.notifier.PublishRecordsChanged(ctx, amqp.NewRecordsChangedMessage(s.source, version))
}
