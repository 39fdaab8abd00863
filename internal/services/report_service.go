package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"finreport/internal/amqp"
	"finreport/internal/cache"
	"finreport/internal/core"
	applog "finreport/internal/log"
	"finreport/internal/records"
	"finreport/internal/render"
	"finreport/internal/report"
	"finreport/internal/sheets/google"
)

var (
	ErrSourceUnavailable  = errors.New("record source unavailable")
	ErrPublishingDisabled = errors.New("report publishing is not configured")
)

// Publisher pushes a report's rows to an external spreadsheet.
type Publisher interface {
	Publish(ctx context.Context, table report.CSVTable) (google.PublishResult, error)
}

// ReportConfig holds the optional collaborators of a ReportService.
type ReportConfig struct {
	Cache         cache.Cache[report.Report]
	Publisher     Publisher
	SourceTimeout time.Duration
	Location      *time.Location
}

// ReportService fetches snapshots from a record source and turns them into
// reports and their derived views.
type ReportService struct {
	source    records.Source
	cache     cache.Cache[report.Report]
	publisher Publisher
	timeout   time.Duration
	loc       *time.Location
	now       func() time.Time
	log       *applog.StructuredLogger
}

// Views bundles a report with its chart and document outline.
type Views struct {
	Report  report.Report  `json:"report"`
	Chart   report.Chart   `json:"chart"`
	Outline report.Outline `json:"outline"`
}

// Export is a rendered report file.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

func NewReportService(source records.Source, cfg ReportConfig) *ReportService {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := applog.New(applog.Config{
		Component: applog.ComponentReport,
		Handler:   slog.Default().Handler(),
	})
	return &ReportService{
		source:    source,
		cache:     cfg.Cache,
		publisher: cfg.Publisher,
		timeout:   cfg.SourceTimeout,
		loc:       loc,
		now:       time.Now,
		log:       applog.NewStructuredLogger(logger),
	}
}

// Generate validates the request and produces the report, from cache when
// the same request was already answered for the current snapshot.
func (s *ReportService) Generate(ctx context.Context, in ReportRequest) (report.Report, error) {
	req, err := in.ToRequest()
	if err != nil {
		return report.Report{}, err
	}

	now := s.now().In(s.loc)
	// Resolve up front so the cache key reflects the calendar window.
	period, err := report.Resolve(req.Kind, req.Range, now)
	if err != nil {
		return report.Report{}, err
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return report.Report{}, err
	}

	key := cacheKey(req, period, snap.Version)
	if s.cache != nil {
		if rep, ok := s.cache.Get(key); ok {
			rep.GeneratedAt = now
			s.logGenerated(ctx, rep, true)
			return rep, nil
		}
	}

	rep, err := report.Generate(req, snap, now)
	if err != nil {
		return report.Report{}, err
	}
	if s.cache != nil {
		s.cache.Set(key, rep)
	}
	s.logGenerated(ctx, rep, false)
	return rep, nil
}

// Views generates the report and derives the chart and outline.
func (s *ReportService) Views(ctx context.Context, in ReportRequest) (Views, error) {
	rep, err := s.Generate(ctx, in)
	if err != nil {
		return Views{}, err
	}
	return Views{Report: rep, Chart: rep.Chart(), Outline: rep.Outline()}, nil
}

// Export renders the report in the requested file format.
func (s *ReportService) Export(ctx context.Context, in ReportRequest, format render.Format) (Export, error) {
	rep, err := s.Generate(ctx, in)
	if err != nil {
		return Export{}, err
	}

	body, err := render.Render(format, rep)
	if err != nil {
		s.log.LogError(ctx, "Failed to render report", err, applog.ComponentReport, applog.OpExport,
			applog.LogFields{applog.FieldFormat: string(format)})
		return Export{}, fmt.Errorf("render %s: %w", format, err)
	}

	return Export{
		Filename:    format.Filename(rep.Result.Title),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// Publish writes the report rows to the configured spreadsheet.
func (s *ReportService) Publish(ctx context.Context, in ReportRequest) (google.PublishResult, error) {
	if s.publisher == nil {
		return google.PublishResult{}, ErrPublishingDisabled
	}
	rep, err := s.Generate(ctx, in)
	if err != nil {
		return google.PublishResult{}, err
	}

	res, err := s.publisher.Publish(ctx, rep.CSV())
	if err != nil {
		s.log.LogError(ctx, "Failed to publish report", err, applog.ComponentSheets, applog.OpPublish, nil)
		return google.PublishResult{}, fmt.Errorf("publish report: %w", err)
	}
	return res, nil
}

// PublishingEnabled reports whether a spreadsheet publisher is configured.
func (s *ReportService) PublishingEnabled() bool {
	return s.publisher != nil
}

// Filters lists the users and categories present in the current snapshot.
func (s *ReportService) Filters(ctx context.Context) (records.FilterOptions, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return records.FilterOptions{}, err
	}
	return records.Options(snap), nil
}

// Invalidate drops every cached report.
func (s *ReportService) Invalidate(ctx context.Context, reason string) int {
	if s.cache == nil {
		return 0
	}
	n := s.cache.Purge()
	slog.InfoContext(ctx, "Report cache purged",
		applog.FieldComponent, applog.ComponentCache,
		applog.FieldOperation, applog.OpPurge,
		"reason", reason,
		"entries", n)
	return n
}

// HandleRecordsChanged is the AMQP handler for records changed messages.
func (s *ReportService) HandleRecordsChanged(ctx context.Context, msg *amqp.RecordsChangedMessage) error {
	s.Invalidate(ctx, "records changed: "+msg.Version)
	return nil
}

func (s *ReportService) snapshot(ctx context.Context) (core.Snapshot, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		s.log.LogError(ctx, "Failed to load records snapshot", err, applog.ComponentReport, applog.OpLoad, nil)
		return core.Snapshot{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return snap, nil
}

func (s *ReportService) logGenerated(ctx context.Context, rep report.Report, cacheHit bool) {
	req := rep.Request
	s.log.LogReportGenerated(ctx, string(req.Kind), string(req.Scope), req.UserID, req.Category,
		rep.Result.TotalExpenseCount, rep.Result.TotalIncomeCount, rep.Result.Balance.Cents, cacheHit)
}

func cacheKey(req report.Request, period report.Period, version string) string {
	return strings.Join([]string{
		version,
		string(req.Kind),
		period.Start.Format(time.RFC3339),
		period.End.Format(time.RFC3339Nano),
		req.UserID,
		req.Category,
		string(req.Scope),
		strconv.FormatBool(req.RequireCompletedIncome),
		req.Description,
	}, "\x1f")
}
