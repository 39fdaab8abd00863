package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"finreport/internal/amqp"
	"finreport/internal/cache"
	"finreport/internal/core"
	"finreport/internal/records/memory"
	"finreport/internal/render"
	"finreport/internal/report"
	"finreport/internal/sheets/google"
)

var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu    sync.Mutex
	snap  core.Snapshot
	err   error
	calls int
}

func (f *fakeSource) Snapshot(ctx context.Context) (core.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return core.Snapshot{}, f.err
	}
	return f.snap, nil
}

type fakePublisher struct {
	tables []report.CSVTable
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, table report.CSVTable) (google.PublishResult, error) {
	if f.err != nil {
		return google.PublishResult{}, f.err
	}
	f.tables = append(f.tables, table)
	return google.PublishResult{SpreadsheetID: "sheet-1", UpdatedRows: int64(len(table.Rows) + 1)}, nil
}

func marchSnapshot() core.Snapshot {
	alice := core.UserRef{ID: "u1", FirstName: "Alice", LastName: "Rossi"}
	return core.Snapshot{
		Users: []core.UserRef{alice},
		Expenses: []core.ExpenseRecord{
			{ID: "e1", Title: "Rent", Amount: core.Some(35000), Category: &core.CategoryRef{Name: "Housing"}, User: &alice, TransactionDate: "2024-03-01T09:00:00Z"},
			{ID: "e2", Title: "Groceries", Amount: core.Some(15000), Category: &core.CategoryRef{Name: "Food"}, User: &alice, TransactionDate: "2024-03-10T18:30:00Z"},
			{ID: "e3", Title: "Old", Amount: core.Some(9900), Category: &core.CategoryRef{Name: "Food"}, TransactionDate: "2024-02-10T18:30:00Z"},
		},
		Incomes: []core.IncomeRecord{
			{ID: "i1", Amount: core.Some(50000), Status: core.StatusCompleted, User: &alice, TransactionDate: "2024-03-05T08:00:00Z"},
		},
		Version: "v1",
	}
}

func newTestService(src *fakeSource, pub Publisher) (*ReportService, *cache.LRUCache[report.Report]) {
	c := cache.NewLRUCache[report.Report](16, time.Hour)
	svc := NewReportService(src, ReportConfig{Cache: c, Publisher: pub, SourceTimeout: time.Second, Location: time.UTC})
	svc.now = func() time.Time { return fixedNow }
	return svc, c
}

func TestReportService_Generate(t *testing.T) {
	svc, _ := newTestService(&fakeSource{snap: marchSnapshot()}, nil)

	rep, err := svc.Generate(context.Background(), ReportRequest{Kind: "Monthly"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	res := rep.Result
	if res.TotalExpenseCount != 2 || res.TotalExpenseAmount.Cents != 50000 {
		t.Fatalf("expenses = %d / %d, want 2 / 50000", res.TotalExpenseCount, res.TotalExpenseAmount.Cents)
	}
	if res.TotalIncomeAmount.Cents != 50000 || res.Balance.Cents != 0 {
		t.Fatalf("income = %d balance = %d", res.TotalIncomeAmount.Cents, res.Balance.Cents)
	}
	if !strings.Contains(res.Title, "March 2024") {
		t.Fatalf("title = %q", res.Title)
	}
}

func TestReportService_Cache(t *testing.T) {
	src := &fakeSource{snap: marchSnapshot()}
	svc, c := newTestService(src, nil)
	ctx := context.Background()

	first, err := svc.Generate(ctx, ReportRequest{Kind: "monthly"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	later := fixedNow.Add(time.Hour)
	svc.now = func() time.Time { return later }
	hit, err := svc.Generate(ctx, ReportRequest{Kind: "monthly"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if c.Size() != 1 {
		t.Fatalf("cache size = %d, want 1", c.Size())
	}
	if !first.GeneratedAt.Equal(fixedNow) || !hit.GeneratedAt.Equal(later) {
		t.Fatalf("generated at = %v then %v, want %v then %v", first.GeneratedAt, hit.GeneratedAt, fixedNow, later)
	}
	if got := hit.Outline().Sections[0].Fields[0].Value; got != later.UTC().Format("2006-01-02 15:04:05") {
		t.Fatalf("outline generated = %q", got)
	}

	// A new snapshot version is never answered from the old entry.
	src.mu.Lock()
	src.snap.Version = "v2"
	src.snap.Expenses = src.snap.Expenses[:1]
	src.mu.Unlock()

	second, err := svc.Generate(ctx, ReportRequest{Kind: "monthly"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if second.Result.TotalExpenseCount == first.Result.TotalExpenseCount {
		t.Fatal("report served from a stale snapshot")
	}
	if c.Size() != 2 {
		t.Fatalf("cache size = %d, want 2", c.Size())
	}

	msg := amqp.NewRecordsChangedMessage("test", "v3")
	if err := svc.HandleRecordsChanged(ctx, msg); err != nil {
		t.Fatalf("HandleRecordsChanged() error = %v", err)
	}
	if c.Size() != 0 {
		t.Fatalf("cache size after purge = %d, want 0", c.Size())
	}
}

func TestReportService_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  ReportRequest
		want error
	}{
		{"missing kind", ReportRequest{}, report.ErrInvalidPeriod},
		{"unknown kind", ReportRequest{Kind: "weekly"}, report.ErrInvalidPeriod},
		{"custom without dates", ReportRequest{Kind: "custom"}, report.ErrInvalidRange},
		{"bad date", ReportRequest{Kind: "custom", StartDate: "2024-13-01", EndDate: "2024-12-31"}, report.ErrInvalidRange},
		{"unknown scope", ReportRequest{Kind: "monthly", Scope: "owner"}, report.ErrInvalidScope},
		{"user scope without user", ReportRequest{Kind: "monthly", Scope: "user"}, report.ErrInvalidScope},
		{"user scope with all", ReportRequest{Kind: "monthly", Scope: "user", UserID: "all"}, report.ErrInvalidScope},
		{"long category", ReportRequest{Kind: "monthly", Category: strings.Repeat("x", 200)}, report.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{snap: marchSnapshot()}
			svc, _ := newTestService(src, nil)

			_, err := svc.Generate(context.Background(), tt.req)
			if !errors.Is(err, report.ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if src.calls != 0 {
				t.Fatalf("source called %d times for an invalid request", src.calls)
			}
		})
	}
}

func TestReportService_ReversedCustomRange(t *testing.T) {
	src := &fakeSource{snap: marchSnapshot()}
	svc, _ := newTestService(src, nil)

	_, err := svc.Generate(context.Background(), ReportRequest{Kind: "custom", StartDate: "2024-03-31", EndDate: "2024-03-01"})
	if !errors.Is(err, report.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	if src.calls != 0 {
		t.Fatal("source consulted for a reversed range")
	}
}

func TestReportService_SourceFailure(t *testing.T) {
	svc, _ := newTestService(&fakeSource{err: errors.New("disk on fire")}, nil)

	_, err := svc.Generate(context.Background(), ReportRequest{Kind: "monthly"})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if _, err := svc.Filters(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Filters() err = %v, want ErrSourceUnavailable", err)
	}
}

func TestReportService_Views(t *testing.T) {
	svc, _ := newTestService(&fakeSource{snap: marchSnapshot()}, nil)

	v, err := svc.Views(context.Background(), ReportRequest{Kind: "monthly", UserID: "u1", Description: "Household"})
	if err != nil {
		t.Fatalf("Views() error = %v", err)
	}
	if len(v.Chart.CategorySeries) != 2 || len(v.Chart.ComparisonSeries) != 3 {
		t.Fatalf("chart = %+v", v.Chart)
	}
	if v.Outline.Title != v.Report.Result.Title {
		t.Fatalf("outline title = %q, want %q", v.Outline.Title, v.Report.Result.Title)
	}

	kinds := map[report.SectionKind]bool{}
	for _, s := range v.Outline.Sections {
		kinds[s.Kind] = true
	}
	for _, k := range []report.SectionKind{report.SectionHeader, report.SectionDescription, report.SectionUserInfo, report.SectionFooter} {
		if !kinds[k] {
			t.Errorf("outline missing section %s", k)
		}
	}
}

func TestReportService_Export(t *testing.T) {
	svc, _ := newTestService(&fakeSource{snap: marchSnapshot()}, nil)

	exp, err := svc.Export(context.Background(), ReportRequest{Kind: "monthly"}, render.CSV)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.HasSuffix(exp.Filename, ".csv") || exp.ContentType != render.CSV.ContentType() {
		t.Fatalf("export = %q %q", exp.Filename, exp.ContentType)
	}
	if !bytes.HasPrefix(exp.Body, []byte("Title,User,Category")) {
		t.Fatalf("body = %q", exp.Body)
	}

	if _, err := svc.Export(context.Background(), ReportRequest{Kind: "monthly"}, render.Format("docx")); !errors.Is(err, render.ErrUnknownFormat) {
		t.Fatalf("unknown format err = %v", err)
	}
}

func TestReportService_Publish(t *testing.T) {
	ctx := context.Background()

	disabled, _ := newTestService(&fakeSource{snap: marchSnapshot()}, nil)
	if disabled.PublishingEnabled() {
		t.Fatal("publishing enabled without a publisher")
	}
	if _, err := disabled.Publish(ctx, ReportRequest{Kind: "monthly"}); !errors.Is(err, ErrPublishingDisabled) {
		t.Fatalf("err = %v, want ErrPublishingDisabled", err)
	}

	pub := &fakePublisher{}
	svc, _ := newTestService(&fakeSource{snap: marchSnapshot()}, pub)
	res, err := svc.Publish(ctx, ReportRequest{Kind: "monthly"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.UpdatedRows != 3 || len(pub.tables) != 1 {
		t.Fatalf("result = %+v, tables = %d", res, len(pub.tables))
	}

	failing, _ := newTestService(&fakeSource{snap: marchSnapshot()}, &fakePublisher{err: errors.New("quota")})
	if _, err := failing.Publish(ctx, ReportRequest{Kind: "monthly"}); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestReportService_Filters(t *testing.T) {
	svc, _ := newTestService(&fakeSource{snap: marchSnapshot()}, nil)

	opts, err := svc.Filters(context.Background())
	if err != nil {
		t.Fatalf("Filters() error = %v", err)
	}
	if len(opts.Users) != 1 || opts.Users[0].ID != "u1" {
		t.Fatalf("users = %+v", opts.Users)
	}
	if strings.Join(opts.Categories, ",") != "Food,Housing" {
		t.Fatalf("categories = %v", opts.Categories)
	}
}

func TestReportService_MemorySource(t *testing.T) {
	store := memory.New(marchSnapshot())
	svc := NewReportService(store, ReportConfig{Location: time.UTC})
	svc.now = func() time.Time { return fixedNow }

	rep, err := svc.Generate(context.Background(), ReportRequest{Kind: "yearly"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if rep.Result.TotalExpenseCount != 3 {
		t.Fatalf("yearly expenses = %d, want 3", rep.Result.TotalExpenseCount)
	}
	if n := svc.Invalidate(context.Background(), "test"); n != 0 {
		t.Fatalf("Invalidate() without cache = %d", n)
	}
}
