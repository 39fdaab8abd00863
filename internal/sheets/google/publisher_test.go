package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finreport/internal/report"
)

func TestNewPublisher_Validation(t *testing.T) {
	ctx := context.Background()

	if _, err := NewPublisher(ctx, Options{CredentialsJSON: "{}"}); !errors.Is(err, ErrMissingSpreadsheetID) {
		t.Fatalf("missing id: err = %v", err)
	}
	if _, err := NewPublisher(ctx, Options{SpreadsheetID: "sheet"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("missing credentials: err = %v", err)
	}

	missing := filepath.Join(t.TempDir(), "nope.json")
	_, err := NewPublisher(ctx, Options{SpreadsheetID: "sheet", CredentialsFile: missing})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("missing file: err = %v", err)
	}
}

func TestTableValues(t *testing.T) {
	table := report.CSVTable{
		Header: []string{"Title", "Amount"},
		Rows:   [][]string{{"Rent", "350.00"}, {"Food", "150.00"}},
	}

	values := tableValues(table)
	if len(values) != 3 {
		t.Fatalf("len(values) = %d, want 3", len(values))
	}
	if values[0][0] != "Title" || values[2][1] != "150.00" {
		t.Fatalf("unexpected values: %v", values)
	}

	if got := tableValues(report.CSVTable{Header: []string{"Title"}}); len(got) != 1 {
		t.Fatalf("header only: len = %d, want 1", len(got))
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"Report":       "'Report'",
		"Q1 2024":      "'Q1 2024'",
		"Bob's report": "'Bob''s report'",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPublisher_Publish(t *testing.T) {
	var (
		mu      sync.Mutex
		cleared bool
		written [][]interface{}
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
			cleared = true
			w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
		case r.Method == http.MethodPut:
			if !cleared {
				t.Error("update issued before clear")
			}
			if got := r.URL.Query().Get("valueInputOption"); got != "RAW" {
				t.Errorf("valueInputOption = %q, want RAW", got)
			}
			var vr gsheet.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				t.Errorf("decode body: %v", err)
			}
			written = vr.Values
			w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedRange":"Report!A1:B2","updatedRows":2}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	p := newPublisher(svc, "sheet-1", "Report")
	res, err := p.Publish(context.Background(), report.CSVTable{
		Header: []string{"Title", "Amount"},
		Rows:   [][]string{{"Rent", "350.00"}},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.UpdatedRows != 2 || res.UpdatedRange != "Report!A1:B2" || res.SpreadsheetID != "sheet-1" {
		t.Fatalf("unexpected result: %+v", res)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(written) != 2 || written[1][0] != "Rent" {
		t.Fatalf("written values = %v", written)
	}
}

func TestPublisher_NoService(t *testing.T) {
	if _, err := (&Publisher{}).Publish(context.Background(), report.CSVTable{}); err == nil {
		t.Fatal("expected error without service")
	}
}
