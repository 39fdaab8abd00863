package render

import (
	"bytes"
	"encoding/csv"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"finreport/internal/core"
	"finreport/internal/report"
)

func sampleReport(t *testing.T) report.Report {
	t.Helper()
	snap := core.Snapshot{
		Expenses: []core.ExpenseRecord{
			{
				ID:              "1",
				Title:           `Dinner, "fancy"`,
				Amount:          core.Some(4250),
				Category:        &core.CategoryRef{Name: "Food"},
				User:            &core.UserRef{ID: "u1", FirstName: "Ada", LastName: "Lovelace"},
				TransactionDate: "2024-03-05T19:00:00Z",
				Description:     "two\nlines",
			},
			{ID: "2", Title: "Bus", Amount: core.Some(300), TransactionDate: "2024-03-06"},
		},
		Incomes: []core.IncomeRecord{{ID: "i1", Amount: core.Some(100000), Status: core.StatusCompleted, TransactionDate: "2024-03-01"}},
	}
	rep, err := report.Generate(report.Request{Kind: report.Monthly, Description: "March budget review"}, snap, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return rep
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", CSV, false},
		{"csv", CSV, false},
		{"XLSX", XLSX, false},
		{" pdf ", PDF, false},
		{"docx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.err {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("ParseFormat(%q) error = %v, want ErrUnknownFormat", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := PDF.Filename("Monthly Financial Report: March 2024"); got != "monthly-financial-report-march-2024.pdf" {
		t.Fatalf("Filename() = %q", got)
	}
	if got := CSV.Filename(" :: "); got != "report.csv" {
		t.Fatalf("Filename() = %q", got)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	rep := sampleReport(t)
	table := rep.CSV()

	data, err := CSVBytes(table)
	if err != nil {
		t.Fatalf("CSVBytes() error = %v", err)
	}
	if !strings.Contains(string(data), `"Dinner, ""fancy"""`) {
		t.Fatalf("expected quoted title in %s", data)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("csv read error = %v", err)
	}
	want := append([][]string{table.Header}, table.Rows...)
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", records, want)
	}
}

func TestWorkbook(t *testing.T) {
	rep := sampleReport(t)
	data, err := Render(XLSX, rep)
	if err != nil {
		t.Fatalf("Render(xlsx) error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if title, _ := f.GetCellValue(SummarySheet, "A1"); title != rep.Result.Title {
		t.Fatalf("summary title = %q", title)
	}

	rows, err := f.GetRows(ExpensesSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if !reflect.DeepEqual(rows[0], report.CSVColumns) {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != `Dinner, "fancy"` || rows[1][1] != "Ada Lovelace" {
		t.Fatalf("first row = %v", rows[1])
	}
	if rows[2][2] != core.UncategorizedLabel {
		t.Fatalf("second row category = %q", rows[2][2])
	}
}

func TestDocument(t *testing.T) {
	rep := sampleReport(t)
	data, err := Render(PDF, rep)
	if err != nil {
		t.Fatalf("Render(pdf) error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestDocumentEmptyReport(t *testing.T) {
	rep, err := report.Generate(report.Request{Kind: report.Yearly}, core.Snapshot{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	data, err := Document(rep.Outline())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("empty pdf output")
	}
}
