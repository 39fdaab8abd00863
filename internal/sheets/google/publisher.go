package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "finreport/internal/log"
	"finreport/internal/report"
)

var (
	ErrMissingSpreadsheetID = errors.New("missing Google spreadsheet ID")
	ErrMissingCredentials   = errors.New("missing service account credentials")
)

// Options configures a Publisher. One of CredentialsJSON or CredentialsFile
// is required.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// PublishResult describes the range written by Publish.
type PublishResult struct {
	SpreadsheetID string `json:"spreadsheetId"`
	UpdatedRange  string `json:"updatedRange"`
	UpdatedRows   int64  `json:"updatedRows"`
}

// Publisher replaces the contents of one sheet tab with a report's rows.
type Publisher struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewPublisher creates a publisher authenticated with a service account.
func NewPublisher(ctx context.Context, opts Options) (*Publisher, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, ErrMissingSpreadsheetID
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Report"
	}

	credentials, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets publisher ready",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldSpreadsheetID, spreadsheetID,
		"sheet", sheetName)

	return newPublisher(svc, spreadsheetID, sheetName), nil
}

func newPublisher(svc *gsheet.Service, spreadsheetID, sheetName string) *Publisher {
	return &Publisher{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func loadCredentials(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		return []byte(opts.CredentialsJSON), nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, ErrMissingCredentials
	}
}

// Publish clears the sheet tab and writes the table starting at A1.
func (p *Publisher) Publish(ctx context.Context, table report.CSVTable) (PublishResult, error) {
	if p.svc == nil {
		return PublishResult{}, errors.New("sheets service not initialized")
	}

	clearRange := quoteSheet(p.sheetName)
	_, err := p.svc.Spreadsheets.Values.Clear(p.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return PublishResult{}, fmt.Errorf("clear sheet %s: %w", p.sheetName, err)
	}

	vr := &gsheet.ValueRange{Values: tableValues(table)}
	resp, err := p.svc.Spreadsheets.Values.Update(p.spreadsheetID, clearRange+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return PublishResult{}, fmt.Errorf("update sheet %s: %w", p.sheetName, err)
	}

	slog.InfoContext(ctx, "Published report to Google Sheets",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldSpreadsheetID, p.spreadsheetID,
		"range", resp.UpdatedRange,
		"rows", resp.UpdatedRows)

	return PublishResult{
		SpreadsheetID: p.spreadsheetID,
		UpdatedRange:  resp.UpdatedRange,
		UpdatedRows:   resp.UpdatedRows,
	}, nil
}

// tableValues lays out the header followed by the data rows.
func tableValues(table report.CSVTable) [][]interface{} {
	values := make([][]interface{}, 0, len(table.Rows)+1)
	values = append(values, toInterfaces(table.Header))
	for _, row := range table.Rows {
		values = append(values, toInterfaces(row))
	}
	return values
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// quoteSheet wraps a tab name in single quotes for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
