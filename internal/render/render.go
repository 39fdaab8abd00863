// Package render turns report views into downloadable files.
package render

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"finreport/internal/report"
)

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

type Format string

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts csv, xlsx and pdf in any case. An empty value means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return CSV, nil
	case CSV, XLSX, PDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType is the MIME type served with the file.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename builds a download name from the report title.
func (f Format) Filename(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "report"
	}
	return name + "." + string(f)
}

// Render produces the file bytes for a generated report.
func Render(f Format, rep report.Report) ([]byte, error) {
	switch f {
	case CSV:
		return CSVBytes(rep.CSV())
	case XLSX:
		return Workbook(rep.CSV(), rep.Outline())
	case PDF:
		return Document(rep.Outline())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}
