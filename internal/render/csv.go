package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"finreport/internal/report"
)

// WriteCSV writes the header and rows. Fields holding commas, quotes or
// line breaks are quoted with embedded quotes doubled.
func WriteCSV(w io.Writer, t report.CSVTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

func CSVBytes(t report.CSVTable) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
