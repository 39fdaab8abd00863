package render

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"finreport/internal/report"
)

const (
	SummarySheet  = "Summary"
	ExpensesSheet = "Expenses"

	headerFill = "#2C3E50"
	titleColor = "#2C3E50"
)

// amountColumn is the zero-based position of Amount in the CSV columns.
var amountColumn = func() int {
	for i, c := range report.CSVColumns {
		if c == "Amount" {
			return i
		}
	}
	return -1
}()

// Workbook builds a two-sheet spreadsheet: the outline on Summary and one
// row per expense on Expenses.
func Workbook(t report.CSVTable, o report.Outline) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ExpensesSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16, Color: titleColor},
	})
	if err != nil {
		return nil, fmt.Errorf("title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("label style: %w", err)
	}

	if err := writeSummary(f, o, titleStyle, headerStyle, labelStyle); err != nil {
		return nil, err
	}
	if err := writeExpenses(f, t, headerStyle); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, o report.Outline, titleStyle, headerStyle, labelStyle int) error {
	sheet := SummarySheet
	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}

	if err := f.MergeCell(sheet, "A1", "D1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	if err := set(1, 1, o.Title); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", titleStyle); err != nil {
		return fmt.Errorf("style title: %w", err)
	}

	row := 3
	for _, s := range o.Sections {
		if s.Kind == report.SectionHeader {
			// Title already written; the header fields follow it directly.
			for _, fld := range s.Fields {
				if err := set(1, row, fld.Label); err != nil {
					return err
				}
				if err := set(2, row, fld.Value); err != nil {
					return err
				}
				row++
			}
			row++
			continue
		}

		if err := set(1, row, s.Heading); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellStyle(sheet, cell, cell, labelStyle); err != nil {
			return err
		}
		row++

		for _, fld := range s.Fields {
			if err := set(1, row, fld.Label); err != nil {
				return err
			}
			if err := set(2, row, fld.Value); err != nil {
				return err
			}
			row++
		}
		if s.Text != "" {
			if err := set(1, row, s.Text); err != nil {
				return err
			}
			row++
		}
		if s.Table != nil {
			for i, c := range s.Table.Columns {
				if err := set(i+1, row, c); err != nil {
					return err
				}
			}
			from, _ := excelize.CoordinatesToCellName(1, row)
			to, _ := excelize.CoordinatesToCellName(len(s.Table.Columns), row)
			if err := f.SetCellStyle(sheet, from, to, headerStyle); err != nil {
				return err
			}
			row++
			for _, r := range s.Table.Rows {
				for i, v := range r {
					if err := set(i+1, row, v); err != nil {
						return err
					}
				}
				row++
			}
		}
		row++
	}

	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "D", 18)
}

func writeExpenses(f *excelize.File, t report.CSVTable, headerStyle int) error {
	sheet := ExpensesSheet
	if err := f.SetSheetRow(sheet, "A1", &t.Header); err != nil {
		return fmt.Errorf("write expense header: %w", err)
	}
	if len(t.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for i, r := range t.Rows {
		values := make([]any, len(r))
		for j, v := range r {
			values[j] = v
			if j == amountColumn {
				// Numeric cells so the sheet can sum them.
				if d, err := decimal.NewFromString(v); err == nil {
					values[j] = d.InexactFloat64()
				}
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write expense row %d: %w", i+1, err)
		}
	}

	return f.SetColWidth(sheet, "A", "H", 18)
}
