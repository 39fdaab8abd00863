package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"finreport/internal/report"
)

const (
	fontRegular = "GoRegular"
	fontBold    = "GoBold"

	pageWidth    = 595.0
	pageHeight   = 842.0
	margin       = 40.0
	contentWidth = pageWidth - 2*margin
	lineHeight   = 16.0
	bottomLimit  = pageHeight - margin
)

type pdfWriter struct {
	pdf *gopdf.GoPdf
	y   float64
}

// Document renders the outline as an A4 PDF.
func Document(o report.Outline) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	if err := pdf.AddTTFFontData(fontRegular, goregular.TTF); err != nil {
		return nil, fmt.Errorf("load regular font: %w", err)
	}
	if err := pdf.AddTTFFontData(fontBold, gobold.TTF); err != nil {
		return nil, fmt.Errorf("load bold font: %w", err)
	}

	w := &pdfWriter{pdf: pdf}
	w.newPage()

	for _, s := range o.Sections {
		var err error
		switch s.Kind {
		case report.SectionHeader:
			err = w.header(s)
		case report.SectionCategoryBreakdown:
			err = w.table(s)
		default:
			err = w.block(s)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s section: %w", s.Kind, err)
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *pdfWriter) newPage() {
	w.pdf.AddPage()
	w.y = margin
}

func (w *pdfWriter) ensure(height float64) {
	if w.y+height > bottomLimit {
		w.newPage()
	}
}

func (w *pdfWriter) text(x float64, font string, size float64, s string) error {
	if err := w.pdf.SetFont(font, "", size); err != nil {
		return err
	}
	w.pdf.SetX(x)
	w.pdf.SetY(w.y)
	return w.pdf.Cell(nil, s)
}

func (w *pdfWriter) header(s report.Section) error {
	w.pdf.SetFillColor(44, 62, 80)
	w.pdf.RectFromUpperLeftWithStyle(0, 0, pageWidth, 100, "F")

	w.pdf.SetTextColor(255, 255, 255)
	w.y = 30
	if err := w.text(margin, fontBold, 20, s.Heading); err != nil {
		return err
	}
	w.y = 62
	for _, f := range s.Fields {
		if err := w.text(margin, fontRegular, 10, f.Label+": "+f.Value); err != nil {
			return err
		}
		w.y += 14
	}
	w.pdf.SetTextColor(45, 52, 54)
	w.y = 120
	return nil
}

func (w *pdfWriter) heading(s string) error {
	w.ensure(2 * lineHeight)
	if err := w.text(margin, fontBold, 14, s); err != nil {
		return err
	}
	w.y += lineHeight + 6
	return nil
}

func (w *pdfWriter) block(s report.Section) error {
	if err := w.heading(s.Heading); err != nil {
		return err
	}
	for _, f := range s.Fields {
		w.ensure(lineHeight)
		if err := w.text(margin, fontRegular, 11, f.Label); err != nil {
			return err
		}
		if err := w.text(margin+160, fontBold, 11, f.Value); err != nil {
			return err
		}
		w.y += lineHeight
	}
	if strings.TrimSpace(s.Text) != "" {
		if err := w.pdf.SetFont(fontRegular, "", 10); err != nil {
			return err
		}
		for _, para := range strings.Split(s.Text, "\n") {
			if strings.TrimSpace(para) == "" {
				w.y += lineHeight
				continue
			}
			lines, err := w.pdf.SplitText(para, contentWidth)
			if err != nil {
				return err
			}
			for _, line := range lines {
				w.ensure(lineHeight)
				if err := w.text(margin, fontRegular, 10, line); err != nil {
					return err
				}
				w.y += lineHeight - 2
			}
		}
	}
	w.y += lineHeight
	return nil
}

func (w *pdfWriter) table(s report.Section) error {
	if err := w.heading(s.Heading); err != nil {
		return err
	}
	if s.Table == nil || len(s.Table.Columns) == 0 {
		return nil
	}
	colWidth := contentWidth / float64(len(s.Table.Columns))

	row := func(cells []string, font string) error {
		w.ensure(lineHeight)
		for i, c := range cells {
			if err := w.text(margin+float64(i)*colWidth, font, 10, c); err != nil {
				return err
			}
		}
		w.y += lineHeight
		return nil
	}

	w.ensure(lineHeight)
	w.pdf.SetFillColor(236, 240, 241)
	w.pdf.RectFromUpperLeftWithStyle(margin-4, w.y-3, contentWidth+8, lineHeight, "F")
	if err := row(s.Table.Columns, fontBold); err != nil {
		return err
	}
	for _, r := range s.Table.Rows {
		if err := row(r, fontRegular); err != nil {
			return err
		}
	}
	w.y += lineHeight
	return nil
}
