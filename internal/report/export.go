package report

import (
	"strconv"
	"strings"
	"time"

	"finreport/internal/core"
)

// CSVColumns is the fixed column order of the expense export.
var CSVColumns = []string{"Title", "User", "Category", "Subcategory", "Amount", "Date", "Vendor", "Description"}

// Outline section kinds, in document order.
const (
	SectionHeader            SectionKind = "header"
	SectionSummary           SectionKind = "summary"
	SectionDescription       SectionKind = "description"
	SectionUserInfo          SectionKind = "user_info"
	SectionCategoryBreakdown SectionKind = "category_breakdown"
	SectionFooter            SectionKind = "footer"
)

// Disclaimer closes every exported document.
const Disclaimer = "This report was generated automatically from the recorded transactions. " +
	"Figures reflect the data available at generation time and are not an official statement."

type (
	// CSVTable is the logical record set behind a CSV export. Values are
	// unescaped; writers apply the quoting rules of their format.
	CSVTable struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	}

	SectionKind string

	Field struct {
		Label string `json:"label"`
		Value string `json:"value"`
	}

	Table struct {
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}

	// Section is one block of a printable document. Only the parts relevant
	// to the section kind are set.
	Section struct {
		Kind    SectionKind `json:"kind"`
		Heading string      `json:"heading"`
		Fields  []Field     `json:"fields,omitempty"`
		Text    string      `json:"text,omitempty"`
		Table   *Table      `json:"table,omitempty"`
	}

	Outline struct {
		Title    string    `json:"title"`
		Sections []Section `json:"sections"`
	}

	// OutlineOptions carries the data the outline needs beyond the result.
	OutlineOptions struct {
		GeneratedAt time.Time
		Description string
		User        *core.UserRef
	}
)

// ToCSVRows flattens the filtered expenses into export rows. Negative
// amounts are shown as 0.00, the value they contribute to the totals.
func ToCSVRows(r Result) CSVTable {
	loc := r.Period.Location()
	rows := make([][]string, 0, len(r.Expenses))
	for _, e := range r.Expenses {
		user := core.AutoGeneratedLabel
		if e.User != nil {
			user = orNA(e.User.DisplayName())
		}
		subcategory := core.NotAvailableLabel
		if e.Subcategory != nil {
			subcategory = orNA(e.Subcategory.Name)
		}
		vendor := core.NotAvailableLabel
		if e.Vendor != nil {
			vendor = orNA(e.Vendor.Name)
		}
		amount := core.NotAvailableLabel
		if e.Amount.Present {
			// Same clamping as the totals, so the rows add up.
			amount = e.Amount.Money.NonNegative().String()
		}
		date := core.NotAvailableLabel
		if t, ok := e.EffectiveTime(loc); ok {
			date = t.Format("2006-01-02")
		}
		rows = append(rows, []string{
			orNA(e.Title),
			user,
			e.CategoryName(),
			subcategory,
			amount,
			date,
			vendor,
			orNA(e.Description),
		})
	}
	return CSVTable{Header: append([]string(nil), CSVColumns...), Rows: rows}
}

// ToDocumentOutline builds the printable structure of a report. Sections
// without backing data are left out entirely.
func ToDocumentOutline(r Result, opts OutlineOptions) Outline {
	generated := opts.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	sections := []Section{
		{
			Kind:    SectionHeader,
			Heading: r.Title,
			Fields: []Field{
				{Label: "Generated", Value: generated.Format("2006-01-02 15:04:05")},
				{Label: "Period", Value: r.Period.Start.Format("2006-01-02") + " to " + r.Period.End.Format("2006-01-02")},
			},
		},
		{
			Kind:    SectionSummary,
			Heading: "Summary",
			Fields: []Field{
				{Label: "Total Income", Value: r.TotalIncomeAmount.String()},
				{Label: "Total Expenses", Value: r.TotalExpenseAmount.String()},
				{Label: "Balance", Value: r.Balance.String()},
			},
		},
	}

	if desc := strings.TrimSpace(opts.Description); desc != "" {
		sections = append(sections, Section{Kind: SectionDescription, Heading: "Description", Text: desc})
	}

	if opts.User != nil && strings.TrimSpace(opts.User.ID) != "" {
		fields := []Field{{Label: "Name", Value: opts.User.DisplayName()}}
		if opts.User.Email != "" {
			fields = append(fields, Field{Label: "Email", Value: opts.User.Email})
		}
		if opts.User.Role != "" {
			fields = append(fields, Field{Label: "Role", Value: opts.User.Role})
		}
		sections = append(sections, Section{Kind: SectionUserInfo, Heading: "User Information", Fields: fields})
	}

	if len(r.GroupedByCategory) > 0 {
		table := &Table{Columns: []string{"Category", "Count", "Amount", "Share"}}
		for _, c := range r.GroupedByCategory {
			table.Rows = append(table.Rows, []string{
				c.Name,
				strconv.Itoa(c.Count),
				c.Amount.String(),
				strconv.FormatFloat(Percent(c.Amount, r.TotalExpenseAmount), 'f', 2, 64) + "%",
			})
		}
		sections = append(sections, Section{Kind: SectionCategoryBreakdown, Heading: "Expenses by Category", Table: table})
	}

	sections = append(sections, Section{Kind: SectionFooter, Heading: "Disclaimer", Text: Disclaimer})

	return Outline{Title: r.Title, Sections: sections}
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return core.NotAvailableLabel
	}
	return v
}
