package report

import (
	"fmt"
	"strings"
	"time"

	"finreport/internal/core"
)

type (
	// Request describes the report a caller wants.
	Request struct {
		Kind                   Kind   `json:"kind"`
		Range                  Range  `json:"range"`
		UserID                 string `json:"userId"`
		Category               string `json:"category"`
		Scope                  Scope  `json:"scope"`
		RequireCompletedIncome bool   `json:"requireCompletedIncome"`
		Description            string `json:"description,omitempty"`
	}

	// Report is a generated result together with the inputs the derived
	// views need.
	Report struct {
		Request     Request       `json:"request"`
		Result      Result        `json:"result"`
		User        *core.UserRef `json:"user,omitempty"`
		GeneratedAt time.Time     `json:"generatedAt"`
	}
)

// Normalize fills defaults: admin scope, "all" filters, lowercase kind.
// User scope always requires completed income.
func (r Request) Normalize() Request {
	r.Kind = Kind(strings.ToLower(strings.TrimSpace(string(r.Kind))))
	r.Scope = Scope(strings.ToLower(strings.TrimSpace(string(r.Scope))))
	if r.Scope == "" {
		r.Scope = ScopeAdmin
	}
	r.UserID = strings.TrimSpace(r.UserID)
	if isAll(r.UserID) {
		r.UserID = AllFilter
	}
	r.Category = strings.TrimSpace(r.Category)
	if isAll(r.Category) {
		r.Category = AllFilter
	}
	if r.Scope == ScopeUser {
		r.RequireCompletedIncome = true
	}
	r.Description = strings.TrimSpace(r.Description)
	return r
}

// Validate checks the request without resolving dates.
func (r Request) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, r.Kind)
	}
	if !r.Scope.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidScope, r.Scope)
	}
	if r.Scope == ScopeUser && isAll(r.UserID) {
		return fmt.Errorf("%w: user scope needs a user id", ErrInvalidScope)
	}
	return nil
}

// Predicates turns the request into the filter set for a given window.
func (r Request) Predicates(window Period) Predicates {
	return Predicates{
		Window:                 window,
		UserID:                 r.UserID,
		Category:               r.Category,
		RequireCompletedIncome: r.RequireCompletedIncome,
	}
}

// Generate runs the whole pipeline: resolve the period, filter the
// snapshot and aggregate. Request errors are returned before any
// aggregation happens; an empty snapshot is not an error.
func Generate(req Request, snap core.Snapshot, now time.Time) (Report, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Report{}, err
	}
	period, err := Resolve(req.Kind, req.Range, now)
	if err != nil {
		return Report{}, err
	}

	p := req.Predicates(period)
	res := Aggregate(FilterExpenses(snap.Expenses, p), FilterIncomes(snap.Incomes, p), req.Scope)
	res.Title = period.Title
	res.Period = period

	rep := Report{Request: req, Result: res, GeneratedAt: now}
	if !isAll(req.UserID) {
		if u, ok := snap.FindUser(req.UserID); ok {
			rep.User = &u
		}
	}
	return rep, nil
}

// Chart derives the chart series.
func (r Report) Chart() Chart {
	return ToChartSeries(r.Result)
}

// CSV derives the export rows.
func (r Report) CSV() CSVTable {
	return ToCSVRows(r.Result)
}

// Outline derives the printable document structure.
func (r Report) Outline() Outline {
	return ToDocumentOutline(r.Result, OutlineOptions{
		GeneratedAt: r.GeneratedAt,
		Description: r.Request.Description,
		User:        r.User,
	})
}
