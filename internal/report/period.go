// Package report is the financial report aggregation engine.
//
// It resolves a reporting period, filters expense and income records,
// aggregates totals by category and user, and derives chart and export
// views from the result. Everything in this package is a pure function of
// its inputs and safe to call concurrently.
package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"finreport/internal/core"
)

const (
	Monthly   Kind = "monthly"
	Quarterly Kind = "quarterly"
	Yearly    Kind = "yearly"
	Custom    Kind = "custom"
)

type (
	Kind string

	// Range is an explicit inclusive date range in YYYY-MM-DD form.
	Range struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}

	// Period is the inclusive [Start, End] window a report covers.
	Period struct {
		Kind  Kind      `json:"kind"`
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
		Title string    `json:"title"`
	}
)

var (
	ErrInvalidRange   = errors.New("invalid range")
	ErrInvalidPeriod  = errors.New("invalid period kind")
	ErrInvalidScope   = errors.New("invalid scope")
	ErrInvalidRequest = errors.New("invalid report request")
)

// Kinds lists every supported period kind.
func Kinds() []Kind {
	return []Kind{Monthly, Quarterly, Yearly, Custom}
}

// IsValid reports whether k is a supported period kind.
func (k Kind) IsValid() bool {
	return slices.Contains(Kinds(), k)
}

// Resolve turns a period kind into a concrete window on now's calendar.
// The explicit range is only consulted for Custom.
func Resolve(kind Kind, explicit Range, now time.Time) (Period, error) {
	loc := now.Location()
	year, month, _ := now.Date()

	switch kind {
	case Monthly:
		start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return Period{
			Kind:  kind,
			Start: start,
			End:   lastInstant(start.AddDate(0, 1, 0)),
			Title: fmt.Sprintf("Monthly Financial Report: %s %d", month, year),
		}, nil

	case Quarterly:
		quarter := (int(month) - 1) / 3
		start := time.Date(year, time.Month(quarter*3+1), 1, 0, 0, 0, 0, loc)
		return Period{
			Kind:  kind,
			Start: start,
			End:   lastInstant(start.AddDate(0, 3, 0)),
			Title: fmt.Sprintf("Quarterly Financial Report: Q%d %d", quarter+1, year),
		}, nil

	case Yearly:
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return Period{
			Kind:  kind,
			Start: start,
			End:   lastInstant(start.AddDate(1, 0, 0)),
			Title: fmt.Sprintf("Yearly Financial Report: %d", year),
		}, nil

	case Custom:
		if strings.TrimSpace(explicit.StartDate) == "" || strings.TrimSpace(explicit.EndDate) == "" {
			return Period{}, fmt.Errorf("%w: custom period needs both start and end dates", ErrInvalidRange)
		}
		from, err := core.ParseDate(explicit.StartDate, loc)
		if err != nil {
			return Period{}, fmt.Errorf("%w: start date %q", ErrInvalidRange, explicit.StartDate)
		}
		to, err := core.ParseDate(explicit.EndDate, loc)
		if err != nil {
			return Period{}, fmt.Errorf("%w: end date %q", ErrInvalidRange, explicit.EndDate)
		}
		if from.After(to.Time) {
			return Period{}, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidRange, explicit.StartDate, explicit.EndDate)
		}
		return Period{
			Kind:  kind,
			Start: from.Time,
			// End of day: the whole end date is part of the window.
			End:   lastInstant(to.Time.AddDate(0, 0, 1)),
			Title: fmt.Sprintf("Custom Financial Report: %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02")),
		}, nil
	}

	return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, kind)
}

// Contains reports whether t falls inside the window, both ends inclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Location is the calendar the window was resolved on.
func (p Period) Location() *time.Location {
	if p.Start.IsZero() {
		return time.Local
	}
	return p.Start.Location()
}

func lastInstant(nextStart time.Time) time.Time {
	return nextStart.Add(-time.Nanosecond)
}
