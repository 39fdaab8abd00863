package report

import (
	"strings"

	"finreport/internal/core"
)

// AllFilter disables a user or category predicate.
const AllFilter = "all"

// Predicates is the set of conditions a record must satisfy to enter a
// report. All active predicates are combined with AND.
type Predicates struct {
	Window                 Period
	UserID                 string
	Category               string
	RequireCompletedIncome bool
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, AllFilter)
}

// MatchExpense reports whether e passes every active predicate. Records
// without a usable timestamp never match.
func (p Predicates) MatchExpense(e core.ExpenseRecord) bool {
	t, ok := e.EffectiveTime(p.Window.Location())
	if !ok || !p.Window.Contains(t) {
		return false
	}
	if !isAll(p.UserID) {
		id, ok := e.UserID()
		if !ok || id != strings.TrimSpace(p.UserID) {
			return false
		}
	}
	if !isAll(p.Category) && e.CategoryName() != strings.TrimSpace(p.Category) {
		return false
	}
	return true
}

// MatchIncome reports whether i passes every active predicate. Incomes
// carry no category, so the category predicate does not apply.
func (p Predicates) MatchIncome(i core.IncomeRecord) bool {
	t, ok := i.EffectiveTime(p.Window.Location())
	if !ok || !p.Window.Contains(t) {
		return false
	}
	if !isAll(p.UserID) {
		id, ok := i.UserID()
		if !ok || id != strings.TrimSpace(p.UserID) {
			return false
		}
	}
	if p.RequireCompletedIncome && !i.Completed() {
		return false
	}
	return true
}

// FilterExpenses returns the expenses matching p, preserving input order.
// The input slice is not modified.
func FilterExpenses(records []core.ExpenseRecord, p Predicates) []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, 0, len(records))
	for _, e := range records {
		if p.MatchExpense(e) {
			out = append(out, e)
		}
	}
	return out
}

// FilterIncomes returns the incomes matching p, preserving input order.
func FilterIncomes(records []core.IncomeRecord, p Predicates) []core.IncomeRecord {
	out := make([]core.IncomeRecord, 0, len(records))
	for _, i := range records {
		if p.MatchIncome(i) {
			out = append(out, i)
		}
	}
	return out
}
