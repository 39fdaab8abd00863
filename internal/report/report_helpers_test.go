package report

import (
	"finreport/internal/core"
)

func expense(id string, cents int64, category string, userID string, ts string) core.ExpenseRecord {
	e := core.ExpenseRecord{
		ID:              id,
		Title:           "Expense " + id,
		Amount:          core.Some(cents),
		TransactionDate: ts,
	}
	if category != "" {
		e.Category = &core.CategoryRef{Name: category}
	}
	if userID != "" {
		e.User = &core.UserRef{ID: userID, FirstName: "User", LastName: userID}
	}
	return e
}

func income(id string, cents int64, userID string, status core.IncomeStatus, ts string) core.IncomeRecord {
	in := core.IncomeRecord{
		ID:              id,
		Amount:          core.Some(cents),
		Status:          status,
		TransactionDate: ts,
	}
	if userID != "" {
		in.User = &core.UserRef{ID: userID, FirstName: "User", LastName: userID}
	}
	return in
}

func sumCategories(r Result) (core.Money, int) {
	var total core.Money
	count := 0
	for _, c := range r.GroupedByCategory {
		total = total.Add(c.Amount)
		count += c.Count
	}
	return total, count
}

func categoryTotal(r Result, name string) (CategoryTotal, bool) {
	for _, c := range r.GroupedByCategory {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryTotal{}, false
}

func userTotal(r Result, id string) (UserTotal, bool) {
	for _, u := range r.GroupedByUser {
		if u.UserID == id {
			return u, true
		}
	}
	return UserTotal{}, false
}

func section(o Outline, kind SectionKind) (Section, bool) {
	for _, s := range o.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}
