package report

import (
	"finreport/internal/core"
)

const (
	// ScopeAdmin aggregates every user's records and groups expenses by user.
	ScopeAdmin Scope = "admin"
	// ScopeUser aggregates a single user's records.
	ScopeUser Scope = "user"
)

type (
	Scope string

	// CategoryTotal is the expense count and amount of one category.
	CategoryTotal struct {
		Name   string     `json:"name"`
		Count  int        `json:"count"`
		Amount core.Money `json:"amount"`
	}

	// UserTotal is the expense count and amount attributed to one user.
	UserTotal struct {
		UserID   string     `json:"userId"`
		UserName string     `json:"userName"`
		Count    int        `json:"count"`
		Amount   core.Money `json:"amount"`
	}

	// Result is the outcome of one report generation. Groupings keep the
	// order in which their keys were first seen.
	Result struct {
		Title              string               `json:"title"`
		Period             Period               `json:"period"`
		Scope              Scope                `json:"scope"`
		TotalExpenseCount  int                  `json:"totalExpenseCount"`
		TotalExpenseAmount core.Money           `json:"totalExpenseAmount"`
		TotalIncomeCount   int                  `json:"totalIncomeCount"`
		TotalIncomeAmount  core.Money           `json:"totalIncomeAmount"`
		Balance            core.Money           `json:"balance"`
		GroupedByCategory  []CategoryTotal      `json:"groupedByCategory"`
		GroupedByUser      []UserTotal          `json:"groupedByUser,omitempty"`
		Expenses           []core.ExpenseRecord `json:"expenses"`
		Incomes            []core.IncomeRecord  `json:"incomes"`
	}
)

// IsValid reports whether s is a supported scope.
func (s Scope) IsValid() bool {
	return s == ScopeAdmin || s == ScopeUser
}

// Aggregate folds already filtered records into a Result. Missing amounts
// contribute zero and negative expense amounts are clamped to zero, so the
// category totals always reconcile with the overall expense total.
func Aggregate(expenses []core.ExpenseRecord, incomes []core.IncomeRecord, scope Scope) Result {
	res := Result{
		Scope:             scope,
		GroupedByCategory: []CategoryTotal{},
		Expenses:          expenses,
		Incomes:           incomes,
	}
	if res.Expenses == nil {
		res.Expenses = []core.ExpenseRecord{}
	}
	if res.Incomes == nil {
		res.Incomes = []core.IncomeRecord{}
	}

	catIdx := map[string]int{}
	userIdx := map[string]int{}
	if scope == ScopeAdmin {
		res.GroupedByUser = []UserTotal{}
	}

	for _, e := range expenses {
		amount := e.Amount.Value().NonNegative()

		res.TotalExpenseCount++
		res.TotalExpenseAmount = res.TotalExpenseAmount.Add(amount)

		name := e.CategoryName()
		i, ok := catIdx[name]
		if !ok {
			i = len(res.GroupedByCategory)
			catIdx[name] = i
			res.GroupedByCategory = append(res.GroupedByCategory, CategoryTotal{Name: name})
		}
		res.GroupedByCategory[i].Count++
		res.GroupedByCategory[i].Amount = res.GroupedByCategory[i].Amount.Add(amount)

		if scope != ScopeAdmin {
			continue
		}
		id, ok := e.UserID()
		if !ok {
			continue
		}
		j, seen := userIdx[id]
		if !seen {
			j = len(res.GroupedByUser)
			userIdx[id] = j
			res.GroupedByUser = append(res.GroupedByUser, UserTotal{UserID: id, UserName: e.User.DisplayName()})
		}
		res.GroupedByUser[j].Count++
		res.GroupedByUser[j].Amount = res.GroupedByUser[j].Amount.Add(amount)
	}

	for _, in := range incomes {
		res.TotalIncomeCount++
		res.TotalIncomeAmount = res.TotalIncomeAmount.Add(in.Amount.Value())
	}

	res.Balance = res.TotalIncomeAmount.Sub(res.TotalExpenseAmount)
	return res
}

// Empty reports whether the report covers no records at all.
func (r Result) Empty() bool {
	return r.TotalExpenseCount == 0 && r.TotalIncomeCount == 0
}

// Deficit reports whether expenses exceed income.
func (r Result) Deficit() bool {
	return r.Balance.Cents < 0
}
