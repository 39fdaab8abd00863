package report

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"finreport/internal/core"
)

// Palette holds the fixed category colors, assigned by insertion index.
var Palette = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF",
	"#FF9F40", "#C9CBCF", "#7BC043", "#F37736", "#0392CF",
	"#EE4035", "#A0522D", "#8E44AD", "#16A085", "#D35400",
	"#2C3E50",
}

// Comparison series colors.
const (
	IncomeColor  = "#4CAF50"
	ExpenseColor = "#F44336"
	SurplusColor = "#2196F3"
	DeficitColor = "#FF9800"
)

// Comparison series labels.
const (
	IncomeLabel  = "Income"
	ExpenseLabel = "Expenses"
	BalanceLabel = "Balance"
)

type (
	// Slice is one data point of a chart series.
	Slice struct {
		Label   string     `json:"label"`
		Value   core.Money `json:"value"`
		Color   string     `json:"color"`
		Percent float64    `json:"percent"`
	}

	// Chart holds the two series a report dashboard draws.
	Chart struct {
		CategorySeries   []Slice `json:"categorySeries"`
		ComparisonSeries []Slice `json:"comparisonSeries"`
		CategoryEmpty    bool    `json:"categoryEmpty"`
		ComparisonEmpty  bool    `json:"comparisonEmpty"`
	}
)

// ToChartSeries maps a result to chart series. Category slices carry their
// share of the category total; the comparison series always has the
// Income, Expenses and Balance slots in that order.
func ToChartSeries(r Result) Chart {
	var total core.Money
	for _, c := range r.GroupedByCategory {
		total = total.Add(c.Amount)
	}

	colors := Colors(len(r.GroupedByCategory))
	series := make([]Slice, 0, len(r.GroupedByCategory))
	for i, c := range r.GroupedByCategory {
		series = append(series, Slice{
			Label:   c.Name,
			Value:   c.Amount,
			Color:   colors[i],
			Percent: Percent(c.Amount, total),
		})
	}

	balanceColor := SurplusColor
	if r.Deficit() {
		balanceColor = DeficitColor
	}
	grand := r.TotalIncomeAmount.Add(r.TotalExpenseAmount)
	comparison := []Slice{
		{Label: IncomeLabel, Value: r.TotalIncomeAmount, Color: IncomeColor, Percent: Percent(r.TotalIncomeAmount, grand)},
		{Label: ExpenseLabel, Value: r.TotalExpenseAmount, Color: ExpenseColor, Percent: Percent(r.TotalExpenseAmount, grand)},
		{Label: BalanceLabel, Value: r.Balance, Color: balanceColor},
	}

	return Chart{
		CategorySeries:   series,
		ComparisonSeries: comparison,
		CategoryEmpty:    len(series) == 0 || total.IsZero(),
		ComparisonEmpty:  grand.IsZero(),
	}
}

// Percent returns part as a percentage of total, rounded to two decimals.
// A zero total yields zero.
func Percent(part, total core.Money) float64 {
	if total.Cents == 0 {
		return 0
	}
	f, _ := part.Decimal().Mul(hundred).Div(total.Decimal()).Round(2).Float64()
	return f
}

// Colors returns n distinct colors. The first len(Palette) come from the
// palette; the rest are drawn from a PRNG seeded with the slice index and
// redrawn until unused, so the assignment is stable across calls.
func Colors(n int) []string {
	out := make([]string, 0, n)
	used := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		var c string
		if i < len(Palette) {
			c = Palette[i]
		} else {
			rng := rand.New(rand.NewPCG(uint64(i), colorSeed))
			for {
				c = fmt.Sprintf("#%02X%02X%02X", rng.IntN(256), rng.IntN(256), rng.IntN(256))
				if _, taken := used[c]; !taken {
					break
				}
			}
		}
		used[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

const colorSeed = 0x9E3779B97F4A7C15

var hundred = decimal.NewFromInt(100)
