package core

import (
	"sort"
)

// CategoryTotal is the sum and count of one category's transactions over a
// period, as read from the store.
type CategoryTotal struct {
	CategoryID string
	Name       string
	Icon       string
	Color      string
	IsIncome   bool
	Total      Money
	Count      int
}

// MonthlySummary is the income/expense overview of one month.
type MonthlySummary struct {
	Month            Date  `json:"month"`
	TotalIncome      Money `json:"total_income"`
	TotalExpenses    Money `json:"total_expenses"`
	Net              Money `json:"net"`
	TransactionCount int   `json:"transaction_count"`
}

// CategoryBreakdown is one category's share of the month's income or
// expenses.
type CategoryBreakdown struct {
	CategoryID       string  `json:"category_id"`
	CategoryName     string  `json:"category_name"`
	CategoryIcon     string  `json:"category_icon"`
	CategoryColor    string  `json:"category_color"`
	Total            Money   `json:"total"`
	Percentage       float64 `json:"percentage"`
	TransactionCount int     `json:"transaction_count"`
}

// TrendPoint is the expense total of one calendar day.
type TrendPoint struct {
	Date   Date  `json:"date"`
	Amount Money `json:"amount"`
}

// BuildMonthlySummary folds per-category totals into a month overview.
func BuildMonthlySummary(month Date, totals []CategoryTotal) MonthlySummary {
	s := MonthlySummary{Month: month.MonthStart()}
	for _, t := range totals {
		if t.IsIncome {
			s.TotalIncome = s.TotalIncome.Add(t.Total)
		} else {
			s.TotalExpenses = s.TotalExpenses.Add(t.Total)
		}
		s.TransactionCount += t.Count
	}
	s.Net = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// BuildCategoryBreakdown keeps the categories matching isIncome and computes
// each one's share of their combined total. The result is sorted by total,
// largest first, ties broken by name.
func BuildCategoryBreakdown(totals []CategoryTotal, isIncome bool) []CategoryBreakdown {
	var grand Money
	selected := make([]CategoryTotal, 0, len(totals))
	for _, t := range totals {
		if t.IsIncome != isIncome {
			continue
		}
		selected = append(selected, t)
		grand = grand.Add(t.Total)
	}

	out := make([]CategoryBreakdown, 0, len(selected))
	for _, t := range selected {
		out = append(out, CategoryBreakdown{
			CategoryID:       t.CategoryID,
			CategoryName:     t.Name,
			CategoryIcon:     t.Icon,
			CategoryColor:    t.Color,
			Total:            t.Total,
			Percentage:       Percent(t.Total, grand),
			TransactionCount: t.Count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out
}

// BuildSpendingTrend returns exactly days points ending at today, oldest
// first. daily is keyed by YYYY-MM-DD; days missing from it are zero.
func BuildSpendingTrend(today Date, days int, daily map[string]Money) []TrendPoint {
	if days <= 0 {
		return []TrendPoint{}
	}
	out := make([]TrendPoint, 0, days)
	start := today.AddDays(-(days - 1))
	for i := 0; i < days; i++ {
		d := start.AddDays(i)
		out = append(out, TrendPoint{Date: d, Amount: daily[d.String()]})
	}
	return out
}
