package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTotals() []CategoryTotal {
	return []CategoryTotal{
		{CategoryID: "food", Name: "Food", Total: Money{Cents: 30000}, Count: 3},
		{CategoryID: "rent", Name: "Rent", Total: Money{Cents: 60000}, Count: 1},
		{CategoryID: "fun", Name: "Fun", Total: Money{Cents: 10000}, Count: 2},
		{CategoryID: "salary", Name: "Salary", IsIncome: true, Total: Money{Cents: 200000}, Count: 1},
		{CategoryID: "gift", Name: "Gift", IsIncome: true, Total: Money{Cents: 0}, Count: 0},
	}
}

func TestBuildMonthlySummary(t *testing.T) {
	s := BuildMonthlySummary(NewDate(2024, time.May, 20), sampleTotals())

	assert.Equal(t, "2024-05-01", s.Month.String())
	assert.Equal(t, int64(200000), s.TotalIncome.Cents)
	assert.Equal(t, int64(100000), s.TotalExpenses.Cents)
	assert.Equal(t, int64(100000), s.Net.Cents)
	assert.Equal(t, 7, s.TransactionCount)
}

func TestBuildMonthlySummaryEmpty(t *testing.T) {
	s := BuildMonthlySummary(NewDate(2024, time.May, 1), nil)
	assert.Zero(t, s.TotalIncome.Cents)
	assert.Zero(t, s.TotalExpenses.Cents)
	assert.Zero(t, s.Net.Cents)
	assert.Zero(t, s.TransactionCount)
}

func TestBuildCategoryBreakdown(t *testing.T) {
	totals := sampleTotals()
	out := BuildCategoryBreakdown(totals, false)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"rent", "food", "fun"}, []string{out[0].CategoryID, out[1].CategoryID, out[2].CategoryID})
	assert.Equal(t, 60.0, out[0].Percentage)
	assert.Equal(t, 30.0, out[1].Percentage)
	assert.Equal(t, 10.0, out[2].Percentage)

	// Totals of the breakdown add up to the summary total for the same flag.
	summary := BuildMonthlySummary(NewDate(2024, time.May, 1), totals)
	var sum int64
	for _, b := range out {
		sum += b.Total.Cents
	}
	assert.Equal(t, summary.TotalExpenses.Cents, sum)

	income := BuildCategoryBreakdown(totals, true)
	require.Len(t, income, 2)
	assert.Equal(t, "salary", income[0].CategoryID)
	assert.Equal(t, 100.0, income[0].Percentage)
	assert.Equal(t, 0.0, income[1].Percentage)
}

func TestBuildCategoryBreakdownZeroTotal(t *testing.T) {
	out := BuildCategoryBreakdown([]CategoryTotal{
		{CategoryID: "b", Name: "B"},
		{CategoryID: "a", Name: "A"},
	}, false)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].CategoryName, "ties are ordered by name")
	for _, b := range out {
		assert.Equal(t, 0.0, b.Percentage)
	}
}

func TestBuildSpendingTrend(t *testing.T) {
	today := NewDate(2024, time.March, 2)
	daily := map[string]Money{
		"2024-02-28": {Cents: 500},
		"2024-03-02": {Cents: 1200},
		"2024-01-01": {Cents: 9999},
	}

	out := BuildSpendingTrend(today, 5, daily)
	require.Len(t, out, 5)
	assert.Equal(t, "2024-02-27", out[0].Date.String())
	assert.Equal(t, "2024-03-02", out[4].Date.String())
	assert.Equal(t, int64(0), out[0].Amount.Cents)
	assert.Equal(t, int64(500), out[1].Amount.Cents)
	assert.Equal(t, int64(0), out[2].Amount.Cents, "leap day has no spending")
	assert.Equal(t, int64(1200), out[4].Amount.Cents)

	for i := 1; i < len(out); i++ {
		assert.True(t, out[i-1].Date.Before(out[i].Date), "points are oldest first")
	}

	assert.Len(t, BuildSpendingTrend(today, 1, nil), 1)
	assert.Empty(t, BuildSpendingTrend(today, 0, nil))
}

func TestNewBudgetStatus(t *testing.T) {
	cases := []struct {
		name          string
		amount, spent int64
		threshold     int
		pct           float64
		overThreshold bool
		overBudget    bool
	}{
		{"untouched", 10000, 0, 80, 0, false, false},
		{"below threshold", 10000, 7999, 80, 80.0, false, false},
		{"at threshold", 10000, 8000, 80, 80, true, false},
		{"exactly spent", 10000, 10000, 80, 100, true, true},
		{"overspent", 10000, 12345, 80, 123.5, true, true},
		{"threshold 100", 10000, 9999, 100, 100, false, false},
		{"zero cap", 0, 500, 80, 0, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Budget{Amount: Money{Cents: tc.amount}, AlertThreshold: tc.threshold}
			st := NewBudgetStatus(b, Money{Cents: tc.spent})

			assert.Equal(t, tc.amount-tc.spent, st.Remaining.Cents)
			assert.Equal(t, tc.pct, st.Percentage)
			assert.Equal(t, tc.overThreshold, st.IsOverThreshold)
			assert.Equal(t, tc.overBudget, st.IsOverBudget)
			if st.IsOverBudget {
				assert.True(t, st.IsOverThreshold, "over budget implies over threshold")
			}
		})
	}
}
