package core

// BudgetStatus is a budget together with what has been spent against it.
type BudgetStatus struct {
	Budget          Budget  `json:"budget"`
	Spent           Money   `json:"spent"`
	Remaining       Money   `json:"remaining"`
	Percentage      float64 `json:"percentage"`
	IsOverThreshold bool    `json:"is_over_threshold"`
	IsOverBudget    bool    `json:"is_over_budget"`
}

// NewBudgetStatus derives remaining, percentage and the alert flags from a
// budget and the amount spent in its category and month.
//
// The flags compare spent against the cap exactly, in cents, so a percentage
// that only rounds up to the threshold does not trip it. A zero cap reports
// 0% and raises neither flag.
func NewBudgetStatus(b Budget, spent Money) BudgetStatus {
	st := BudgetStatus{
		Budget:     b,
		Spent:      spent,
		Remaining:  b.Amount.Sub(spent),
		Percentage: Percent(spent, b.Amount),
	}
	if b.Amount.Cents > 0 {
		// spent/amount*100 >= threshold  <=>  spent*100 >= threshold*amount
		st.IsOverThreshold = spent.Cents*100 >= int64(b.AlertThreshold)*b.Amount.Cents
		st.IsOverBudget = spent.Cents >= b.Amount.Cents
	}
	return st
}
