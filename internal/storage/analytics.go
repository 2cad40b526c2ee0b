package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// CategoryTotals sums the scope's transactions per category over the
// half-open date range [from, to).
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, scope core.Scope, from, to core.Date) ([]core.CategoryTotal, error) {
	where, args := scopeClause("t", scope)
	args = append(args, from.String(), to.String())
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.icon, c.color, c.is_income, SUM(t.amount_cents), COUNT(t.id)
		 FROM transactions t JOIN categories c ON c.id = t.category_id
		 WHERE `+where+` AND t.date >= ? AND t.date < ?
		 GROUP BY c.id, c.name, c.icon, c.color, c.is_income
		 ORDER BY c.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var (
			ct       core.CategoryTotal
			isIncome int
		)
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &ct.Icon, &ct.Color, &isIncome, &ct.Total.Cents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.IsIncome = isIncome != 0
		out = append(out, ct)
	}
	return out, rows.Err()
}

// DailyExpenseTotals sums the scope's expense transactions per day over the
// inclusive range [from, to], keyed by YYYY-MM-DD.
func (r *SQLiteRepository) DailyExpenseTotals(ctx context.Context, scope core.Scope, from, to core.Date) (map[string]core.Money, error) {
	where, args := scopeClause("t", scope)
	args = append(args, from.String(), to.String())
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.date, SUM(t.amount_cents)
		 FROM transactions t JOIN categories c ON c.id = t.category_id
		 WHERE `+where+` AND c.is_income = 0 AND t.date >= ? AND t.date <= ?
		 GROUP BY t.date`, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]core.Money)
	for rows.Next() {
		var (
			day   string
			cents int64
		)
		if err := rows.Scan(&day, &cents); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		out[day] = core.Money{Cents: cents}
	}
	return out, rows.Err()
}
