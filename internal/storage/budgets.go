package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

const budgetSelect = `SELECT b.id, b.amount_cents, b.month, b.category_id, b.user_id, b.household_id,
	b.alert_threshold, b.created_at, b.updated_at, ` + categoryColumns + `
	FROM budgets b JOIN categories c ON c.id = b.category_id`

// BudgetExists reports whether the owner already has a budget for the
// category and month. The owner is the household when householdID is set,
// the user otherwise.
func (r *SQLiteRepository) BudgetExists(ctx context.Context, userID, householdID, categoryID string, month core.Date) (bool, error) {
	var (
		n   int
		err error
	)
	if householdID != "" {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM budgets WHERE category_id = ? AND month = ? AND household_id = ?`,
			categoryID, month.String(), householdID).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM budgets WHERE category_id = ? AND month = ? AND user_id = ? AND household_id IS NULL`,
			categoryID, month.String(), userID).Scan(&n)
	}
	if err != nil {
		return false, fmt.Errorf("check budget: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	now := time.Now().UTC()
	b.ID = uuid.NewString()
	b.Month = b.Month.MonthStart()
	b.CreatedAt = now
	b.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, amount_cents, month, category_id, user_id, household_id, alert_threshold, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Amount.Cents, b.Month.String(), b.CategoryID, b.UserID, nullString(b.HouseholdID),
		b.AlertThreshold, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("insert budget: %w", mapErr(err, "budget for this category and month"))
	}
	return nil
}

// GetBudget loads a budget created by userID.
func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, id string) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx, budgetSelect+` WHERE b.id = ? AND b.user_id = ?`, id, userID)
	b, err := scanBudget(row)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b *core.Budget) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET amount_cents = ?, alert_threshold = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		b.Amount.Cents, b.AlertThreshold, formatTime(b.UpdatedAt), b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", mapErr(err, "budget"))
	}
	return expectOne(res, "budget")
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectOne(res, "budget")
}

// ListBudgets returns the scope's budgets for one month ordered by category
// name.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, scope core.Scope, month core.Date) ([]core.Budget, error) {
	where, args := scopeClause("b", scope)
	args = append(args, month.MonthStart().String())
	rows, err := r.db.QueryContext(ctx,
		budgetSelect+` WHERE `+where+` AND b.month = ? ORDER BY c.name, b.created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBudget(s rowScanner) (core.Budget, error) {
	var (
		b                 core.Budget
		c                 core.Category
		month             string
		household         sql.NullString
		created, upd      string
		cIncome, cDefault int
		cUser, cHousehold sql.NullString
		cCreated          string
	)
	err := s.Scan(&b.ID, &b.Amount.Cents, &month, &b.CategoryID, &b.UserID, &household, &b.AlertThreshold, &created, &upd,
		&c.ID, &c.Name, &c.Icon, &c.Color, &cIncome, &cUser, &cHousehold, &cDefault, &cCreated)
	if err != nil {
		return b, mapErr(err, "budget")
	}
	b.Month = parseDate(month)
	b.HouseholdID = household.String
	b.CreatedAt = parseTime(created)
	b.UpdatedAt = parseTime(upd)

	c.IsIncome = cIncome != 0
	c.IsDefault = cDefault != 0
	c.UserID = cUser.String
	c.HouseholdID = cHousehold.String
	c.CreatedAt = parseTime(cCreated)
	b.Category = &c
	return b, nil
}
