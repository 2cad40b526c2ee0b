package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

const categoryColumns = `c.id, c.name, c.icon, c.color, c.is_income, c.user_id, c.household_id, c.is_default, c.created_at`

// visibleCategory matches categories owned by the user or by any household
// the user belongs to.
const visibleCategory = `(c.user_id = ? OR c.household_id IN (SELECT household_id FROM household_members WHERE user_id = ?))`

func insertCategory(ctx context.Context, q queryer, c *core.Category) error {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	c.Normalize()
	_, err := q.ExecContext(ctx,
		`INSERT INTO categories (id, name, icon, color, is_income, user_id, household_id, is_default, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Icon, c.Color, boolInt(c.IsIncome), nullString(c.UserID), nullString(c.HouseholdID),
		boolInt(c.IsDefault), formatTime(c.CreatedAt))
	if err != nil {
		return mapErr(err, "category")
	}
	return nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	if err := insertCategory(ctx, r.db, c); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// ListCategories returns the scope's categories, expense categories first,
// each group ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, scope core.Scope) ([]core.Category, error) {
	where, args := scopeClause("c", scope)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories c WHERE `+where+` ORDER BY c.is_income, c.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetVisibleCategory loads a category the user may use. Categories of other
// users are reported as not found.
func (r *SQLiteRepository) GetVisibleCategory(ctx context.Context, userID, id string) (*core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories c WHERE c.id = ? AND `+visibleCategory,
		id, userID, userID)
	c, err := scanCategory(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c *core.Category) error {
	c.Normalize()
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ?, color = ?, is_income = ? WHERE id = ? AND is_default = 0`,
		c.Name, c.Icon, c.Color, boolInt(c.IsIncome), c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", mapErr(err, "category"))
	}
	return expectOne(res, "category")
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND is_default = 0`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", mapErr(err, "category"))
	}
	return expectOne(res, "category")
}

// CategoryScopes lists every (user, household) pair with transactions in
// the category. Household is empty for personal transactions.
func (r *SQLiteRepository) CategoryScopes(ctx context.Context, categoryID string) ([]core.Scope, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id, COALESCE(household_id, '') FROM transactions WHERE category_id = ?`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list category scopes: %w", err)
	}
	defer rows.Close()

	var out []core.Scope
	for rows.Next() {
		var sc core.Scope
		if err := rows.Scan(&sc.UserID, &sc.HouseholdID); err != nil {
			return nil, fmt.Errorf("scan category scope: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c                 core.Category
		isIncome, isDef   int
		userID, household sql.NullString
		created           string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &isIncome, &userID, &household, &isDef, &created); err != nil {
		return c, mapErr(err, "category")
	}
	c.IsIncome = isIncome != 0
	c.IsDefault = isDef != 0
	c.UserID = userID.String
	c.HouseholdID = household.String
	c.CreatedAt = parseTime(created)
	return c, nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NotFoundf("%s not found", what)
	}
	return nil
}
