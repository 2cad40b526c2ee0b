package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

// TransactionFilter narrows ListTransactions. Zero values disable a filter.
type TransactionFilter struct {
	Scope      core.Scope
	StartDate  core.Date
	EndDate    core.Date
	CategoryID string
	IsIncome   *bool
	IsShared   *bool
	Search     string
	Skip       int
	Limit      int
}

const transactionSelect = `SELECT t.id, t.amount_cents, t.description, t.date, t.category_id, t.user_id,
	t.household_id, t.is_shared, t.created_at, t.updated_at, ` + categoryColumns + `
	FROM transactions t JOIN categories c ON c.id = t.category_id`

func insertTransaction(ctx context.Context, q queryer, t *core.Transaction) error {
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions (id, amount_cents, description, date, category_id, user_id, household_id, is_shared, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount.Cents, nullString(t.Description), t.Date.String(), t.CategoryID, t.UserID,
		nullString(t.HouseholdID), boolInt(t.IsShared), formatTime(now), formatTime(now))
	if err != nil {
		return mapErr(err, "transaction")
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if err := insertTransaction(ctx, r.db, t); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CreateTransactions inserts a batch atomically: either every row is stored
// or none is.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for i := range txs {
			if err := insertTransaction(ctx, tx, &txs[i]); err != nil {
				return fmt.Errorf("insert transaction %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetTransaction loads a transaction owned by userID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ? AND t.user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTransactionByID loads a transaction regardless of owner. Used by the
// ledger worker, which acts on behalf of the system.
func (r *SQLiteRepository) GetTransactionByID(ctx context.Context, id string) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET amount_cents = ?, description = ?, date = ?, category_id = ?,
		 household_id = ?, is_shared = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		t.Amount.Cents, nullString(t.Description), t.Date.String(), t.CategoryID,
		nullString(t.HouseholdID), boolInt(t.IsShared), formatTime(t.UpdatedAt), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", mapErr(err, "transaction"))
	}
	return expectOne(res, "transaction")
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res, "transaction")
}

// ListTransactions returns matching transactions, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	where, args := scopeClause("t", f.Scope)
	conds := []string{where}

	if !f.StartDate.IsZero() {
		conds = append(conds, "t.date >= ?")
		args = append(args, f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		conds = append(conds, "t.date <= ?")
		args = append(args, f.EndDate.String())
	}
	if f.CategoryID != "" {
		conds = append(conds, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.IsIncome != nil {
		conds = append(conds, "c.is_income = ?")
		args = append(args, boolInt(*f.IsIncome))
	}
	if f.IsShared != nil {
		conds = append(conds, "t.is_shared = ?")
		args = append(args, boolInt(*f.IsShared))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, `LOWER(COALESCE(t.description, '')) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Skip)

	rows, err := r.db.QueryContext(ctx,
		transactionSelect+` WHERE `+strings.Join(conds, " AND ")+
			` ORDER BY t.date DESC, t.created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t                  core.Transaction
		c                  core.Category
		desc, household    sql.NullString
		date, created, upd string
		shared             int
		cIncome, cDefault  int
		cUser, cHousehold  sql.NullString
		cCreated           string
	)
	err := s.Scan(&t.ID, &t.Amount.Cents, &desc, &date, &t.CategoryID, &t.UserID, &household, &shared, &created, &upd,
		&c.ID, &c.Name, &c.Icon, &c.Color, &cIncome, &cUser, &cHousehold, &cDefault, &cCreated)
	if err != nil {
		return t, mapErr(err, "transaction")
	}
	t.Description = desc.String
	t.HouseholdID = household.String
	t.Date = parseDate(date)
	t.IsShared = shared != 0
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(upd)

	c.IsIncome = cIncome != 0
	c.IsDefault = cDefault != 0
	c.UserID = cUser.String
	c.HouseholdID = cHousehold.String
	c.CreatedAt = parseTime(cCreated)
	t.Category = &c
	return t, nil
}
