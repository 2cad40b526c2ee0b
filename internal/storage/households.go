package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

// CreateHousehold stores the household and enrols its owner as the first
// member.
func (r *SQLiteRepository) CreateHousehold(ctx context.Context, h *core.Household) error {
	h.ID = uuid.NewString()
	h.CreatedAt = time.Now().UTC()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO households (id, name, owner_id, invite_code, created_at) VALUES (?, ?, ?, ?, ?)`,
			h.ID, h.Name, h.OwnerID, h.InviteCode, formatTime(h.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert household: %w", mapErr(err, "invite code"))
		}
		if err := insertMember(ctx, tx, h.ID, h.OwnerID, core.RoleOwner); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) GetHousehold(ctx context.Context, id string) (*core.Household, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, invite_code, created_at FROM households WHERE id = ?`, id)
	return scanHousehold(row)
}

func (r *SQLiteRepository) GetHouseholdByInviteCode(ctx context.Context, code string) (*core.Household, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, invite_code, created_at FROM households WHERE invite_code = ?`, code)
	return scanHousehold(row)
}

// ListHouseholdsForUser returns every household the user is a member of.
func (r *SQLiteRepository) ListHouseholdsForUser(ctx context.Context, userID string) ([]core.Household, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT h.id, h.name, h.owner_id, h.invite_code, h.created_at
		 FROM households h JOIN household_members m ON m.household_id = h.id
		 WHERE m.user_id = ? ORDER BY h.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()

	out := []core.Household{}
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateInviteCode(ctx context.Context, householdID, code string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE households SET invite_code = ? WHERE id = ?`, code, householdID)
	if err != nil {
		return fmt.Errorf("update invite code: %w", mapErr(err, "invite code"))
	}
	return expectOne(res, "household")
}

func insertMember(ctx context.Context, q queryer, householdID, userID string, role core.Role) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		householdID, userID, string(role), formatTime(time.Now()))
	return mapErr(err, "membership")
}

func (r *SQLiteRepository) AddMember(ctx context.Context, householdID, userID string, role core.Role) error {
	if err := insertMember(ctx, r.db, householdID, userID, role); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveMember(ctx context.Context, householdID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM household_members WHERE household_id = ? AND user_id = ?`, householdID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return expectOne(res, "member")
}

// GetMembership returns the user's role in the household, or a not-found
// error when the user is not a member.
func (r *SQLiteRepository) GetMembership(ctx context.Context, householdID, userID string) (core.Role, error) {
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID).Scan(&role)
	if err != nil {
		return "", mapErr(err, "membership")
	}
	return core.Role(role), nil
}

// ListMembers returns the members of a household, owner first.
func (r *SQLiteRepository) ListMembers(ctx context.Context, householdID string) ([]core.HouseholdMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.household_id, m.user_id, u.name, u.email, m.role, m.joined_at
		 FROM household_members m JOIN users u ON u.id = m.user_id
		 WHERE m.household_id = ?
		 ORDER BY CASE m.role WHEN 'owner' THEN 0 ELSE 1 END, m.joined_at`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := []core.HouseholdMember{}
	for rows.Next() {
		var (
			m            core.HouseholdMember
			role, joined string
		)
		if err := rows.Scan(&m.HouseholdID, &m.UserID, &m.Name, &m.Email, &role, &joined); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Role = core.Role(role)
		m.JoinedAt = parseTime(joined)
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanHousehold(s rowScanner) (*core.Household, error) {
	var (
		h       core.Household
		created string
	)
	if err := s.Scan(&h.ID, &h.Name, &h.OwnerID, &h.InviteCode, &created); err != nil {
		return nil, mapErr(err, "household")
	}
	h.CreatedAt = parseTime(created)
	return &h, nil
}
