package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const maxHouseholdName = 100

type HouseholdService struct {
	repo *storage.SQLiteRepository
}

func NewHouseholdService(repo *storage.SQLiteRepository) *HouseholdService {
	return &HouseholdService{repo: repo}
}

// NewInviteCode returns a URL-safe token built from 8 random bytes.
func NewInviteCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *HouseholdService) List(ctx context.Context, userID string) ([]core.Household, error) {
	hs, err := s.repo.ListHouseholdsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	return hs, nil
}

// Create makes a household with the caller as its owner.
func (s *HouseholdService) Create(ctx context.Context, userID, name string) (*core.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.ErrEmptyName
	}
	if len(name) > maxHouseholdName {
		return nil, core.Invalidf("name must be at most %d characters", maxHouseholdName)
	}
	code, err := NewInviteCode()
	if err != nil {
		return nil, err
	}

	h := &core.Household{Name: name, OwnerID: userID, InviteCode: code}
	if err := s.repo.CreateHousehold(ctx, h); err != nil {
		return nil, fmt.Errorf("create household: %w", err)
	}
	return s.Get(ctx, userID, h.ID)
}

// Join adds the caller to the household with the given invite code.
func (s *HouseholdService) Join(ctx context.Context, userID, inviteCode string) (*core.Household, error) {
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" {
		return nil, core.Invalidf("invite_code is required")
	}
	h, err := s.repo.GetHouseholdByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundf("invalid invite code")
		}
		return nil, fmt.Errorf("find household: %w", err)
	}
	if err := s.repo.AddMember(ctx, h.ID, userID, core.RoleMember); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, core.Conflictf("already a member of this household")
		}
		return nil, fmt.Errorf("join household: %w", err)
	}
	return s.Get(ctx, userID, h.ID)
}

// Get returns a household with its members. Only members may read it.
func (s *HouseholdService) Get(ctx context.Context, userID, id string) (*core.Household, error) {
	if _, err := s.requireRole(ctx, id, userID); err != nil {
		return nil, err
	}
	h, err := s.repo.GetHousehold(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	h.Members = members
	return h, nil
}

func (s *HouseholdService) Members(ctx context.Context, userID, id string) ([]core.HouseholdMember, error) {
	if _, err := s.requireRole(ctx, id, userID); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// RegenerateCode replaces the invite code. Owner only.
func (s *HouseholdService) RegenerateCode(ctx context.Context, userID, id string) (*core.Household, error) {
	if err := s.requireOwner(ctx, id, userID); err != nil {
		return nil, err
	}
	code, err := NewInviteCode()
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateInviteCode(ctx, id, code); err != nil {
		return nil, fmt.Errorf("update invite code: %w", err)
	}
	return s.Get(ctx, userID, id)
}

// RemoveMember drops another member. Owner only; owners cannot remove
// themselves.
func (s *HouseholdService) RemoveMember(ctx context.Context, userID, id, memberID string) error {
	if err := s.requireOwner(ctx, id, userID); err != nil {
		return err
	}
	if memberID == userID {
		return core.Invalidf("the owner cannot remove themselves")
	}
	if err := s.repo.RemoveMember(ctx, id, memberID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// Leave removes the caller from a household. The owner cannot leave.
func (s *HouseholdService) Leave(ctx context.Context, userID, id string) error {
	role, err := s.requireRole(ctx, id, userID)
	if err != nil {
		return err
	}
	if role == core.RoleOwner {
		return core.Invalidf("the owner cannot leave the household")
	}
	if err := s.repo.RemoveMember(ctx, id, userID); err != nil {
		return fmt.Errorf("leave household: %w", err)
	}
	return nil
}

func (s *HouseholdService) requireRole(ctx context.Context, householdID, userID string) (core.Role, error) {
	role, err := s.repo.GetMembership(ctx, householdID, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", core.Forbiddenf("not a member of this household")
		}
		return "", fmt.Errorf("check membership: %w", err)
	}
	return role, nil
}

func (s *HouseholdService) requireOwner(ctx context.Context, householdID, userID string) error {
	role, err := s.requireRole(ctx, householdID, userID)
	if err != nil {
		return err
	}
	if role != core.RoleOwner {
		return core.Forbiddenf("only the household owner can do this")
	}
	return nil
}
