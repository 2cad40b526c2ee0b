package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// BudgetInput is the payload for creating a budget.
type BudgetInput struct {
	Amount         core.Money `json:"amount"`
	Month          core.Date  `json:"month"`
	CategoryID     string     `json:"category_id"`
	HouseholdID    string     `json:"household_id"`
	AlertThreshold *int       `json:"alert_threshold"`
}

// BudgetPatch carries the fields of a partial budget update.
type BudgetPatch struct {
	Amount         *core.Money `json:"amount"`
	AlertThreshold *int        `json:"alert_threshold"`
}

type BudgetService struct {
	repo      *storage.SQLiteRepository
	analytics *AnalyticsService
}

func NewBudgetService(repo *storage.SQLiteRepository, analytics *AnalyticsService) *BudgetService {
	return &BudgetService{repo: repo, analytics: analytics}
}

func (s *BudgetService) List(ctx context.Context, userID, householdID string, month core.Date) ([]core.Budget, error) {
	scope, err := authorizeScope(ctx, s.repo, userID, householdID)
	if err != nil {
		return nil, err
	}
	budgets, err := s.repo.ListBudgets(ctx, scope, month.MonthStart())
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// Create stores a monthly cap. A second budget for the same category,
// month and owner is a conflict.
func (s *BudgetService) Create(ctx context.Context, userID string, in BudgetInput) (*core.Budget, error) {
	b := &core.Budget{
		Amount:         in.Amount,
		Month:          in.Month,
		CategoryID:     strings.TrimSpace(in.CategoryID),
		UserID:         userID,
		HouseholdID:    strings.TrimSpace(in.HouseholdID),
		AlertThreshold: core.DefaultAlertThreshold,
	}
	if !b.Month.IsZero() {
		b.Month = b.Month.MonthStart()
	}
	if in.AlertThreshold != nil {
		b.AlertThreshold = *in.AlertThreshold
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if _, err := authorizeScope(ctx, s.repo, userID, b.HouseholdID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetVisibleCategory(ctx, userID, b.CategoryID); err != nil {
		return nil, fmt.Errorf("category: %w", err)
	}

	exists, err := s.repo.BudgetExists(ctx, userID, b.HouseholdID, b.CategoryID, b.Month)
	if err != nil {
		return nil, fmt.Errorf("check budget: %w", err)
	}
	if exists {
		return nil, core.Conflictf("a budget for this category and month already exists")
	}
	if err := s.repo.CreateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}

	s.invalidate(userID, b.HouseholdID)
	return s.repo.GetBudget(ctx, userID, b.ID)
}

func (s *BudgetService) Update(ctx context.Context, userID, id string, p BudgetPatch) (*core.Budget, error) {
	b, err := s.repo.GetBudget(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.AlertThreshold != nil {
		b.AlertThreshold = *p.AlertThreshold
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	s.invalidate(userID, b.HouseholdID)
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	b, err := s.repo.GetBudget(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("get budget: %w", err)
	}
	if err := s.repo.DeleteBudget(ctx, userID, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.invalidate(userID, b.HouseholdID)
	return nil
}

func (s *BudgetService) invalidate(userID, householdID string) {
	if s.analytics != nil {
		s.analytics.Invalidate(userID, householdID)
	}
}
