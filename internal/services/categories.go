package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	IsIncome    bool   `json:"is_income"`
	HouseholdID string `json:"household_id"`
}

// CategoryPatch carries the fields of a partial category update.
type CategoryPatch struct {
	Name     *string `json:"name"`
	Icon     *string `json:"icon"`
	Color    *string `json:"color"`
	IsIncome *bool   `json:"is_income"`
}

type CategoryService struct {
	repo      *storage.SQLiteRepository
	analytics *AnalyticsService
}

func NewCategoryService(repo *storage.SQLiteRepository, analytics *AnalyticsService) *CategoryService {
	return &CategoryService{repo: repo, analytics: analytics}
}

// List returns the caller's categories plus the household's, expense
// categories first.
func (s *CategoryService) List(ctx context.Context, userID, householdID string) ([]core.Category, error) {
	scope, err := authorizeScope(ctx, s.repo, userID, householdID)
	if err != nil {
		return nil, err
	}
	cats, err := s.repo.ListCategories(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Create(ctx context.Context, userID string, in CategoryInput) (*core.Category, error) {
	c := &core.Category{
		Name:        in.Name,
		Icon:        in.Icon,
		Color:       in.Color,
		IsIncome:    in.IsIncome,
		UserID:      userID,
		HouseholdID: strings.TrimSpace(in.HouseholdID),
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if _, err := authorizeScope(ctx, s.repo, userID, c.HouseholdID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// Update changes a custom category. Default categories cannot be changed
// and are reported as not found.
func (s *CategoryService) Update(ctx context.Context, userID, id string, p CategoryPatch) (*core.Category, error) {
	c, err := s.repo.GetVisibleCategory(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if c.IsDefault {
		return nil, core.NotFoundf("category not found")
	}

	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.IsIncome != nil {
		c.IsIncome = *p.IsIncome
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	// Renames and income flips change every cached aggregate using it,
	// including household scopes reached through shared transactions.
	s.invalidate(c.UserID, c.HouseholdID)
	scopes, err := s.repo.CategoryScopes(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	for _, sc := range scopes {
		s.invalidate(sc.UserID, sc.HouseholdID)
	}
	return c, nil
}

// Delete removes a custom category that no transaction references.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	c, err := s.repo.GetVisibleCategory(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if c.IsDefault {
		return core.NotFoundf("category not found")
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate(c.UserID, c.HouseholdID)
	return nil
}

func (s *CategoryService) invalidate(userID, householdID string) {
	if s.analytics != nil {
		s.analytics.Invalidate(userID, householdID)
	}
}
