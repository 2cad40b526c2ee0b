package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

const (
	DefaultTrendDays = 30
	MaxTrendDays     = 365
)

// AnalyticsService computes summaries, breakdowns, trends and budget status
// over a scope. Results are cached per scope and parameters.
type AnalyticsService struct {
	repo    *storage.SQLiteRepository
	cache   cache.Cache[any]
	loc     *time.Location
	metrics *metrics.Metrics
	now     func() time.Time

	// generation counts invalidations. A result computed across one is
	// not cached.
	mu         sync.Mutex
	generation uint64
}

func NewAnalyticsService(repo *storage.SQLiteRepository, c cache.Cache[any], loc *time.Location, m *metrics.Metrics) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{repo: repo, cache: c, loc: loc, metrics: m, now: time.Now}
}

// Today is the current calendar date in the configured timezone.
func (s *AnalyticsService) Today() core.Date {
	return core.DateOf(s.now().In(s.loc))
}

// Location returns the timezone used for "today" and month defaults.
func (s *AnalyticsService) Location() *time.Location {
	return s.loc
}

// Cache keys start with the user and include the household between bars so
// both can be invalidated: "<user>|<household>|<operation>|<params>".
func cacheKey(scope core.Scope, op string, params ...string) string {
	return scope.UserID + "|" + scope.HouseholdID + "|" + op + "|" + strings.Join(params, "|")
}

// Invalidate drops cached results touching the user or the household.
func (s *AnalyticsService) Invalidate(userID, householdID string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.cache.DeleteFunc(func(key string) bool {
		user, rest, _ := strings.Cut(key, "|")
		if user == userID {
			return true
		}
		hh, _, _ := strings.Cut(rest, "|")
		return householdID != "" && hh == householdID
	})
}

func cached[T any](s *AnalyticsService, key string, compute func() (T, error)) (T, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if typed, ok := v.(T); ok {
				s.recordLookup("hit")
				return typed, nil
			}
		}
		s.recordLookup("miss")
	}
	gen := s.currentGeneration()
	v, err := compute()
	if err != nil {
		return v, err
	}
	if s.cache != nil {
		s.mu.Lock()
		if s.generation == gen {
			s.cache.Set(key, v)
		}
		s.mu.Unlock()
	}
	return v, nil
}

func (s *AnalyticsService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *AnalyticsService) recordLookup(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// MonthlySummary totals income and expenses for the month containing month.
func (s *AnalyticsService) MonthlySummary(ctx context.Context, userID, householdID string, month core.Date) (core.MonthlySummary, error) {
	scope, err := authorizeScope(ctx, s.repo, userID, householdID)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	month = month.MonthStart()

	return cached(s, cacheKey(scope, "monthly", month.String()), func() (core.MonthlySummary, error) {
		totals, err := s.repo.CategoryTotals(ctx, scope, month, month.NextMonthStart())
		if err != nil {
			return core.MonthlySummary{}, fmt.Errorf("load category totals: %w", err)
		}
		return core.BuildMonthlySummary(month, totals), nil
	})
}

// CategoryBreakdown returns per-category totals for income or expense
// categories, largest first.
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID, householdID string, month core.Date, isIncome bool) ([]core.CategoryBreakdown, error) {
	scope, err := authorizeScope(ctx, s.repo, userID, householdID)
	if err != nil {
		return nil, err
	}
	month = month.MonthStart()

	return cached(s, cacheKey(scope, "categories", month.String(), strconv.FormatBool(isIncome)), func() ([]core.CategoryBreakdown, error) {
		totals, err := s.repo.CategoryTotals(ctx, scope, month, month.NextMonthStart())
		if err != nil {
			return nil, fmt.Errorf("load category totals: %w", err)
		}
		return core.BuildCategoryBreakdown(totals, isIncome), nil
	})
}

// SpendingTrend returns one expense total per day for the last days days,
// oldest first.
func (s *AnalyticsService) SpendingTrend(ctx context.Context, userID, householdID string, days int) ([]core.TrendPoint, error) {
	if days < 1 || days > MaxTrendDays {
		return nil, core.Invalidf("days must be between 1 and %d", MaxTrendDays)
	}
	scope, err := authorizeScope(ctx, s.repo, userID, householdID)
	if err != nil {
		return nil, err
	}
	today := s.Today()

	return cached(s, cacheKey(scope, "trend", today.String(), strconv.Itoa(days)), func() ([]core.TrendPoint, error) {
		daily, err := s.repo.DailyExpenseTotals(ctx, scope, today.AddDays(-(days - 1)), today)
		if err != nil {
			return nil, fmt.Errorf("load daily totals: %w", err)
		}
		return core.BuildSpendingTrend(today, days, daily), nil
	})
}

// BudgetStatus reports spending against every budget in scope for a month.
func (s *AnalyticsService) BudgetStatus(ctx context.Context, userID, householdID string, month core.Date) ([]core.BudgetStatus, error) {
	scope, err := authorizeScope(ctx, s.repo, userID, householdID)
	if err != nil {
		return nil, err
	}
	month = month.MonthStart()

	return cached(s, cacheKey(scope, "budget_status", month.String()), func() ([]core.BudgetStatus, error) {
		budgets, err := s.repo.ListBudgets(ctx, scope, month)
		if err != nil {
			return nil, fmt.Errorf("list budgets: %w", err)
		}
		totals, err := s.repo.CategoryTotals(ctx, scope, month, month.NextMonthStart())
		if err != nil {
			return nil, fmt.Errorf("load category totals: %w", err)
		}
		spent := make(map[string]core.Money, len(totals))
		for _, t := range totals {
			spent[t.CategoryID] = t.Total
		}

		out := make([]core.BudgetStatus, 0, len(budgets))
		for _, b := range budgets {
			out = append(out, core.NewBudgetStatus(b, spent[b.CategoryID]))
		}
		return out, nil
	})
}
