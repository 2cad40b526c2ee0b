package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/advisor"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

const maxChatMessage = 2000

// AdvisorService answers analysis and chat requests with a generative
// model fed the caller's recent spending.
type AdvisorService struct {
	repo      *storage.SQLiteRepository
	analytics *AnalyticsService
	model     advisor.Model
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAdvisorService wires the advisor. A nil model makes every call fail
// with core.ErrUnavailable.
func NewAdvisorService(repo *storage.SQLiteRepository, analytics *AnalyticsService, model advisor.Model, m *metrics.Metrics, logger *slog.Logger) *AdvisorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisorService{repo: repo, analytics: analytics, model: model, metrics: m, logger: logger}
}

var errAdvisorDisabled = fmt.Errorf("%w: AI features are not configured. Please set GEMINI_API_KEY", core.ErrUnavailable)

// Analyze returns a short analysis and up to five savings suggestions.
func (s *AdvisorService) Analyze(ctx context.Context, userID, householdID string) (advisor.Analysis, error) {
	if s.model == nil {
		return advisor.Analysis{}, errAdvisorDisabled
	}
	spending, err := s.spendingContext(ctx, userID, householdID)
	if err != nil {
		return advisor.Analysis{}, err
	}

	text, err := s.generate(ctx, "analyze", advisor.AnalysisPrompt(spending))
	if err != nil {
		return advisor.Analysis{}, err
	}
	return advisor.ParseAnalysis(text), nil
}

// Chat answers a free-form question.
func (s *AdvisorService) Chat(ctx context.Context, userID, householdID, message string) (string, error) {
	if s.model == nil {
		return "", errAdvisorDisabled
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", core.Invalidf("message is required")
	}
	if len(message) > maxChatMessage {
		return "", core.Invalidf("message must be at most %d characters", maxChatMessage)
	}
	spending, err := s.spendingContext(ctx, userID, householdID)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, "chat", advisor.ChatPrompt(spending, message))
}

func (s *AdvisorService) spendingContext(ctx context.Context, userID, householdID string) (string, error) {
	scope, err := authorizeScope(ctx, s.repo, userID, householdID)
	if err != nil {
		return "", err
	}
	today := s.analytics.Today()
	// CategoryTotals takes a half-open range
	totals, err := s.repo.CategoryTotals(ctx, scope, today.AddDays(-(advisor.ContextDays - 1)), today.AddDays(1))
	if err != nil {
		return "", fmt.Errorf("load category totals: %w", err)
	}
	return advisor.BuildContext(advisor.ContextDays, totals), nil
}

func (s *AdvisorService) generate(ctx context.Context, kind, prompt string) (string, error) {
	text, err := s.model.Generate(ctx, prompt)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if s.metrics != nil {
		s.metrics.AdvisorCalls.WithLabelValues(kind, outcome).Inc()
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Generative model call failed", "component", "advisor", "kind", kind, "error", err)
		return "", fmt.Errorf("%w: AI %s failed: %v", core.ErrUpstream, kind, err)
	}
	return text, nil
}
