package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// TransactionInput is the payload for creating a transaction.
type TransactionInput struct {
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
	CategoryID  string     `json:"category_id"`
	HouseholdID string     `json:"household_id"`
	IsShared    *bool      `json:"is_shared"`
}

// TransactionPatch carries the fields of a partial update. Nil fields are
// left unchanged; an empty HouseholdID moves the transaction back to
// personal.
type TransactionPatch struct {
	Amount      *core.Money `json:"amount"`
	Description *string     `json:"description"`
	Date        *core.Date  `json:"date"`
	CategoryID  *string     `json:"category_id"`
	HouseholdID *string     `json:"household_id"`
	IsShared    *bool       `json:"is_shared"`
}

// TransactionQuery is the caller-facing list filter.
type TransactionQuery struct {
	HouseholdID string
	StartDate   core.Date
	EndDate     core.Date
	CategoryID  string
	IsIncome    *bool
	IsShared    *bool
	Search      string
	Skip        int
	Limit       int
}

// TransactionService manages transactions and emits ledger events for
// every write.
type TransactionService struct {
	repo      *storage.SQLiteRepository
	analytics *AnalyticsService
	events    eventSink
	logger    *slog.Logger
}

func NewTransactionService(repo *storage.SQLiteRepository, analytics *AnalyticsService, publisher Publisher, m *metrics.Metrics, logger *slog.Logger) *TransactionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionService{
		repo:      repo,
		analytics: analytics,
		events:    newEventSink(publisher, m, logger),
		logger:    logger,
	}
}

// List returns the caller's transactions, plus the household's when one is
// given, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, q TransactionQuery) ([]core.Transaction, error) {
	if q.Skip < 0 {
		return nil, core.Invalidf("skip must not be negative")
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit < 1 || q.Limit > MaxPageSize {
		return nil, core.Invalidf("limit must be between 1 and %d", MaxPageSize)
	}
	if !q.StartDate.IsZero() && !q.EndDate.IsZero() && q.EndDate.Before(q.StartDate) {
		return nil, core.Invalidf("end_date is before start_date")
	}

	scope, err := authorizeScope(ctx, s.repo, userID, q.HouseholdID)
	if err != nil {
		return nil, err
	}

	txs, err := s.repo.ListTransactions(ctx, storage.TransactionFilter{
		Scope:      scope,
		StartDate:  q.StartDate,
		EndDate:    q.EndDate,
		CategoryID: q.CategoryID,
		IsIncome:   q.IsIncome,
		IsShared:   q.IsShared,
		Search:     strings.TrimSpace(q.Search),
		Skip:       q.Skip,
		Limit:      q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Create stores a new transaction owned by the caller.
func (s *TransactionService) Create(ctx context.Context, userID string, in TransactionInput) (*core.Transaction, error) {
	t := &core.Transaction{
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		CategoryID:  strings.TrimSpace(in.CategoryID),
		UserID:      userID,
		HouseholdID: strings.TrimSpace(in.HouseholdID),
	}
	t.IsShared = t.HouseholdID != ""
	if in.IsShared != nil {
		t.IsShared = *in.IsShared
	}

	if err := s.check(ctx, userID, t); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.afterWrite(ctx, t.UserID, t.HouseholdID)
	s.events.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionCreated, t.ID, t.UserID, t.HouseholdID))
	return s.Get(ctx, userID, t.ID)
}

// Get loads one of the caller's transactions.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (*core.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// Update applies a partial update to one of the caller's transactions.
func (s *TransactionService) Update(ctx context.Context, userID, id string, p TransactionPatch) (*core.Transaction, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	oldHousehold := t.HouseholdID

	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.CategoryID != nil {
		t.CategoryID = strings.TrimSpace(*p.CategoryID)
	}
	if p.HouseholdID != nil {
		t.HouseholdID = strings.TrimSpace(*p.HouseholdID)
		if p.IsShared == nil {
			t.IsShared = t.HouseholdID != ""
		}
	}
	if p.IsShared != nil {
		t.IsShared = *p.IsShared
	}

	if err := s.check(ctx, userID, t); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	s.afterWrite(ctx, userID, oldHousehold)
	s.afterWrite(ctx, userID, t.HouseholdID)
	s.events.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionUpdated, t.ID, t.UserID, t.HouseholdID))
	return s.Get(ctx, userID, id)
}

// Delete removes one of the caller's transactions.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.afterWrite(ctx, userID, t.HouseholdID)
	event := amqp.NewLedgerEvent(amqp.EventTransactionDeleted, t.ID, t.UserID, t.HouseholdID)
	event.Snapshot = &amqp.TransactionSnapshot{
		AmountCents: t.Amount.Cents,
		Date:        t.Date.String(),
		CategoryID:  t.CategoryID,
		Description: t.Description,
	}
	if t.Category != nil {
		event.Snapshot.CategoryName = t.Category.Name
		event.Snapshot.IsIncome = t.Category.IsIncome
	}
	s.events.publish(ctx, event)
	return nil
}

// check validates fields, category visibility and household membership.
func (s *TransactionService) check(ctx context.Context, userID string, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.IsShared && t.HouseholdID == "" {
		return core.Invalidf("shared transactions need a household_id")
	}
	if _, err := authorizeScope(ctx, s.repo, userID, t.HouseholdID); err != nil {
		return err
	}
	if _, err := s.repo.GetVisibleCategory(ctx, userID, t.CategoryID); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	return nil
}

func (s *TransactionService) afterWrite(ctx context.Context, userID, householdID string) {
	if s.analytics != nil {
		s.analytics.Invalidate(userID, householdID)
	}
	s.logger.DebugContext(ctx, "Analytics cache invalidated", "component", "analytics", "user_id", userID, "household_id", householdID)
}
