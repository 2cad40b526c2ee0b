// Package services holds the application operations behind the HTTP API.
// Every method receives the calling user's id explicitly and enforces
// ownership and household membership before touching the store.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

// Publisher sends ledger events to the export pipeline.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// NopPublisher drops every event. It stands in when AMQP is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishLedgerEvent(context.Context, *amqp.LedgerEvent) error { return nil }

// authorizeScope builds the query scope for a caller, rejecting households
// the caller does not belong to.
func authorizeScope(ctx context.Context, repo *storage.SQLiteRepository, userID, householdID string) (core.Scope, error) {
	scope := core.Scope{UserID: userID, HouseholdID: strings.TrimSpace(householdID)}
	if scope.HouseholdID == "" {
		return scope, nil
	}
	if _, err := repo.GetMembership(ctx, scope.HouseholdID, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Scope{}, core.Forbiddenf("not a member of this household")
		}
		return core.Scope{}, fmt.Errorf("check membership: %w", err)
	}
	return scope, nil
}

// eventSink publishes ledger events without ever failing the caller's write.
type eventSink struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func newEventSink(p Publisher, m *metrics.Metrics, logger *slog.Logger) eventSink {
	if p == nil {
		p = NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return eventSink{publisher: p, metrics: m, logger: logger}
}

func (s eventSink) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if _, nop := s.publisher.(NopPublisher); nop {
		return
	}
	stage := "published"
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		stage = "dropped"
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			"component", "amqp",
			"event_type", event.Type,
			"transaction_id", event.TransactionID,
			"error", err)
	}
	if s.metrics != nil {
		s.metrics.LedgerEvents.WithLabelValues(stage).Inc()
	}
}
