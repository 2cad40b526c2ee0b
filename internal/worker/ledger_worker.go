// Package worker mirrors ledger events from the message queue into a
// spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/sheets"
)

// TransactionReader loads transactions regardless of owner.
type TransactionReader interface {
	GetTransactionByID(ctx context.Context, id string) (*core.Transaction, error)
}

// LedgerWorker turns ledger events into sheet rows.
type LedgerWorker struct {
	store   TransactionReader
	sink    sheets.LedgerWriter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewLedgerWorker(store TransactionReader, sink sheets.LedgerWriter, m *metrics.Metrics, logger *slog.Logger) *LedgerWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerWorker{store: store, sink: sink, metrics: m, logger: logger}
}

// HandleLedgerEvent exports every transaction named by the event. A
// returned error asks the consumer to requeue the message.
func (w *LedgerWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		"event_type", event.Type,
		"transaction_id", event.TransactionID,
		"count", len(event.IDs()))

	rows, err := w.rows(ctx, event)
	if err != nil {
		w.record("failed")
		return err
	}

	for _, row := range rows {
		ref, err := w.sink.Append(ctx, row)
		if err != nil {
			w.record("failed")
			w.logger.ErrorContext(ctx, "Failed to append ledger row",
				"transaction_id", row.TransactionID,
				"error", err)
			return fmt.Errorf("append ledger row %s: %w", row.TransactionID, err)
		}
		w.logger.DebugContext(ctx, "Ledger row appended",
			"transaction_id", row.TransactionID,
			"sheets_ref", ref)
	}
	w.record("exported")
	return nil
}

func (w *LedgerWorker) rows(ctx context.Context, event *amqp.LedgerEvent) ([]sheets.LedgerRow, error) {
	if event.Type == amqp.EventTransactionDeleted {
		row, err := rowFromSnapshot(event)
		if err != nil {
			// Redelivery cannot fix a bad snapshot.
			w.logger.WarnContext(ctx, "Dropping delete event with unusable snapshot",
				"transaction_id", event.TransactionID,
				"error", err)
			return nil, nil
		}
		return []sheets.LedgerRow{row}, nil
	}

	ids := event.IDs()
	rows := make([]sheets.LedgerRow, 0, len(ids))
	for _, id := range ids {
		t, err := w.store.GetTransactionByID(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before the worker caught up; the delete event covers it.
			w.logger.WarnContext(ctx, "Transaction no longer exists, skipping",
				"transaction_id", id,
				"event_type", event.Type)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load transaction %s: %w", id, err)
		}
		rows = append(rows, rowFromTransaction(t, string(event.Type)))
	}
	return rows, nil
}

func rowFromTransaction(t *core.Transaction, eventType string) sheets.LedgerRow {
	row := sheets.LedgerRow{
		Date:          t.Date,
		Amount:        t.Amount,
		Description:   t.Description,
		UserID:        t.UserID,
		HouseholdID:   t.HouseholdID,
		Event:         eventType,
		TransactionID: t.ID,
	}
	if t.Category != nil {
		row.Category = t.Category.Name
		row.IsIncome = t.Category.IsIncome
	}
	return row
}

func rowFromSnapshot(event *amqp.LedgerEvent) (sheets.LedgerRow, error) {
	s := event.Snapshot
	if s == nil {
		return sheets.LedgerRow{}, errors.New("delete event without snapshot")
	}
	date, err := core.ParseDate(s.Date)
	if err != nil {
		return sheets.LedgerRow{}, fmt.Errorf("snapshot date %q: %w", s.Date, err)
	}
	// Deletes are written as reversals so the sheet's running sum stays
	// correct.
	return sheets.LedgerRow{
		Date:          date,
		Amount:        core.Money{Cents: -s.AmountCents},
		IsIncome:      s.IsIncome,
		Category:      s.CategoryName,
		Description:   s.Description,
		UserID:        event.UserID,
		HouseholdID:   event.HouseholdID,
		Event:         string(event.Type),
		TransactionID: event.TransactionID,
	}, nil
}

func (w *LedgerWorker) record(stage string) {
	if w.metrics != nil {
		w.metrics.LedgerEvents.WithLabelValues(stage).Inc()
	}
}
