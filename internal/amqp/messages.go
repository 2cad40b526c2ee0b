package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType names the write that produced a ledger event
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventImportCompleted    EventType = "import.completed"
)

// TransactionSnapshot carries the fields of a transaction that no longer
// exists in the database, so deletes can still be exported
type TransactionSnapshot struct {
	AmountCents  int64  `json:"amount_cents"`
	Date         string `json:"date"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
	IsIncome     bool   `json:"is_income,omitempty"`
	Description  string `json:"description,omitempty"`
}

// LedgerEvent is a lightweight message describing a transaction write.
// The worker fetches the current row from the database, except for deletes
// which carry a snapshot.
type LedgerEvent struct {
	Type           EventType            `json:"type"`
	TransactionID  string               `json:"transaction_id,omitempty"`
	TransactionIDs []string             `json:"transaction_ids,omitempty"`
	UserID         string               `json:"user_id"`
	HouseholdID    string               `json:"household_id,omitempty"`
	Snapshot       *TransactionSnapshot `json:"snapshot,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

// NewLedgerEvent creates an event for a single transaction
func NewLedgerEvent(typ EventType, transactionID, userID, householdID string) *LedgerEvent {
	return &LedgerEvent{
		Type:          typ,
		TransactionID: transactionID,
		UserID:        userID,
		HouseholdID:   householdID,
		Timestamp:     time.Now().UTC(),
	}
}

// NewImportEvent creates an event covering every row of one CSV import
func NewImportEvent(transactionIDs []string, userID, householdID string) *LedgerEvent {
	return &LedgerEvent{
		Type:           EventImportCompleted,
		TransactionIDs: transactionIDs,
		UserID:         userID,
		HouseholdID:    householdID,
		Timestamp:      time.Now().UTC(),
	}
}

// IDs returns the transactions the event refers to
func (e *LedgerEvent) IDs() []string {
	if e.Type == EventImportCompleted {
		return e.TransactionIDs
	}
	if e.TransactionID == "" {
		return nil
	}
	return []string{e.TransactionID}
}

// Validate rejects events the worker could never process
func (e *LedgerEvent) Validate() error {
	switch e.Type {
	case EventTransactionCreated, EventTransactionUpdated:
		if e.TransactionID == "" {
			return errors.New("transaction_id is required")
		}
	case EventTransactionDeleted:
		if e.TransactionID == "" || e.Snapshot == nil {
			return errors.New("transaction_id and snapshot are required for deletes")
		}
	case EventImportCompleted:
		if len(e.TransactionIDs) == 0 {
			return errors.New("transaction_ids is required for imports")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger event: %w", err)
	}
	return &e, nil
}
