// Package sheets defines the outbound port for mirroring ledger rows into
// a spreadsheet.
package sheets

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

// LedgerWriter appends one ledger row and returns a reference to where it
// landed (an A1 range for Google Sheets).
type LedgerWriter interface {
	Append(ctx context.Context, row LedgerRow) (rowRef string, err error)
}

// Header is the column order written by every LedgerWriter.
var Header = []string{"Date", "Amount", "Signed", "Category", "Description", "User", "Household", "Event", "Transaction"}

// LedgerRow is one exported transaction change.
type LedgerRow struct {
	Date          core.Date
	Amount        core.Money
	IsIncome      bool
	Category      string
	Description   string
	UserID        string
	HouseholdID   string
	Event         string
	TransactionID string
}

// Signed returns the amount as a credit (positive) or debit (negative).
func (r LedgerRow) Signed() core.Money {
	if r.IsIncome {
		return r.Amount
	}
	return core.Money{Cents: -r.Amount.Cents}
}

func (r LedgerRow) Validate() error {
	if r.TransactionID == "" {
		return errors.New("transaction id is required")
	}
	if r.Event == "" {
		return errors.New("event is required")
	}
	if r.Date.IsZero() {
		return errors.New("date is required")
	}
	return nil
}

// Values renders the row in Header order. Amounts are decimal strings so
// the sheet parses them as numbers with USER_ENTERED input.
func (r LedgerRow) Values() []any {
	return []any{
		r.Date.String(),
		r.Amount.String(),
		r.Signed().String(),
		r.Category,
		r.Description,
		r.UserID,
		r.HouseholdID,
		r.Event,
		r.TransactionID,
	}
}
