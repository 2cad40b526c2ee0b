package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/sheets"
	"fintrack/internal/sheets/memory"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	txs map[string]*core.Transaction
	err error
}

func (f *fakeStore) GetTransactionByID(_ context.Context, id string) (*core.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.txs[id]
	if !ok {
		return nil, core.NotFoundf("transaction not found")
	}
	return t, nil
}

type failingSink struct{}

func (failingSink) Append(context.Context, sheets.LedgerRow) (string, error) {
	return "", errors.New("quota exceeded")
}

func newStore() *fakeStore {
	food := &core.Category{ID: "c1", Name: "Hrana"}
	salary := &core.Category{ID: "c2", Name: "Plata", IsIncome: true}
	return &fakeStore{txs: map[string]*core.Transaction{
		"t1": {ID: "t1", Amount: core.Money{Cents: 2500}, Date: core.NewDate(2024, time.May, 2), CategoryID: "c1", Category: food, UserID: "u1", Description: "market"},
		"t2": {ID: "t2", Amount: core.Money{Cents: 100000}, Date: core.NewDate(2024, time.May, 1), CategoryID: "c2", Category: salary, UserID: "u1", HouseholdID: "h1", IsShared: true},
	}}
}

func TestHandleCreatedEvent(t *testing.T) {
	sink := memory.New()
	m := metrics.New()
	w := NewLedgerWorker(newStore(), sink, m, nil)

	err := w.HandleLedgerEvent(context.Background(), amqp.NewLedgerEvent(amqp.EventTransactionCreated, "t1", "u1", ""))
	require.NoError(t, err)

	rows := sink.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Hrana", rows[0].Category)
	assert.Equal(t, int64(-2500), rows[0].Signed().Cents)
	assert.Equal(t, "transaction.created", rows[0].Event)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerEvents.WithLabelValues("exported")))
}

func TestHandleImportEventExportsEveryRow(t *testing.T) {
	sink := memory.New()
	w := NewLedgerWorker(newStore(), sink, nil, nil)

	err := w.HandleLedgerEvent(context.Background(), amqp.NewImportEvent([]string{"t1", "t2", "gone"}, "u1", "h1"))
	require.NoError(t, err)

	rows := sink.Rows()
	require.Len(t, rows, 2, "missing transactions are skipped")
	assert.Equal(t, "t2", rows[1].TransactionID)
	assert.True(t, rows[1].IsIncome)
	assert.Equal(t, "h1", rows[1].HouseholdID)
	assert.Equal(t, int64(100000), rows[1].Signed().Cents)
}

func TestHandleDeleteEventWritesReversal(t *testing.T) {
	sink := memory.New()
	w := NewLedgerWorker(&fakeStore{}, sink, nil, nil)

	event := amqp.NewLedgerEvent(amqp.EventTransactionDeleted, "t9", "u1", "")
	event.Snapshot = &amqp.TransactionSnapshot{AmountCents: 700, Date: "2024-04-30", CategoryID: "c1", CategoryName: "Hrana"}
	require.NoError(t, w.HandleLedgerEvent(context.Background(), event))

	rows := sink.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(-700), rows[0].Amount.Cents)
	assert.Equal(t, int64(700), rows[0].Signed().Cents)
	assert.Equal(t, "2024-04-30", rows[0].Date.String())
}

func TestHandleDeleteEventWithBadSnapshotIsDropped(t *testing.T) {
	sink := memory.New()
	w := NewLedgerWorker(&fakeStore{}, sink, nil, nil)

	event := amqp.NewLedgerEvent(amqp.EventTransactionDeleted, "t9", "u1", "")
	event.Snapshot = &amqp.TransactionSnapshot{AmountCents: 700, Date: "yesterday"}
	require.NoError(t, w.HandleLedgerEvent(context.Background(), event))
	assert.Equal(t, 0, sink.Len())
}

func TestHandleErrorsRequeue(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		w := NewLedgerWorker(&fakeStore{err: errors.New("disk I/O error")}, memory.New(), nil, nil)
		err := w.HandleLedgerEvent(context.Background(), amqp.NewLedgerEvent(amqp.EventTransactionUpdated, "t1", "u1", ""))
		assert.Error(t, err)
	})

	t.Run("sink failure", func(t *testing.T) {
		m := metrics.New()
		w := NewLedgerWorker(newStore(), failingSink{}, m, nil)
		err := w.HandleLedgerEvent(context.Background(), amqp.NewLedgerEvent(amqp.EventTransactionCreated, "t1", "u1", ""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerEvents.WithLabelValues("failed")))
	})
}
