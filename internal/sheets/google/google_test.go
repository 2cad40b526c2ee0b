package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type fakeSheetsAPI struct {
	mu       sync.Mutex
	appended [][]any
	header   [][]any
	hasRows  bool
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.appended = append(f.appended, vr.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Ledger!A2:I2"},
		})
	case r.Method == http.MethodGet:
		values := [][]any{}
		if f.hasRows {
			values = [][]any{{"Date"}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": values})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.header = vr.Values
		_ = json.NewEncoder(w).Encode(map[string]any{})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "Ledger")
}

func TestAppendSendsRowValues(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)

	row := sheets.LedgerRow{
		Date:          core.NewDate(2024, time.May, 3),
		Amount:        core.Money{Cents: 1250},
		Category:      "Hrana",
		Description:   "groceries",
		UserID:        "u1",
		Event:         "transaction.created",
		TransactionID: "tx1",
	}
	ref, err := c.Append(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, "Ledger!A2:I2", ref)

	require.Len(t, api.appended, 1)
	got := api.appended[0]
	require.Len(t, got, len(sheets.Header))
	assert.Equal(t, "2024-05-03", got[0])
	assert.Equal(t, "12.50", got[1])
	assert.Equal(t, "-12.50", got[2])
	assert.Equal(t, "tx1", got[8])
}

func TestAppendRejectsInvalidRow(t *testing.T) {
	c := newTestClient(t, &fakeSheetsAPI{})
	_, err := c.Append(context.Background(), sheets.LedgerRow{Event: "transaction.created"})
	assert.Error(t, err)
}

func TestEnsureHeader(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)
	require.NoError(t, c.EnsureHeader(context.Background()))
	require.Len(t, api.header, 1)
	assert.Equal(t, "Date", api.header[0][0])

	api.header = nil
	api.hasRows = true
	require.NoError(t, c.EnsureHeader(context.Background()))
	assert.Nil(t, api.header, "existing header is left alone")
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")

	_, err = New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestLastColumn(t *testing.T) {
	assert.Equal(t, "I", lastColumn())
}
