package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	rl := NewLimiter(2)
	defer rl.Stop()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	now = now.Add(15 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, wait := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, 45*time.Second, wait, "time left in the window")
	ok, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok, "clients are counted separately")

	now = now.Add(46 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok, "window resets after a minute")
	assert.Len(t, rl.clients, 2)

	now = now.Add(time.Hour)
	rl.cleanupStaleEntries()
	assert.Empty(t, rl.clients)
}

func TestNewLimiter_DefaultLimit(t *testing.T) {
	rl := NewLimiter(0)
	defer rl.Stop()
	assert.Equal(t, DefaultRequestsPerMinute, rl.limit)
}

func TestLimiter_MiddlewareSkipsReads(t *testing.T) {
	rl := NewLimiter(1)
	defer rl.Stop()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	onLimit := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }
	h := rl.Middleware(func(*http.Request) string { return "ip" }, MutatingOnly, onLimit)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	now = now.Add(20*time.Second + 500*time.Millisecond)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "40", rec.Header().Get("Retry-After"), "rounded up to whole seconds")
}
