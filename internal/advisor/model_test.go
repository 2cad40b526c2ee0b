package advisor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestGemini(t *testing.T, status int, body string) (*GeminiModel, *string) {
	t.Helper()
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		data, _ := io.ReadAll(r.Body)
		gotPrompt = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	m, err := newGeminiModel(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  srv.Client(),
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	}, "gemini-2.0-flash")
	require.NoError(t, err)
	return m, &gotPrompt
}

func TestGeminiModel_Generate(t *testing.T) {
	m, prompt := newTestGemini(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Smanjite troškove "},{"text":"zabave."}]}}]}`)

	text, err := m.Generate(context.Background(), "Analiziraj potrošnju")
	require.NoError(t, err)
	assert.Equal(t, "Smanjite troškove zabave.", text)
	assert.Contains(t, *prompt, "Analiziraj potrošnju")
}

func TestGeminiModel_EmptyAnswer(t *testing.T) {
	m, _ := newTestGemini(t, http.StatusOK, `{"candidates":[]}`)

	_, err := m.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiModel_APIError(t *testing.T) {
	m, _ := newTestGemini(t, http.StatusBadRequest,
		`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`)

	_, err := m.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyResponse)
}

func TestNewGeminiModel_RequiresModel(t *testing.T) {
	_, err := NewGeminiModel(context.Background(), "key", " ")
	assert.Error(t, err)
}
