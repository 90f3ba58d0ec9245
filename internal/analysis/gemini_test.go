package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"message\": \"Meow\","}, {"text": " \"mood\": \"happy\"}"}]}}]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	g, err := NewGemini(ctx, "test-key", "", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	text, err := g.Generate(ctx, "xin chào")
	require.NoError(t, err)
	assert.Equal(t, `{"message": "Meow", "mood": "happy"}`, text)
	assert.Equal(t, "/v1beta/models/"+DefaultModel+":generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)

	cfg, _ := gotBody["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", cfg["responseMimeType"])

	res := NewBridge(g, nil).Analyze(ctx, sample(), 1245000)
	assert.Equal(t, MoodHappy, res.Mood)
}

func TestGeminiEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates": []}`)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "k", "gemini-x", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiSkipsThoughtParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "thinking...", "thought": true}, {"text": "{\"mood\": \"neutral\"}"}]}}]}`)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "k", "", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	text, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"mood": "neutral"}`, text)
}

func TestGeminiAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "k", "", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), " ", "")
	assert.Error(t, err)
}
