package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/interview-coach/internal/config"
)

func newTestClient(url, key string) *Client {
	return NewClient(config.Gemini{
		APIKey:     key,
		Model:      "test-model",
		BaseURL:    url,
		Timeout:    2 * time.Second,
		MaxElapsed: 5 * time.Second,
	})
}

func writeCandidate(t *testing.T, w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(GenerateResponse{
		Candidates: []Candidate{{Content: Content{Parts: []Part{{Text: text}}}}},
	})
	require.NoError(t, err)
}

func TestGenerateText_Success(t *testing.T) {
	var got GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCandidate(t, w, "  hello world \n")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")
	text, err := c.GenerateText(context.Background(), "prompt", GenerationConfig{Temperature: 0.7, MaxOutputTokens: 1024})

	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "prompt", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.7, got.GenerationConfig.Temperature)
	assert.Equal(t, 1024, got.GenerationConfig.MaxOutputTokens)
}

func TestGenerateText_RetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeCandidate(t, w, "ok")
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL, "k").GenerateText(context.Background(), "p", GenerationConfig{})

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerateText_PermanentError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad prompt","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "k").GenerateText(context.Background(), "p", GenerationConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenerateText_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "k").GenerateText(context.Background(), "p", GenerationConfig{})
	assert.ErrorContains(t, err, "empty response")
}

func TestGenerateText_NotConfigured(t *testing.T) {
	_, err := newTestClient("http://unused", "").GenerateText(context.Background(), "p", GenerationConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateText_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL, "k").GenerateText(ctx, "p", GenerationConfig{})
	assert.Error(t, err)
}
