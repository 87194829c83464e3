package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"handswers-backend/application/ports"
	pkgerrors "handswers-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewGeminiClient(GeminiConfig{
		APIKey:          "k",
		BaseURL:         srv.URL,
		Model:           "models/gemini-2.0-flash",
		SystemPrompt:    "Be Socratic.",
		Temperature:     0.4,
		MaxOutputTokens: 800,
	}, srv.Client(), zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestGeminiClient_Reply(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"What "},{"text":"do you think?"}]}}]}`))
	})

	reply, err := c.Reply(context.Background(), []ports.ChatTurn{
		{Role: "user", Text: "Main question: q"},
		{Role: "user", Text: "help"},
	})
	require.NoError(t, err)
	assert.Equal(t, "What do you think?", reply)

	require.Len(t, got.Contents, 2)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "Be Socratic.", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, 800, got.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.4, got.GenerationConfig.Temperature, 1e-9)
}

func TestGeminiClient_EmptyCandidateIsInternal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Reply(context.Background(), []ports.ChatTurn{{Role: "user", Text: "x"}})
	assert.True(t, pkgerrors.IsInternal(err))
}

func TestGeminiClient_BreakerOpensOnOutage(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	})

	for i := 0; i < 7; i++ {
		_, err := c.Reply(context.Background(), []ports.ChatTurn{{Role: "user", Text: "x"}})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsInternal(err))
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestGeminiClient_ClientErrorsDoNotTrip(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	for i := 0; i < 7; i++ {
		_, _ = c.Reply(context.Background(), []ports.ChatTurn{{Role: "user", Text: "x"}})
	}
	assert.Equal(t, int32(7), calls.Load())
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(GeminiConfig{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestGeminiClient_TransportErrorOmitsKey(t *testing.T) {
	const key = "SUPERSECRETKEY"
	core, logs := observer.New(zap.DebugLevel)
	c, err := NewGeminiClient(GeminiConfig{
		APIKey:  key,
		BaseURL: "http://127.0.0.1:1",
		Model:   "m",
	}, nil, zap.New(core))
	require.NoError(t, err)

	_, err = c.Reply(context.Background(), []ports.ChatTurn{{Role: "user", Text: "hi"}})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		assert.NotContains(t, entry.Message, key)
		for field, v := range entry.ContextMap() {
			assert.False(t, strings.Contains(fmt.Sprint(v), key), field)
		}
	}
}
