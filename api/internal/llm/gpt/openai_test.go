package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"equity-lens/api/internal/llm"
)

func newTestEngine(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	e := New("test-key", "gpt-4o-mini", nil).WithHTTPClient(srv.Client())
	e.BaseURL = srv.URL
	return e
}

func TestComplete_SendsPromptAndReadsOutputText(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		input := body["input"].([]any)
		require.Len(t, input, 2)
		assert.Equal(t, "system", input[0].(map[string]any)["role"])

		_, _ = w.Write([]byte(`{"output_text": "{\"overallScore\": 80}"}`))
	})

	out, err := e.Complete(context.Background(), llm.Prompt{System: "sys", User: "user"})
	require.NoError(t, err)
	assert.Equal(t, `{"overallScore": 80}`, out)
}

func TestComplete_ConcatenatesOutputSegments(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output": [{"role": "assistant", "content": [
			{"type": "output_text", "text": "part one"},
			{"type": "refusal", "text": "skip"},
			{"type": "text", "text": "part two"}
		]}]}`))
	})

	out, err := e.Complete(context.Background(), llm.Prompt{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "part one\npart two", out)
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls int32
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"output_text": "ok"}`))
	})

	out, err := e.Complete(context.Background(), llm.Prompt{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestComplete_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	_, err := e.Complete(context.Background(), llm.Prompt{User: "u"})
	var se *llm.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestComplete_EmptyKey(t *testing.T) {
	_, err := New("", "m", nil).Complete(context.Background(), llm.Prompt{})
	require.ErrorIs(t, err, llm.ErrEmptyAPIKey)
}

func TestWithModel_DoesNotMutateOriginal(t *testing.T) {
	e := New("k", "gpt-4o-mini", nil)
	other := e.WithModel("gpt-4.1")

	assert.Equal(t, "gpt-4o-mini", e.GetModel())
	assert.Equal(t, "gpt-4.1", other.GetModel())
}

func TestComplete_EmptyOutputIsNotAnError(t *testing.T) {
	var calls int32
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"output_text": ""}`))
	})

	out, err := e.Complete(context.Background(), llm.Prompt{User: "u"})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestComplete_LogsUnderCallerLoggerName(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := New("test-key", "gpt-4o-mini", zap.New(core).Named("gpt"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output_text": ""}`))
	}))
	t.Cleanup(srv.Close)
	e.WithHTTPClient(srv.Client()).BaseURL = srv.URL

	_, err := e.Complete(context.Background(), llm.Prompt{User: "u"})
	require.NoError(t, err)

	entries := logs.FilterMessage("empty completion").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "gpt", entries[0].LoggerName)
}
