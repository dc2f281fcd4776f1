package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackboard/tools/errs"
	"blackboard/tools/logger"
)

func history(n int) []Message {
	out := make([]Message, n)
	for i := range out {
		out[i] = Message{Role: "user", Content: fmt.Sprint(i)}
	}
	return out
}

func TestFacultyAsk(t *testing.T) {
	var got facultyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/ask-faculty", r.URL.Path)
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"response": "The square on the hypotenuse...", "sources": [{"title": "Elements"}]}`))
	}))
	defer srv.Close()

	c := NewFacultyClient(srv.URL+"/", "anon", logger.Discard())
	resp, err := c.Ask(context.Background(), "why?", history(12))
	require.NoError(t, err)

	assert.Equal(t, "The square on the hypotenuse...", resp.Content)
	assert.JSONEq(t, `[{"title": "Elements"}]`, string(resp.Sources))

	assert.Equal(t, FacultyID, got.FacultyID)
	assert.Equal(t, "why?", got.Message)
	assert.Equal(t, "dialogue", got.Context)
	assert.Equal(t, 0.9, got.Temperature)
	assert.Equal(t, 2000, got.MaxTokens)
	assert.True(t, got.UseRAG)
	require.Len(t, got.ConversationHistory, HistoryLimit)
	assert.Equal(t, "2", got.ConversationHistory[0].Content)
}

func TestFacultyEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": ""}`))
	}))
	defer srv.Close()

	resp, err := NewFacultyClient(srv.URL, "", logger.Discard()).Ask(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, Apology, resp.Content)
}

func TestFacultyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such function", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFacultyClient(srv.URL, "", logger.Discard()).Ask(context.Background(), "hi", nil)
	require.ErrorIs(t, err, errs.ErrTransport)
	assert.Contains(t, err.Error(), "404")
}

func TestAnthropicAsk(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{
			"content": [{"type": "text", "text": "Draw a circle"}, {"type": "text", "text": " of radius 5"}],
			"model": "claude-test",
			"stop_reason": "max_tokens",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key", "", "be brief", logger.Discard())
	c.url = srv.URL

	resp, err := c.Ask(context.Background(), "circle?", history(2))
	require.NoError(t, err)
	assert.Equal(t, "Draw a circle of radius 5", resp.Content)
	assert.Equal(t, "claude-test", resp.Model)
	assert.True(t, resp.WasTruncated())
	assert.Equal(t, 10, resp.InputTokens)

	assert.Equal(t, "be brief", got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, Message{Role: "user", Content: "circle?"}, got.Messages[2])
}

func TestAnthropicAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key", "m", "", logger.Discard())
	c.url = srv.URL
	_, err := c.Ask(context.Background(), "hi", nil)
	require.ErrorIs(t, err, errs.ErrTransport)
	assert.Contains(t, err.Error(), "rate_limit_error - slow down")
}

func TestLocalAsk(t *testing.T) {
	var got struct {
		Messages []Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"model": "local", "choices": [{"message": {"content": "ok"}, "finish_reason": "stop"}]}`))
	}))
	defer srv.Close()

	resp, err := NewLocalClient(srv.URL, "sys", logger.Discard()).Ask(context.Background(), "q", history(1))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.False(t, resp.WasTruncated())

	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "q", got.Messages[2].Content)
}

func TestLocalEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	_, err := NewLocalClient(srv.URL, "", logger.Discard()).Ask(context.Background(), "q", nil)
	require.ErrorIs(t, err, errs.ErrTransport)
}

func TestClientsSatisfyInterface(t *testing.T) {
	var _ Client = (*AnthropicClient)(nil)
	var _ Client = (*FacultyClient)(nil)
	var _ Client = (*LocalClient)(nil)
}
