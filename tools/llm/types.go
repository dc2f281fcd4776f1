package llm

import (
	"context"
	"encoding/json"
	"time"
)

// HistoryLimit is how many prior messages are sent with a question
const HistoryLimit = 10

// Client is the interface for answer backends
type Client interface {
	// Ask sends message with the prior conversation and returns the answer
	Ask(ctx context.Context, message string, history []Message) (*Response, error)
}

// Message represents a conversation message
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Response from an answer backend
type Response struct {
	Content      string
	Sources      json.RawMessage // backend-specific citations, if any
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	Model        string
	StopReason   string // "end_turn", "max_tokens", "stop_sequence"
}

// WasTruncated returns true if the response hit the token limit
func (r *Response) WasTruncated() bool {
	return r.StopReason == "max_tokens"
}

// recent returns at most the last HistoryLimit messages
func recent(history []Message) []Message {
	if len(history) > HistoryLimit {
		return history[len(history)-HistoryLimit:]
	}
	return history
}
