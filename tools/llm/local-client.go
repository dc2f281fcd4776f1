package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"blackboard/tools/errs"
	"blackboard/tools/logger"
)

// DefaultLocalURL is LM Studio's OpenAI-compatible endpoint
const DefaultLocalURL = "http://localhost:1234/v1/chat/completions"

// LocalClient talks to an OpenAI-compatible server such as LM Studio
type LocalClient struct {
	url        string
	system     string
	httpClient *http.Client
	log        *logger.Logger
}

func NewLocalClient(url, system string, log *logger.Logger) *LocalClient {
	if url == "" {
		url = DefaultLocalURL
	}
	if log == nil {
		log = logger.Default()
	}
	return &LocalClient{
		url:        url,
		system:     system,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        log.WithPrefix("local"),
	}
}

func (c *LocalClient) Ask(ctx context.Context, message string, history []Message) (*Response, error) {
	start := time.Now()

	msgs := []Message{{Role: "system", Content: c.system}}
	msgs = append(msgs, recent(history)...)
	msgs = append(msgs, Message{Role: "user", Content: message})

	data, err := json.Marshal(map[string]any{
		"messages":   msgs,
		"max_tokens": 2000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: LMStudio connection failed: %v", errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", errs.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API error %d: %s", errs.ErrTransport, resp.StatusCode, string(respBody))
	}

	var result struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", errs.ErrTransport, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", errs.ErrTransport)
	}

	c.log.Debug("received %d chars", len(result.Choices[0].Message.Content))
	stop := "end_turn"
	if result.Choices[0].FinishReason == "length" {
		stop = "max_tokens"
	}
	return &Response{
		Content:    result.Choices[0].Message.Content,
		Duration:   time.Since(start),
		Model:      result.Model,
		StopReason: stop,
	}, nil
}
