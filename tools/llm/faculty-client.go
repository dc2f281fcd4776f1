package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blackboard/tools/errs"
	"blackboard/tools/logger"
)

const (
	// FacultyID selects the persona answering on the ask-faculty function
	FacultyID = "a.pythagoras"

	// Apology replaces an empty answer
	Apology = "I apologize, but I could not generate a response."
)

// FacultyClient asks the ask-faculty edge function of a Supabase project
type FacultyClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewFacultyClient creates a client for the project at baseURL
func NewFacultyClient(baseURL, anonKey string, log *logger.Logger) *FacultyClient {
	if log == nil {
		log = logger.Default()
	}
	return &FacultyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        log.WithPrefix("faculty"),
	}
}

type facultyRequest struct {
	FacultyID           string    `json:"faculty_id"`
	Message             string    `json:"message"`
	ConversationHistory []Message `json:"conversation_history"`
	Context             string    `json:"context"`
	UseRAG              bool      `json:"use_rag"`
	UseCommonplace      bool      `json:"use_commonplace"`
	Temperature         float64   `json:"temperature"`
	MaxTokens           int       `json:"max_tokens"`
}

type facultyResponse struct {
	Response string          `json:"response"`
	Sources  json.RawMessage `json:"sources"`
}

// Ask posts message to {base}/functions/v1/ask-faculty
func (c *FacultyClient) Ask(ctx context.Context, message string, history []Message) (*Response, error) {
	start := time.Now()

	hist := recent(history)
	if hist == nil {
		hist = []Message{}
	}
	jsonBody, err := json.Marshal(facultyRequest{
		FacultyID:           FacultyID,
		Message:             message,
		ConversationHistory: hist,
		Context:             "dialogue",
		UseRAG:              true,
		UseCommonplace:      true,
		Temperature:         0.9,
		MaxTokens:           2000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/functions/v1/ask-faculty"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ask-faculty: %v", errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", errs.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Error("ask-faculty %s returned %d", url, resp.StatusCode)
		return nil, fmt.Errorf("%w: ask-faculty error: %d - %s", errs.ErrTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out facultyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", errs.ErrTransport, err)
	}

	content := out.Response
	if content == "" {
		content = Apology
	}
	return &Response{
		Content:  content,
		Sources:  out.Sources,
		Duration: time.Since(start),
		Model:    FacultyID,
	}, nil
}
