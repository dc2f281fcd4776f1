package sage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"blackboard/tools/errs"
	"blackboard/tools/logger"
)

// DefaultCellURL is the public SageMathCell service
const DefaultCellURL = "https://sagecell.sagemath.org"

// CellClient runs programs on a SageMathCell service
type CellClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        *logger.Logger
}

type cellResponse struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout"`
}

// NewCellClient creates a client for the service at baseURL
func NewCellClient(baseURL string, log *logger.Logger) *CellClient {
	if baseURL == "" {
		baseURL = DefaultCellURL
	}
	if log == nil {
		log = logger.Default()
	}
	return &CellClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    Timeout,
		httpClient: &http.Client{},
		log:        log.WithPrefix("sagecell"),
	}
}

// SetTimeout overrides the per-call bound
func (c *CellClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Execute posts code to {base}/service and returns its stdout
func (c *CellClient) Execute(ctx context.Context, code string) (string, error) {
	done := c.log.Step("sage cell")
	defer done()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{"code": {code}}
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/service", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classify(ctx, callCtx, c.timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(ctx, callCtx, c.timeout, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: sage cell returned %d: %s", errs.ErrTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out cellResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: failed to parse sage cell reply: %v", errs.ErrTransport, err)
	}
	if !out.Success {
		return "", fmt.Errorf("sage computation failed: %s", strings.TrimSpace(out.Stdout))
	}
	return strings.TrimSpace(out.Stdout), nil
}
