package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"blackboard/entities/shape"
	"blackboard/tools/llm"
	"blackboard/tools/logger"
)

// Name is how the tutor signs its chat messages
const Name = "Pythagoras"

// Tutor answers questions through an LLM backend and remembers the recent
// conversation
type Tutor struct {
	client  llm.Client
	log     *logger.Logger
	mu      sync.Mutex
	history []llm.Message
}

// New creates a new Tutor
func New(client llm.Client, log *logger.Logger) *Tutor {
	if log == nil {
		log = logger.Default()
	}
	return &Tutor{
		client: client,
		log:    log.WithPrefix("tutor"),
	}
}

// Ask sends text with the recent history. The exchange is remembered only
// when the backend answered.
func (t *Tutor) Ask(ctx context.Context, text string) (*llm.Response, error) {
	done := t.log.Step("Asking " + Name)
	defer done()

	resp, err := t.client.Ask(ctx, text, t.History())
	if err != nil {
		return nil, fmt.Errorf("failed to ask %s: %w", Name, err)
	}
	t.log.Debug("answered in %s (%d chars)", resp.Duration, len(resp.Content))

	t.mu.Lock()
	t.history = append(t.history,
		llm.Message{Role: "user", Content: text},
		llm.Message{Role: "assistant", Content: resp.Content},
	)
	if n := len(t.history); n > llm.HistoryLimit {
		t.history = append([]llm.Message(nil), t.history[n-llm.HistoryLimit:]...)
	}
	t.mu.Unlock()

	return resp, nil
}

// History returns a copy of the remembered conversation, oldest first
func (t *Tutor) History() []llm.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]llm.Message(nil), t.history...)
}

// Reset forgets the conversation
func (t *Tutor) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = nil
}

// --- Directives ---

// DirectiveKind says what an answer asks the board to do
type DirectiveKind int

const (
	DirectiveNone DirectiveKind = iota
	DirectiveDraw
	DirectiveGraph
	DirectiveInstruction
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveDraw:
		return "draw"
	case DirectiveGraph:
		return "graph"
	case DirectiveInstruction:
		return "instruction"
	default:
		return "none"
	}
}

// Directive is a drawing request found in an answer
type Directive struct {
	Kind        DirectiveKind
	Command     shape.Command // DirectiveDraw
	Equation    string        // DirectiveGraph
	Instruction string        // DirectiveInstruction
}

var (
	drawingKeywords = []string{"draw", "create", "make", "add", "show", "display", "plot", "graph", "sketch"}

	// an equation runs to the end of its clause or sentence
	equationPattern   = regexp.MustCompile(`(?i)((?:y|f\(x\))\s*=\s*.+?)(?:[.!?](?:\s|$)|[,;\n]|$)`)
	assignmentPattern = regexp.MustCompile(`(\w+\s*=\s*.+?)(?:[.!?](?:\s|$)|[,;\n]|$)`)
)

// drawRequest is the JSON form an answer may embed, with parameters either
// nested under params or flat on the object
type drawRequest struct {
	Command  string         `json:"command"`
	Type     string         `json:"type"`
	Equation string         `json:"equation"`
	Params   map[string]any `json:"params"`
}

// ScanCommands looks for a drawing request in an answer. An embedded JSON draw
// command wins, then a graph equation, then a plain drawing instruction.
func ScanCommands(response string) (Directive, error) {
	if strings.TrimSpace(response) == "" {
		return Directive{}, nil
	}

	if req, raw, ok := findDrawRequest(response); ok {
		if req.Equation != "" && (strings.EqualFold(req.Type, "graph") || strings.EqualFold(req.Type, "graphFunction")) {
			return Directive{Kind: DirectiveGraph, Equation: req.Equation}, nil
		}
		params := req.Params
		if params == nil {
			params = raw
		}
		cmd, err := shape.FromParams(req.Type, params)
		if err != nil {
			return Directive{}, fmt.Errorf("draw command %q: %w", req.Type, err)
		}
		return Directive{Kind: DirectiveDraw, Command: cmd}, nil
	}

	lower := strings.ToLower(response)
	if !containsAny(lower, drawingKeywords) {
		return Directive{}, nil
	}

	if strings.Contains(lower, "graph") || strings.Contains(lower, "plot") {
		if eq := findEquation(response); eq != "" {
			return Directive{Kind: DirectiveGraph, Equation: eq}, nil
		}
	}
	return Directive{Kind: DirectiveInstruction, Instruction: response}, nil
}

// findDrawRequest decodes the first JSON object in s that is a draw command
func findDrawRequest(s string) (drawRequest, map[string]any, bool) {
	for i := strings.IndexByte(s, '{'); i >= 0; {
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw map[string]any
		if err := dec.Decode(&raw); err == nil {
			data, _ := json.Marshal(raw)
			var req drawRequest
			if json.Unmarshal(data, &req) == nil && req.Command == "draw" && req.Type != "" {
				return req, raw, true
			}
		}
		next := strings.IndexByte(s[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return drawRequest{}, nil, false
}

func findEquation(s string) string {
	m := equationPattern.FindStringSubmatch(s)
	if m == nil {
		m = assignmentPattern.FindStringSubmatch(s)
	}
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
