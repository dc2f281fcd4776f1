// Package controller decides what a chat line asks of the classroom and
// carries it out: drawing on the board, computing with Sage or changing a
// parameter. Lines matching none of these are plain chat.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"blackboard/entities/board"
	"blackboard/entities/interpreter"
	"blackboard/entities/params"
	"blackboard/tools/desmos"
	"blackboard/tools/errs"
	"blackboard/tools/logger"
	"blackboard/tools/plot"
	"blackboard/tools/sage"
)

// Kind is the class of a processed line
type Kind int

const (
	KindDrawing Kind = iota + 1
	KindComputation
	KindParameter
	KindDesmos
)

func (k Kind) String() string {
	switch k {
	case KindDrawing:
		return "drawing"
	case KindComputation:
		return "computation"
	case KindParameter:
		return "parameter"
	case KindDesmos:
		return "desmos"
	default:
		return "chat"
	}
}

// Result describes what a line did
type Result struct {
	Kind    Kind
	Message string // summary for the system message
	Output  string // computation output
	Link    string // calculator link
}

// ErrNoBackend is returned for computations when no Sage backend is set
var ErrNoBackend = errors.New("no computation backend configured")

var (
	drawingKeywords     = []string{"draw", "create", "make", "add", "show", "display", "plot"}
	computationKeywords = []string{"calculate", "compute", "solve", "find", "what is", "derivative", "integral", "area", "perimeter"}
	parameterKeywords   = []string{"set", "change", "adjust", "parameter", "slider"}
)

// Controller routes chat lines
type Controller struct {
	interp   *interpreter.Interpreter
	board    *board.Board
	registry *params.Registry
	sage     sage.Backend
	log      *logger.Logger
}

// New creates a controller. backend may be nil, in which case computations
// fail with ErrNoBackend.
func New(interp *interpreter.Interpreter, b *board.Board, registry *params.Registry, backend sage.Backend, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Default()
	}
	return &Controller{
		interp:   interp,
		board:    b,
		registry: registry,
		sage:     backend,
		log:      log.WithPrefix("controller"),
	}
}

// Classify reports which handler a line goes to. Desmos requests come first,
// then drawing, computation and parameter keywords; zero means plain chat.
func Classify(message string) Kind {
	lower := strings.ToLower(strings.TrimSpace(message))
	switch {
	case strings.Contains(lower, "desmos"):
		return KindDesmos
	case containsAny(lower, drawingKeywords):
		return KindDrawing
	case containsAny(lower, computationKeywords):
		return KindComputation
	case containsAny(lower, parameterKeywords):
		return KindParameter
	}
	return 0
}

// Process handles one chat line. It returns a nil result for plain chat.
func (c *Controller) Process(ctx context.Context, message string) (*Result, error) {
	switch Classify(message) {
	case KindDesmos:
		return c.handleDesmos(message)
	case KindDrawing:
		return c.handleDrawing(message)
	case KindComputation:
		return c.handleComputation(ctx, message)
	case KindParameter:
		return c.handleParameter(message)
	}
	return nil, nil
}

// --- Drawing ---

var equationPattern = regexp.MustCompile(`(?i)(?:y|f\(x\))\s*=\s*[^,;]+`)

// Draw interprets an instruction and executes it on the board. Graph and plot
// requests carrying an equation are plotted as a curve.
func (c *Controller) Draw(instruction string) error {
	lower := strings.ToLower(instruction)
	if strings.Contains(lower, "plot") || strings.Contains(lower, "graph") {
		if eq := equationPattern.FindString(instruction); eq != "" {
			err := c.Plot(eq)
			if err == nil {
				return nil
			}
			c.log.Debug("plotting %q failed, interpreting instead: %v", eq, err)
		}
	}

	cmd, err := c.interp.Parse(instruction, interpreter.Context{
		Viewport: c.board.Viewport(),
		Emit:     c.board.Execute,
	})
	if err != nil {
		return err
	}
	return c.board.Execute(cmd)
}

// Plot graphs equation around the board centre
func (c *Controller) Plot(equation string) error {
	cmds, err := plot.Graph(equation, c.board.Viewport(), plot.DefaultOptions())
	if err != nil {
		return err
	}
	return c.board.ExecuteAll(cmds)
}

func (c *Controller) handleDrawing(message string) (*Result, error) {
	if err := c.Draw(message); err != nil {
		return nil, err
	}
	return &Result{Kind: KindDrawing, Message: "Drawing command executed"}, nil
}

// --- Desmos ---

func (c *Controller) handleDesmos(message string) (*Result, error) {
	expr, ok := desmos.ParseCommand(message)
	if !ok {
		return &Result{Kind: KindDesmos, Message: "Desmos calculator: " + desmos.BaseURL, Link: desmos.BaseURL}, nil
	}
	link := desmos.CalculatorURL(expr, &desmos.DefaultBounds)
	return &Result{Kind: KindDesmos, Message: fmt.Sprintf("Graph %s on Desmos: %s", expr, link), Link: link}, nil
}

// --- Parameters ---

func (c *Controller) handleParameter(message string) (*Result, error) {
	a, ok := params.ParseAssignment(message)
	if !ok {
		return nil, fmt.Errorf("%w: could not parse parameter command", errs.ErrUnrecognizedInstruction)
	}
	_, existed := c.registry.Get(a.Name)
	stored, err := c.registry.Set(a.Name, a.Value)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Set %s to %s", a.Name, formatNumber(stored))
	if !existed {
		msg = fmt.Sprintf("Created parameter %s = %s", a.Name, formatNumber(stored))
	}
	return &Result{Kind: KindParameter, Message: msg}, nil
}

// --- Computation ---

var (
	radiusPattern   = regexp.MustCompile(`(?i)radius[:\s]+(\d+\.?\d*)`)
	rPattern        = regexp.MustCompile(`(?i)\br[:\s]*=?\s*(\d+\.?\d*)`)
	sidesPattern    = regexp.MustCompile(`(\d+\.?\d*)[,\s]+(\d+\.?\d*)[,\s]+(\d+\.?\d*)`)
	dimsPattern     = regexp.MustCompile(`(?i)width[:\s]+(\d+\.?\d*).*height[:\s]+(\d+\.?\d*)`)
	polygonPattern  = regexp.MustCompile(`(?i)(\d+)\s*sides?\b.*?\bside(?:\s+length)?[:\s]+(?:of\s+)?(\d+\.?\d*)`)
	solvePattern    = regexp.MustCompile(`(?i)equation[:\s]+(.+)`)
	derivPattern    = regexp.MustCompile(`(?i)derivative[:\s]+of[:\s]+(.+)`)
	integralPattern = regexp.MustCompile(`(?i)integral[:\s]+of[:\s]+(.+?)(?:\s+from\s+(-?\d+\.?\d*)\s+to\s+(-?\d+\.?\d*))?\s*$`)
	matrixPattern   = regexp.MustCompile(`\[\s*\[[^\[\]]*\](?:\s*,\s*\[[^\[\]]*\])*\s*\]`)
	errUnparseable  = fmt.Errorf("%w: could not parse computation command", errs.ErrUnrecognizedInstruction)
)

func (c *Controller) handleComputation(ctx context.Context, message string) (*Result, error) {
	code, summary, err := Program(message)
	if err != nil {
		return nil, err
	}
	if c.sage == nil {
		return nil, ErrNoBackend
	}

	out, err := c.sage.Execute(ctx, code)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindComputation, Message: summary, Output: out}, nil
}

// Program builds the Sage program a computation request asks for, with a
// short summary of what it computes
func Program(message string) (code, summary string, err error) {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "area") || strings.Contains(lower, "perimeter") {
		switch {
		case strings.Contains(lower, "circle"):
			r := 1.0
			if m := firstMatch(message, radiusPattern, rPattern); m != nil {
				r, _ = strconv.ParseFloat(m[1], 64)
			}
			code, err = sage.Geometry("circle", sage.GeometryParams{Radius: r})
			return code, "Computed circle area with radius " + formatNumber(r), err

		case strings.Contains(lower, "triangle"):
			if m := sidesPattern.FindStringSubmatch(message); m != nil {
				code, err = sage.Geometry("triangle", sage.GeometryParams{A: parse(m[1]), B: parse(m[2]), C: parse(m[3])})
				return code, "Computed triangle area", err
			}

		case strings.Contains(lower, "rectangle"):
			if m := dimsPattern.FindStringSubmatch(message); m != nil {
				code, err = sage.Geometry("rectangle", sage.GeometryParams{Width: parse(m[1]), Height: parse(m[2])})
				return code, "Computed rectangle area", err
			}

		case strings.Contains(lower, "polygon") || strings.Contains(lower, "sides"):
			if m := polygonPattern.FindStringSubmatch(message); m != nil {
				n, _ := strconv.Atoi(m[1])
				code, err = sage.Geometry("polygon", sage.GeometryParams{Sides: n, Side: parse(m[2])})
				return code, "Computed regular polygon area", err
			}
		}
	}

	if strings.Contains(lower, "solve") && strings.Contains(lower, "equation") {
		if m := solvePattern.FindStringSubmatch(message); m != nil {
			return sage.Solve(strings.TrimSpace(m[1]), "x"), "Solved equation", nil
		}
	}

	if strings.Contains(lower, "derivative") {
		if m := derivPattern.FindStringSubmatch(message); m != nil {
			return sage.Derivative(strings.TrimSpace(m[1]), "x", 1), "Computed derivative", nil
		}
	}

	if strings.Contains(lower, "integral") {
		if m := integralPattern.FindStringSubmatch(message); m != nil {
			var bounds *sage.Bounds
			if m[2] != "" {
				bounds = &sage.Bounds{Lower: parse(m[2]), Upper: parse(m[3])}
			}
			return sage.Integral(strings.TrimSpace(m[1]), "x", bounds), "Computed integral", nil
		}
	}

	if strings.Contains(lower, "determinant") || strings.Contains(lower, "inverse") || strings.Contains(lower, "multiply") {
		return matrixProgram(lower, message)
	}

	return "", "", errUnparseable
}

func matrixProgram(lower, message string) (string, string, error) {
	var ms [][][]float64
	for _, raw := range matrixPattern.FindAllString(message, -1) {
		var m [][]float64
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return "", "", fmt.Errorf("%w: bad matrix %s", errs.ErrInvalidInstruction, raw)
		}
		ms = append(ms, m)
	}
	if len(ms) == 0 {
		return "", "", errUnparseable
	}

	switch {
	case strings.Contains(lower, "determinant"):
		code, err := sage.Matrix(sage.OpDeterminant, ms[0], nil)
		return code, "Computed determinant", err
	case strings.Contains(lower, "inverse"):
		code, err := sage.Matrix(sage.OpInverse, ms[0], nil)
		return code, "Computed inverse", err
	default:
		if len(ms) < 2 {
			return "", "", fmt.Errorf("%w: multiply needs two matrices", errs.ErrInvalidInstruction)
		}
		code, err := sage.Matrix(sage.OpMultiply, ms[0], ms[1])
		return code, "Multiplied matrices", err
	}
}

func firstMatch(s string, patterns ...*regexp.Regexp) []string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return m
		}
	}
	return nil
}

func parse(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
