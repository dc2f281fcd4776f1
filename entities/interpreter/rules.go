package interpreter

import (
	"math"

	"blackboard/entities/shape"
)

// Input is what a rule sees: the raw instruction, its lower-cased form and the
// surface context.
type Input struct {
	Text  string
	Lower string
	Context
}

// Rule is one entry of the ordered rule list. Match is a keyword predicate on the
// lower-cased instruction; Extract builds the command. An Extract that returns
// ok=false passes the instruction on to the next rule.
type Rule struct {
	Name    string
	Match   func(lower string) bool
	Extract func(in Input) (cmd shape.Command, ok bool, err error)
}

// DefaultRules returns the rule list in priority order. Keyword sets overlap
// ("graph" sentences often mention lines), so the order is significant.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "circle", Match: keywords("circle"), Extract: extractCircle},
		{Name: "line", Match: keywords("line"), Extract: extractLine},
		{Name: "square", Match: keywords("square"), Extract: extractSquare},
		{Name: "rectangle", Match: keywords("rectangle", "rect"), Extract: extractRectangle},
		{Name: "triangle", Match: keywords("triangle"), Extract: extractTriangle},
		{Name: "graph", Match: matchGraph, Extract: extractGraph},
		{Name: "label", Match: keywords("label", "mark"), Extract: extractLabel},
		{Name: "text", Match: keywords("text", "write"), Extract: extractText},
		{Name: "draw", Match: matchDrawFallback, Extract: extractDrawFallback},
		{Name: "plot", Match: keywords("plot", "show", "graph"), Extract: extractPlotFallback},
	}
}

func keywords(words ...string) func(string) bool {
	return func(lower string) bool {
		return containsAny(lower, words...)
	}
}

func matchGraph(lower string) bool {
	if containsAny(lower, "graph") {
		return true
	}
	return containsAny(lower, "plot") && containsAny(lower, "function", "graph")
}

func matchDrawFallback(lower string) bool {
	return containsAny(lower, "draw") && !containsAny(lower, "circle", "line", "rect", "triangle")
}

// --- Rule extractors ---

func extractCircle(in Input) (shape.Command, bool, error) {
	radius, ok := firstNumber(in.Text, radiusPattern, rEqualsPattern)
	if !ok {
		radius = 50
	}
	center, ok := firstPoint(in.Text, centerPattern, atPattern, barePairPattern)
	if !ok {
		center = in.Viewport.Center()
	}
	return shape.Circle{Center: center, Radius: radius}, true, nil
}

func extractLine(in Input) (shape.Command, bool, error) {
	if pts := parenPairs(in.Text); len(pts) >= 2 {
		return shape.Line{From: pts[0], To: pts[1]}, true, nil
	}
	if m := fromToPattern.FindStringSubmatch(in.Text); m != nil {
		from, okFrom := pointFrom(m[1], m[2])
		to, okTo := pointFrom(m[3], m[4])
		if okFrom && okTo {
			return shape.Line{From: from, To: to}, true, nil
		}
	}
	c := in.Viewport.Center()
	length := math.Min(200, in.Viewport.Width*0.3)
	return horizontal(c, length), true, nil
}

func extractSquare(in Input) (shape.Command, bool, error) {
	size, ok := firstNumber(in.Text, sizePattern, dimensionsPattern)
	if !ok {
		size = 100
	}
	return shape.CenteredRectangle(in.Viewport.Center(), size, size), true, nil
}

func extractRectangle(in Input) (shape.Command, bool, error) {
	width, height := 100.0, 80.0
	if m := widthHeightPattern.FindStringSubmatch(in.Text); m != nil {
		if p, ok := pointFrom(m[1], m[2]); ok {
			width, height = p.X, p.Y
		}
	}
	return shape.CenteredRectangle(in.Viewport.Center(), width, height), true, nil
}

func extractTriangle(in Input) (shape.Command, bool, error) {
	return shape.Triangle{Center: in.Viewport.Center(), Size: 100}, true, nil
}

// extractGraph emits the axes through the context before deciding what to
// return, so the axes land on the surface even when nothing else does. The
// returned command is a placeholder: a fixed diagonal when an equation is
// present, otherwise the x axis again. Real curves come from the plot package.
func extractGraph(in Input) (shape.Command, bool, error) {
	c := in.Viewport.Center()
	axis := math.Min(300, in.Viewport.Width*0.4)
	graph := shape.Graph{Origin: c, AxisLength: axis}

	if in.Emit != nil {
		if err := in.Emit(graph); err != nil {
			return nil, false, err
		}
	}

	if _, ok := firstString(in.Text, yEqualsPattern, fOfXPattern); ok {
		return shape.Line{
			From: shape.Pt(c.X-axis/2, c.Y-50),
			To:   shape.Pt(c.X+axis/2, c.Y+50),
		}, true, nil
	}
	xAxis, _ := graph.Axes()
	return xAxis, true, nil
}

func extractLabel(in Input) (shape.Command, bool, error) {
	text, ok := firstString(in.Text, labelPattern, wordPattern)
	if !ok {
		return nil, false, nil
	}
	pos, ok := firstPoint(in.Text, atPattern)
	if !ok {
		pos = in.Viewport.Center()
	}
	return shape.Label{Position: pos, Text: text}, true, nil
}

func extractText(in Input) (shape.Command, bool, error) {
	text, ok := firstString(in.Text, quotedPattern, textPattern, writePattern)
	if !ok {
		return nil, false, nil
	}
	pos, ok := firstPoint(in.Text, atPattern)
	if !ok {
		pos = in.Viewport.Center()
	}
	return shape.Text{Position: pos, Text: text}, true, nil
}

func extractDrawFallback(in Input) (shape.Command, bool, error) {
	return shape.CenteredRectangle(in.Viewport.Center(), 100, 100), true, nil
}

func extractPlotFallback(in Input) (shape.Command, bool, error) {
	return horizontal(in.Viewport.Center(), 200), true, nil
}

func horizontal(c shape.Point, length float64) shape.Line {
	return shape.Line{
		From: shape.Pt(c.X-length/2, c.Y),
		To:   shape.Pt(c.X+length/2, c.Y),
	}
}
