// Package desmos builds links to the Desmos graphing calculator for
// expressions mentioned in class.
package desmos

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// BaseURL is the calculator page
const BaseURL = "https://www.desmos.com/calculator"

// Bounds is the calculator viewport
type Bounds struct {
	Left   float64
	Right  float64
	Bottom float64
	Top    float64
}

// DefaultBounds is used when graphing from chat
var DefaultBounds = Bounds{Left: -10, Right: 10, Bottom: -10, Top: 10}

var (
	fOfX      = regexp.MustCompile(`(?i)f\(x\)\s*=\s*`)
	operators = regexp.MustCompile(`\s*([=+\-*/^])\s*`)

	commandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)y\s*=\s*([^,]+)`),
		regexp.MustCompile(`(?i)f\(x\)\s*=\s*([^,]+)`),
		regexp.MustCompile(`(?i)graph\s+(.+?)(?:\s+from|\s+to|$)`),
		regexp.MustCompile(`(?i)plot\s+(.+?)(?:\s+from|\s+to|$)`),
	}
)

// Normalize converts an expression to the calculator's form: "f(x) =" becomes
// "y=" and spaces around operators are dropped
func Normalize(expression string) string {
	expr := strings.TrimSpace(expression)
	expr = fOfX.ReplaceAllString(expr, "y=")
	return operators.ReplaceAllString(expr, "$1")
}

// CalculatorURL links to a calculator showing expression. A nil bounds leaves
// the calculator's own viewport.
func CalculatorURL(expression string, bounds *Bounds) string {
	params := url.Values{}
	if expr := Normalize(expression); expr != "" {
		params.Set("expr", expr)
	}
	if bounds != nil {
		params.Set("xAxis", fmt.Sprintf("%g,%g", bounds.Left, bounds.Right))
		params.Set("yAxis", fmt.Sprintf("%g,%g", bounds.Bottom, bounds.Top))
	}
	if len(params) == 0 {
		return BaseURL
	}
	return BaseURL + "?" + params.Encode()
}

// ParseCommand extracts the expression to graph from an instruction that
// mentions desmos, graph or plot
func ParseCommand(instruction string) (string, bool) {
	lower := strings.ToLower(instruction)
	if !strings.Contains(lower, "desmos") && !strings.Contains(lower, "graph") && !strings.Contains(lower, "plot") {
		return "", false
	}
	for _, p := range commandPatterns {
		if m := p.FindStringSubmatch(instruction); m != nil {
			if expr := strings.TrimSpace(m[1]); expr != "" {
				return expr, true
			}
		}
	}
	return "", false
}
