package interpreter

import (
	"regexp"
	"strconv"
	"strings"

	"blackboard/entities/shape"
)

// number is the numeric token every pattern extracts. It is unsigned, so
// "radius -5" matches no size pattern and the default applies. Decimals are
// kept whole rather than cut at the point.
const number = `(\d+(?:\.\d+)?)`

const pair = number + `[,\s]+` + number

var (
	radiusPattern  = regexp.MustCompile(`(?i)radius[:\s]+` + number)
	rEqualsPattern = regexp.MustCompile(`(?i)r[:\s]*=?\s*` + number)

	centerPattern   = regexp.MustCompile(`(?i)center[:\s]+\(` + pair + `\)`)
	atPattern       = regexp.MustCompile(`(?i)at[:\s]+\(` + pair + `\)`)
	barePairPattern = regexp.MustCompile(pair)
	parenPattern    = regexp.MustCompile(`\(` + pair + `\)`)

	fromToPattern = regexp.MustCompile(`(?i)from[:\s]+` + pair + `\s+to[:\s]+` + pair)

	sizePattern        = regexp.MustCompile(`(?i)size[:\s]+` + number)
	dimensionsPattern  = regexp.MustCompile(`(?i)` + number + `\s*x\s*\d+`)
	widthHeightPattern = regexp.MustCompile(`(?i)width[:\s]+` + number + `.*height[:\s]+` + number)

	yEqualsPattern = regexp.MustCompile(`(?i)y\s*=\s*([^,]+)`)
	fOfXPattern    = regexp.MustCompile(`(?i)f\(x\)\s*=\s*([^,]+)`)

	labelPattern = regexp.MustCompile(`(?i)label[:\s]+['"]?(\w+)['"]?`)
	wordPattern  = regexp.MustCompile(`['"]?(\w+)['"]?`)

	quotedPattern = regexp.MustCompile(`['"]([^'"]+)['"]`)
	textPattern   = regexp.MustCompile(`(?i)text[:\s]+(.+?)(?:\s+at|\s*$)`)
	writePattern  = regexp.MustCompile(`(?i)write[:\s]+(.+?)(?:\s+at|\s*$)`)
)

// --- Extraction helpers ---

// firstNumber returns the first capture of the first pattern that matches
func firstNumber(s string, patterns ...*regexp.Regexp) (float64, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

// firstPoint returns the (x, y) captured by the first pattern that matches
func firstPoint(s string, patterns ...*regexp.Regexp) (shape.Point, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); m != nil {
			if p, ok := pointFrom(m[1], m[2]); ok {
				return p, true
			}
		}
	}
	return shape.Point{}, false
}

// firstString returns the trimmed first capture of the first pattern that matches
func firstString(s string, patterns ...*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// parenPairs returns every "(x, y)" pair in order of appearance
func parenPairs(s string) []shape.Point {
	var pts []shape.Point
	for _, m := range parenPattern.FindAllStringSubmatch(s, -1) {
		if p, ok := pointFrom(m[1], m[2]); ok {
			pts = append(pts, p)
		}
	}
	return pts
}

func pointFrom(xs, ys string) (shape.Point, bool) {
	x, errX := strconv.ParseFloat(xs, 64)
	y, errY := strconv.ParseFloat(ys, 64)
	if errX != nil || errY != nil {
		return shape.Point{}, false
	}
	return shape.Pt(x, y), true
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
