package shape

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Point is a position in surface coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point
func (p Point) Distance(other Point) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// Rect is an axis-aligned bounding box
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains returns true if the point is inside the rectangle, edges included
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Union returns the smallest rectangle containing both rectangles
func (r Rect) Union(other Rect) Rect {
	x := math.Min(r.X, other.X)
	y := math.Min(r.Y, other.Y)
	x2 := math.Max(r.X+r.Width, other.X+other.Width)
	y2 := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// BoundsOf returns the bounding box of a set of points
func BoundsOf(points ...Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	minX, minY := floats.Min(xs), floats.Min(ys)
	return Rect{
		X:      minX,
		Y:      minY,
		Width:  floats.Max(xs) - minX,
		Height: floats.Max(ys) - minY,
	}
}

// Viewport is the visible region of a surface
type Viewport struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultViewport is used when a surface cannot report its size
var DefaultViewport = Viewport{Width: 1200, Height: 800}

// Center returns the middle of the viewport
func (v Viewport) Center() Point {
	return Point{X: v.X + v.Width/2, Y: v.Y + v.Height/2}
}

// Bounds implementations

func (c Circle) Bounds() Rect {
	return Rect{X: c.Center.X - c.Radius, Y: c.Center.Y - c.Radius, Width: 2 * c.Radius, Height: 2 * c.Radius}
}

func (l Line) Bounds() Rect {
	return BoundsOf(l.From, l.To)
}

func (r Rectangle) Bounds() Rect {
	return Rect{X: r.Origin.X, Y: r.Origin.Y, Width: r.Width, Height: r.Height}
}

func (p Polygon) Bounds() Rect {
	return BoundsOf(p.Points...)
}

func (t Triangle) Bounds() Rect {
	v := t.Vertices()
	return BoundsOf(v[:]...)
}

func (l Label) Bounds() Rect {
	return Rect{
		X:      l.Position.X - LabelBadgeRadius,
		Y:      l.Position.Y - LabelBadgeRadius,
		Width:  2 * LabelBadgeRadius,
		Height: 2 * LabelBadgeRadius,
	}
}

// Bounds approximates the text box with a fixed advance of 0.6em per rune
func (t Text) Bounds() Rect {
	return TextBounds(t.Position, t.Text, TextFontSize)
}

func (g Graph) Bounds() Rect {
	x, y := g.Axes()
	return x.Bounds().Union(y.Bounds())
}

// TextBounds approximates the box of a single text line anchored at its top-left
func TextBounds(pos Point, text string, fontSize float64) Rect {
	return Rect{
		X:      pos.X,
		Y:      pos.Y,
		Width:  float64(len([]rune(text))) * fontSize * 0.6,
		Height: fontSize,
	}
}
