// Package shape defines the Shape Command model: backend-independent descriptions of
// the primitives a whiteboard surface can draw.
package shape

import (
	"fmt"
	"math"

	"blackboard/tools/errs"
)

// Kind tags a Shape Command variant
type Kind string

const (
	KindCircle    Kind = "circle"
	KindLine      Kind = "line"
	KindRectangle Kind = "rectangle"
	KindPolygon   Kind = "polygon"
	KindTriangle  Kind = "triangle"
	KindLabel     Kind = "label"
	KindText      Kind = "text"
	KindGraph     Kind = "graph"
)

// Drawing constants shared by every surface adapter.
const (
	TriangleHeightRatio = 0.866
	LabelBadgeRadius    = 12.0
	TextFontSize        = 24.0
	LabelFontSize       = 14.0
)

// Command is one drawable primitive. The set of implementations is closed.
type Command interface {
	Kind() Kind
	Validate() error
	Bounds() Rect
	command()
}

// Circle is a circle around Center
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// Line is a straight segment
type Line struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// Rectangle is an axis-aligned rectangle whose Origin is the min corner
type Rectangle struct {
	Origin Point   `json:"origin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Polygon is a closed path through Points. Open marks a provisional path that is
// still being clicked together and has not been committed yet.
type Polygon struct {
	Points []Point `json:"points"`
	Open   bool    `json:"open,omitempty"`
}

// Triangle is an equilateral triangle of side Size centred on Center
type Triangle struct {
	Center Point   `json:"center"`
	Size   float64 `json:"size"`
}

// Label is a circular badge with centred text
type Label struct {
	Position Point  `json:"position"`
	Text     string `json:"text"`
}

// Text is free text anchored at Position
type Text struct {
	Position Point  `json:"position"`
	Text     string `json:"text"`
}

// Graph is a pair of perpendicular axes crossing at Origin
type Graph struct {
	Origin     Point   `json:"origin"`
	AxisLength float64 `json:"axisLength"`
}

func (Circle) Kind() Kind    { return KindCircle }
func (Line) Kind() Kind      { return KindLine }
func (Rectangle) Kind() Kind { return KindRectangle }
func (Polygon) Kind() Kind   { return KindPolygon }
func (Triangle) Kind() Kind  { return KindTriangle }
func (Label) Kind() Kind     { return KindLabel }
func (Text) Kind() Kind      { return KindText }
func (Graph) Kind() Kind     { return KindGraph }

func (Circle) command()    {}
func (Line) command()      {}
func (Rectangle) command() {}
func (Polygon) command()   {}
func (Triangle) command()  {}
func (Label) command()     {}
func (Text) command()      {}
func (Graph) command()     {}

// Validate checks the circle's fields
func (c Circle) Validate() error {
	if err := finite(KindCircle, c.Center.X, c.Center.Y, c.Radius); err != nil {
		return err
	}
	return nonNegative(KindCircle, "radius", c.Radius)
}

// Validate checks the line's endpoints
func (l Line) Validate() error {
	return finite(KindLine, l.From.X, l.From.Y, l.To.X, l.To.Y)
}

// Validate checks the rectangle's fields
func (r Rectangle) Validate() error {
	if err := finite(KindRectangle, r.Origin.X, r.Origin.Y, r.Width, r.Height); err != nil {
		return err
	}
	if err := nonNegative(KindRectangle, "width", r.Width); err != nil {
		return err
	}
	return nonNegative(KindRectangle, "height", r.Height)
}

// Validate requires at least three finite points
func (p Polygon) Validate() error {
	if len(p.Points) < 3 {
		return fmt.Errorf("%w: polygon needs at least 3 points, got %d", errs.ErrInvalidGeometry, len(p.Points))
	}
	for _, pt := range p.Points {
		if err := finite(KindPolygon, pt.X, pt.Y); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the triangle's fields
func (t Triangle) Validate() error {
	if err := finite(KindTriangle, t.Center.X, t.Center.Y, t.Size); err != nil {
		return err
	}
	return nonNegative(KindTriangle, "size", t.Size)
}

// Validate checks the label position
func (l Label) Validate() error {
	return finite(KindLabel, l.Position.X, l.Position.Y)
}

// Validate checks the text position
func (t Text) Validate() error {
	return finite(KindText, t.Position.X, t.Position.Y)
}

// Validate checks the graph's fields
func (g Graph) Validate() error {
	if err := finite(KindGraph, g.Origin.X, g.Origin.Y, g.AxisLength); err != nil {
		return err
	}
	return nonNegative(KindGraph, "axis length", g.AxisLength)
}

// Height returns the equilateral height, Size*0.866
func (t Triangle) Height() float64 {
	return t.Size * TriangleHeightRatio
}

// Vertices returns apex, bottom-left and bottom-right. The apex sits 2/3 of the
// height above the centre and the base 1/3 below it.
func (t Triangle) Vertices() [3]Point {
	h := t.Height()
	return [3]Point{
		{X: t.Center.X, Y: t.Center.Y - h*2/3},
		{X: t.Center.X - t.Size/2, Y: t.Center.Y + h/3},
		{X: t.Center.X + t.Size/2, Y: t.Center.Y + h/3},
	}
}

// Axes lowers the graph into its x and y axis lines
func (g Graph) Axes() (Line, Line) {
	half := g.AxisLength / 2
	xAxis := Line{
		From: Point{X: g.Origin.X - half, Y: g.Origin.Y},
		To:   Point{X: g.Origin.X + half, Y: g.Origin.Y},
	}
	yAxis := Line{
		From: Point{X: g.Origin.X, Y: g.Origin.Y - half},
		To:   Point{X: g.Origin.X, Y: g.Origin.Y + half},
	}
	return xAxis, yAxis
}

// RectangleBetween builds the rectangle spanned by two drag positions. Either drag
// direction yields non-negative sizes with Origin at the min corner.
func RectangleBetween(a, b Point) Rectangle {
	return Rectangle{
		Origin: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// CenteredRectangle builds a rectangle of the given size centred on c
func CenteredRectangle(c Point, width, height float64) Rectangle {
	return Rectangle{
		Origin: Point{X: c.X - width/2, Y: c.Y - height/2},
		Width:  width,
		Height: height,
	}
}

func finite(kind Kind, vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has non-finite field %v", errs.ErrInvalidGeometry, kind, v)
		}
	}
	return nil
}

func nonNegative(kind Kind, field string, v float64) error {
	if v < 0 {
		return fmt.Errorf("%w: %s %s must be >= 0, got %g", errs.ErrInvalidGeometry, kind, field, v)
	}
	return nil
}
