// Package konva adapts the whiteboard to a Konva stage. Primitives are Konva
// node descriptions in the shape of Node.toObject(), so the browser can
// rebuild them with Konva.Node.create.
package konva

import (
	"fmt"

	"blackboard/entities/shape"
	"blackboard/tools/logger"
	"blackboard/tools/surface"
)

// Node is a serialized Konva node
type Node struct {
	ClassName string         `json:"className"`
	Attrs     map[string]any `json:"attrs"`
	Children  []Node         `json:"children,omitempty"`
}

// Stage is the Konva surface
type Stage struct {
	viewport shape.Viewport
	nodes    *surface.Store[Node]
	draws    int
	log      *logger.Logger
}

// New creates a stage of the given size
func New(width, height float64, log *logger.Logger) *Stage {
	if log == nil {
		log = logger.Default()
	}
	return &Stage{
		viewport: shape.Viewport{Width: width, Height: height},
		nodes:    surface.NewStore[Node](),
		log:      log.WithPrefix("konva"),
	}
}

func (s *Stage) Name() string { return "konva" }

func (s *Stage) Viewport() shape.Viewport {
	return surface.ViewportOrDefault(s.viewport)
}

// Resize changes the stage size, as the browser does on window resize
func (s *Stage) Resize(width, height float64) {
	s.viewport.Width, s.viewport.Height = width, height
}

func (s *Stage) Add(id string, cmd shape.Command) error {
	n, err := NodeFor(cmd)
	if err != nil {
		return err
	}
	n.Attrs["id"] = id
	s.nodes.Put(id, n)
	return nil
}

func (s *Stage) Update(id string, cmd shape.Command) error {
	if !s.nodes.Has(id) {
		return fmt.Errorf("konva: no node %s", id)
	}
	return s.Add(id, cmd)
}

func (s *Stage) Remove(id string) error {
	s.nodes.Delete(id)
	return nil
}

func (s *Stage) Clear() error {
	s.nodes.Reset()
	return nil
}

func (s *Stage) Primitive(id string) (any, bool) {
	return s.nodes.Get(id)
}

// Redraw corresponds to layer.draw()
func (s *Stage) Redraw() error {
	s.draws++
	s.log.Debug("layer.draw() #%d with %d nodes", s.draws, s.nodes.Len())
	return nil
}

// Nodes returns every node on the layer, provisional ones included
func (s *Stage) Nodes() []Node {
	return s.nodes.All()
}

// NodeFor translates a shape command into a Konva node
func NodeFor(cmd shape.Command) (Node, error) {
	switch c := cmd.(type) {
	case shape.Circle:
		return Node{ClassName: "Circle", Attrs: outlined(map[string]any{
			"x":      c.Center.X,
			"y":      c.Center.Y,
			"radius": c.Radius,
		})}, nil

	case shape.Line:
		return Node{ClassName: "Line", Attrs: stroked(map[string]any{
			"points":  []float64{c.From.X, c.From.Y, c.To.X, c.To.Y},
			"lineCap": "round",
		})}, nil

	case shape.Rectangle:
		return Node{ClassName: "Rect", Attrs: outlined(map[string]any{
			"x":      c.Origin.X,
			"y":      c.Origin.Y,
			"width":  c.Width,
			"height": c.Height,
		})}, nil

	case shape.Polygon:
		return closedLine(c.Points, !c.Open), nil

	case shape.Triangle:
		v := c.Vertices()
		return closedLine(v[:], true), nil

	case shape.Text:
		return Node{ClassName: "Text", Attrs: map[string]any{
			"x":          c.Position.X,
			"y":          c.Position.Y,
			"text":       c.Text,
			"fontSize":   shape.TextFontSize,
			"fontFamily": "Arial",
			"fill":       surface.StrokeColor,
		}}, nil

	case shape.Label:
		return Node{
			ClassName: "Group",
			Attrs:     map[string]any{"x": c.Position.X, "y": c.Position.Y},
			Children: []Node{
				{ClassName: "Circle", Attrs: map[string]any{
					"radius":      shape.LabelBadgeRadius,
					"fill":        surface.LabelFill,
					"stroke":      surface.StrokeColor,
					"strokeWidth": surface.StrokeWidth,
				}},
				{ClassName: "Text", Attrs: map[string]any{
					"text":          c.Text,
					"fontSize":      shape.LabelFontSize,
					"fontFamily":    "Arial",
					"fill":          surface.StrokeColor,
					"align":         "center",
					"verticalAlign": "middle",
					"x":             -6.0,
					"y":             -7.0,
				}},
			},
		}, nil
	}
	return Node{}, fmt.Errorf("konva: cannot draw %s", cmd.Kind())
}

func closedLine(pts []shape.Point, closed bool) Node {
	flat := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	return Node{ClassName: "Line", Attrs: outlined(map[string]any{
		"points": flat,
		"closed": closed,
	})}
}

func stroked(attrs map[string]any) map[string]any {
	attrs["stroke"] = surface.StrokeColor
	attrs["strokeWidth"] = surface.StrokeWidth
	return attrs
}

func outlined(attrs map[string]any) map[string]any {
	attrs["fill"] = "transparent"
	return stroked(attrs)
}
