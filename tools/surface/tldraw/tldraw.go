// Package tldraw adapts the whiteboard to a tldraw editor. Primitives are
// shape records as passed to editor.createShape.
package tldraw

import (
	"fmt"
	"strconv"

	"blackboard/entities/shape"
	"blackboard/tools/logger"
	"blackboard/tools/surface"
)

// Record is a tldraw shape record
type Record struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Props    map[string]any `json:"props"`
	Children []Record       `json:"children,omitempty"`
}

// Handle is one point of a line shape, relative to the record position
type Handle struct {
	ID    string  `json:"id"`
	Index string  `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Editor is the tldraw surface
type Editor struct {
	viewport shape.Viewport
	records  *surface.Store[Record]
	log      *logger.Logger
}

// New creates an editor whose page viewport has the given bounds
func New(viewport shape.Viewport, log *logger.Logger) *Editor {
	if log == nil {
		log = logger.Default()
	}
	return &Editor{
		viewport: viewport,
		records:  surface.NewStore[Record](),
		log:      log.WithPrefix("tldraw"),
	}
}

func (e *Editor) Name() string { return "tldraw" }

// Viewport mirrors editor.getViewportPageBounds()
func (e *Editor) Viewport() shape.Viewport {
	return surface.ViewportOrDefault(e.viewport)
}

// Pan moves the page viewport
func (e *Editor) Pan(x, y float64) {
	e.viewport.X, e.viewport.Y = x, y
}

func (e *Editor) Add(id string, cmd shape.Command) error {
	r, err := RecordFor(cmd)
	if err != nil {
		return err
	}
	setID(&r, "shape:"+id)
	e.records.Put(id, r)
	return nil
}

func (e *Editor) Update(id string, cmd shape.Command) error {
	if !e.records.Has(id) {
		return fmt.Errorf("tldraw: no shape %s", id)
	}
	return e.Add(id, cmd)
}

func (e *Editor) Remove(id string) error {
	e.records.Delete(id)
	return nil
}

func (e *Editor) Clear() error {
	e.records.Reset()
	return nil
}

func (e *Editor) Primitive(id string) (any, bool) {
	return e.records.Get(id)
}

// Redraw is a no-op: the editor store re-renders on every change
func (e *Editor) Redraw() error {
	return nil
}

// Records returns every record on the page
func (e *Editor) Records() []Record {
	return e.records.All()
}

// RecordFor translates a shape command into a tldraw record
func RecordFor(cmd shape.Command) (Record, error) {
	switch c := cmd.(type) {
	case shape.Circle:
		return geo("ellipse", c.Center.X-c.Radius, c.Center.Y-c.Radius, 2*c.Radius, 2*c.Radius), nil

	case shape.Rectangle:
		return geo("rectangle", c.Origin.X, c.Origin.Y, c.Width, c.Height), nil

	case shape.Triangle:
		h := c.Height()
		return geo("triangle", c.Center.X-c.Size/2, c.Center.Y-h*2/3, c.Size, h), nil

	case shape.Line:
		return line([]shape.Point{c.From, c.To}), nil

	case shape.Polygon:
		pts := c.Points
		if !c.Open && len(pts) > 0 {
			pts = append(append([]shape.Point(nil), pts...), pts[0])
		}
		return line(pts), nil

	case shape.Text:
		return text(c.Position.X, c.Position.Y, c.Text), nil

	case shape.Label:
		badge := geo("ellipse", c.Position.X-shape.LabelBadgeRadius, c.Position.Y-shape.LabelBadgeRadius,
			2*shape.LabelBadgeRadius, 2*shape.LabelBadgeRadius)
		badge.Props["fill"] = "solid"
		badge.Props["color"] = "blue"
		caption := text(c.Position.X-6, c.Position.Y-7, c.Text)
		caption.Props["size"] = "s"
		return Record{
			Type:     "group",
			X:        c.Position.X,
			Y:        c.Position.Y,
			Props:    map[string]any{},
			Children: []Record{badge, caption},
		}, nil
	}
	return Record{}, fmt.Errorf("tldraw: cannot draw %s", cmd.Kind())
}

func geo(kind string, x, y, w, h float64) Record {
	return Record{Type: "geo", X: x, Y: y, Props: map[string]any{
		"geo":   kind,
		"w":     w,
		"h":     h,
		"fill":  "none",
		"color": "white",
		"dash":  "draw",
		"size":  "m",
	}}
}

func line(pts []shape.Point) Record {
	if len(pts) == 0 {
		return Record{Type: "line", Props: map[string]any{"points": map[string]Handle{}}}
	}
	origin := pts[0]
	handles := make(map[string]Handle, len(pts))
	for i, p := range pts {
		id := "a" + strconv.Itoa(i+1)
		handles[id] = Handle{ID: id, Index: id, X: p.X - origin.X, Y: p.Y - origin.Y}
	}
	return Record{Type: "line", X: origin.X, Y: origin.Y, Props: map[string]any{
		"points": handles,
		"color":  "white",
		"size":   "m",
	}}
}

func text(x, y float64, s string) Record {
	return Record{Type: "text", X: x, Y: y, Props: map[string]any{
		"text":  s,
		"color": "white",
		"size":  "m",
		"font":  "draw",
		"align": "start",
	}}
}

func setID(r *Record, id string) {
	r.ID = id
	for i := range r.Children {
		setID(&r.Children[i], id+"-"+strconv.Itoa(i))
	}
}
