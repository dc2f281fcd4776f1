// Package excalidraw adapts the whiteboard to an Excalidraw scene. Each shape
// becomes one or more scene elements as passed to api.addElements.
//
// Excalidraw has no triangle element. Triangles are drawn as a diamond with the
// triangle's bounding box, which is lossy: the apex is right but the base
// becomes two more edges meeting below the centre. Each approximated shape is
// logged once at warn level, however often it is updated afterwards.
package excalidraw

import (
	"fmt"
	"strconv"
	"sync"

	"blackboard/entities/shape"
	"blackboard/tools/logger"
	"blackboard/tools/surface"
)

// FontSize is the text size used for free text
const FontSize = 20.0

// Element is an Excalidraw scene element
type Element struct {
	ID              string       `json:"id"`
	Type            string       `json:"type"`
	X               float64      `json:"x"`
	Y               float64      `json:"y"`
	Width           float64      `json:"width,omitempty"`
	Height          float64      `json:"height,omitempty"`
	Points          [][2]float64 `json:"points,omitempty"`
	Text            string       `json:"text,omitempty"`
	FontSize        float64      `json:"fontSize,omitempty"`
	FontFamily      int          `json:"fontFamily,omitempty"`
	TextAlign       string       `json:"textAlign,omitempty"`
	VerticalAlign   string       `json:"verticalAlign,omitempty"`
	StrokeColor     string       `json:"strokeColor"`
	BackgroundColor string       `json:"backgroundColor,omitempty"`
	FillStyle       string       `json:"fillStyle,omitempty"`
	StrokeWidth     float64      `json:"strokeWidth"`
	StrokeStyle     string       `json:"strokeStyle,omitempty"`
	GroupIDs        []string     `json:"groupIds,omitempty"`
}

// Scene is the Excalidraw surface
type Scene struct {
	viewport shape.Viewport
	elements *surface.Store[[]Element]
	log      *logger.Logger

	mu    sync.Mutex
	lossy map[string]bool // ids already warned about
}

// New creates a scene. The viewport follows appState scroll and size.
func New(viewport shape.Viewport, log *logger.Logger) *Scene {
	if log == nil {
		log = logger.Default()
	}
	return &Scene{
		viewport: viewport,
		elements: surface.NewStore[[]Element](),
		log:      log.WithPrefix("excalidraw"),
		lossy:    make(map[string]bool),
	}
}

func (s *Scene) Name() string { return "excalidraw" }

func (s *Scene) Viewport() shape.Viewport {
	return surface.ViewportOrDefault(s.viewport)
}

func (s *Scene) Add(id string, cmd shape.Command) error {
	els, err := ElementsFor(cmd)
	if err != nil {
		return err
	}
	s.noteLossy(id, cmd)
	for i := range els {
		els[i].ID = id
		if len(els) > 1 {
			els[i].ID = id + "-" + strconv.Itoa(i)
			els[i].GroupIDs = []string{"group-" + id}
		}
	}
	s.elements.Put(id, els)
	return nil
}

func (s *Scene) Update(id string, cmd shape.Command) error {
	if !s.elements.Has(id) {
		return fmt.Errorf("excalidraw: no element %s", id)
	}
	return s.Add(id, cmd)
}

func (s *Scene) Remove(id string) error {
	s.elements.Delete(id)
	s.mu.Lock()
	delete(s.lossy, id)
	s.mu.Unlock()
	return nil
}

func (s *Scene) Clear() error {
	s.elements.Reset()
	s.mu.Lock()
	s.lossy = make(map[string]bool)
	s.mu.Unlock()
	return nil
}

// noteLossy warns the first time id is drawn as an approximated triangle
func (s *Scene) noteLossy(id string, cmd shape.Command) {
	if cmd.Kind() != shape.KindTriangle {
		return
	}
	s.mu.Lock()
	warned := s.lossy[id]
	s.lossy[id] = true
	s.mu.Unlock()
	if !warned {
		s.log.Warn("triangle %s approximated by a diamond", id)
	}
}

// Primitive returns the element list drawn for id. Labels have two elements.
func (s *Scene) Primitive(id string) (any, bool) {
	return s.elements.Get(id)
}

// Redraw is a no-op: updateScene re-renders on its own
func (s *Scene) Redraw() error {
	return nil
}

// Elements returns the flat element list for updateScene
func (s *Scene) Elements() []Element {
	var out []Element
	for _, els := range s.elements.All() {
		out = append(out, els...)
	}
	return out
}

// ElementsFor translates a shape command into scene elements
func ElementsFor(cmd shape.Command) ([]Element, error) {
	switch c := cmd.(type) {
	case shape.Circle:
		return []Element{box("ellipse", c.Center.X-c.Radius, c.Center.Y-c.Radius, 2*c.Radius, 2*c.Radius)}, nil

	case shape.Rectangle:
		return []Element{box("rectangle", c.Origin.X, c.Origin.Y, c.Width, c.Height)}, nil

	case shape.Triangle:
		h := c.Height()
		return []Element{box("diamond", c.Center.X-c.Size/2, c.Center.Y-h*2/3, c.Size, h)}, nil

	case shape.Line:
		return []Element{line([]shape.Point{c.From, c.To})}, nil

	case shape.Polygon:
		pts := c.Points
		if !c.Open && len(pts) > 0 {
			pts = append(append([]shape.Point(nil), pts...), pts[0])
		}
		return []Element{line(pts)}, nil

	case shape.Text:
		return []Element{text(c.Position.X, c.Position.Y, c.Text, FontSize)}, nil

	case shape.Label:
		r := shape.LabelBadgeRadius
		badge := box("ellipse", c.Position.X-r, c.Position.Y-r, 2*r, 2*r)
		badge.BackgroundColor = surface.LabelFill
		badge.FillStyle = "solid"
		caption := text(c.Position.X-6, c.Position.Y-7, c.Text, shape.LabelFontSize)
		return []Element{badge, caption}, nil
	}
	return nil, fmt.Errorf("excalidraw: cannot draw %s", cmd.Kind())
}

func box(kind string, x, y, w, h float64) Element {
	return Element{
		Type:            kind,
		X:               x,
		Y:               y,
		Width:           w,
		Height:          h,
		StrokeColor:     surface.StrokeColor,
		BackgroundColor: "transparent",
		FillStyle:       "hachure",
		StrokeWidth:     surface.StrokeWidth,
		StrokeStyle:     "solid",
	}
}

func line(pts []shape.Point) Element {
	abs := make([][2]float64, len(pts))
	for i, p := range pts {
		abs[i] = [2]float64{p.X, p.Y}
	}
	return Element{
		Type:        "line",
		Points:      abs,
		StrokeColor: surface.StrokeColor,
		StrokeWidth: surface.StrokeWidth,
		StrokeStyle: "solid",
	}
}

func text(x, y float64, s string, size float64) Element {
	return Element{
		Type:          "text",
		X:             x,
		Y:             y,
		Text:          s,
		FontSize:      size,
		FontFamily:    1,
		TextAlign:     "left",
		VerticalAlign: "top",
		StrokeColor:   surface.StrokeColor,
		StrokeWidth:   1,
	}
}
