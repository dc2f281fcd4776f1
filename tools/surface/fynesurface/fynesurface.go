// Package fynesurface draws the board into a fyne container for the desktop
// window. Each shape becomes one or more canvas objects placed without a
// layout, in board order.
package fynesurface

import (
	"fmt"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"

	"blackboard/entities/shape"
	"blackboard/tools/logger"
	"blackboard/tools/surface"
)

// Canvas is the fyne surface
type Canvas struct {
	mu      sync.Mutex
	size    fyne.Size
	objects *surface.Store[[]fyne.CanvasObject]
	content *fyne.Container
	log     *logger.Logger
}

// New creates a canvas backed by an empty layout-free container
func New(width, height float32, log *logger.Logger) *Canvas {
	if log == nil {
		log = logger.Default()
	}
	if width <= 0 || height <= 0 {
		width, height = float32(shape.DefaultViewport.Width), float32(shape.DefaultViewport.Height)
	}
	bg := fynecanvas.NewRectangle(color.NRGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff})
	bg.Resize(fyne.NewSize(width, height))

	content := container.NewWithoutLayout(bg)
	content.Resize(fyne.NewSize(width, height))

	return &Canvas{
		size:    fyne.NewSize(width, height),
		objects: surface.NewStore[[]fyne.CanvasObject](),
		content: content,
		log:     log.WithPrefix("fyne"),
	}
}

// Content is the container to place in a window
func (c *Canvas) Content() *fyne.Container {
	return c.content
}

func (c *Canvas) Name() string { return "fyne" }

func (c *Canvas) Viewport() shape.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return shape.Viewport{Width: float64(c.size.Width), Height: float64(c.size.Height)}
}

// Resize follows the window size
func (c *Canvas) Resize(size fyne.Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = size
	c.content.Resize(size)
	if len(c.content.Objects) > 0 {
		c.content.Objects[0].Resize(size)
	}
}

func (c *Canvas) Add(id string, cmd shape.Command) error {
	objs, err := ObjectsFor(cmd)
	if err != nil {
		return err
	}
	c.objects.Put(id, objs)
	return nil
}

func (c *Canvas) Update(id string, cmd shape.Command) error {
	if !c.objects.Has(id) {
		return fmt.Errorf("fyne: no object %s", id)
	}
	return c.Add(id, cmd)
}

func (c *Canvas) Remove(id string) error {
	c.objects.Delete(id)
	return nil
}

func (c *Canvas) Clear() error {
	c.objects.Reset()
	return nil
}

func (c *Canvas) Primitive(id string) (any, bool) {
	return c.objects.Get(id)
}

// Redraw replaces the container's children with the stored objects and
// refreshes it. The background rectangle always stays first.
func (c *Canvas) Redraw() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	objs := c.content.Objects[:1:1]
	for _, group := range c.objects.All() {
		objs = append(objs, group...)
	}
	c.content.Objects = objs
	c.content.Refresh()
	return nil
}

// ObjectsFor translates a shape command into canvas objects
func ObjectsFor(cmd shape.Command) ([]fyne.CanvasObject, error) {
	switch s := cmd.(type) {
	case shape.Circle:
		circle := fynecanvas.NewCircle(color.Transparent)
		circle.StrokeColor = chalk()
		circle.StrokeWidth = surface.StrokeWidth
		circle.Position1 = pos(s.Center.X-s.Radius, s.Center.Y-s.Radius)
		circle.Position2 = pos(s.Center.X+s.Radius, s.Center.Y+s.Radius)
		return []fyne.CanvasObject{circle}, nil

	case shape.Line:
		return []fyne.CanvasObject{segment(s.From, s.To)}, nil

	case shape.Rectangle:
		rect := fynecanvas.NewRectangle(color.Transparent)
		rect.StrokeColor = chalk()
		rect.StrokeWidth = surface.StrokeWidth
		rect.Move(pos(s.Origin.X, s.Origin.Y))
		rect.Resize(fyne.NewSize(float32(s.Width), float32(s.Height)))
		return []fyne.CanvasObject{rect}, nil

	case shape.Triangle:
		v := s.Vertices()
		return path(v[:], true), nil

	case shape.Polygon:
		return path(s.Points, !s.Open), nil

	case shape.Text:
		t := fynecanvas.NewText(s.Text, chalk())
		t.TextSize = shape.TextFontSize
		t.Move(pos(s.Position.X, s.Position.Y))
		return []fyne.CanvasObject{t}, nil

	case shape.Label:
		r := shape.LabelBadgeRadius
		badge := fynecanvas.NewCircle(fill())
		badge.StrokeColor = chalk()
		badge.StrokeWidth = surface.StrokeWidth
		badge.Position1 = pos(s.Position.X-r, s.Position.Y-r)
		badge.Position2 = pos(s.Position.X+r, s.Position.Y+r)

		caption := fynecanvas.NewText(s.Text, chalk())
		caption.TextSize = shape.LabelFontSize
		caption.Move(pos(s.Position.X-6, s.Position.Y-7))
		return []fyne.CanvasObject{badge, caption}, nil
	}
	return nil, fmt.Errorf("fyne: cannot draw %s", cmd.Kind())
}

// path draws an outline as one canvas line per edge
func path(pts []shape.Point, closed bool) []fyne.CanvasObject {
	var out []fyne.CanvasObject
	for i := 0; i+1 < len(pts); i++ {
		out = append(out, segment(pts[i], pts[i+1]))
	}
	if closed && len(pts) > 2 {
		out = append(out, segment(pts[len(pts)-1], pts[0]))
	}
	return out
}

func segment(a, b shape.Point) *fynecanvas.Line {
	l := fynecanvas.NewLine(chalk())
	l.StrokeWidth = surface.StrokeWidth
	l.Position1 = pos(a.X, a.Y)
	l.Position2 = pos(b.X, b.Y)
	return l
}

func pos(x, y float64) fyne.Position {
	return fyne.NewPos(float32(x), float32(y))
}

func chalk() color.Color { return color.White }

func fill() color.Color { return color.NRGBA{R: 0x00, G: 0x66, B: 0xcc, A: 0xff} }
