// Package raster is a headless surface that rasterizes the board into an RGBA
// image. It backs the PNG snapshot endpoint and works without a browser.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"blackboard/entities/shape"
	"blackboard/tools/logger"
	"blackboard/tools/surface"
)

// circleSegments is how many chords approximate a circle outline
const circleSegments = 72

// Primitive is what the raster surface stores per shape
type Primitive struct {
	Kind  shape.Kind    `json:"kind"`
	Shape shape.Command `json:"shape"`
}

// Canvas is the raster surface
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	img    *image.RGBA
	prims  *surface.Store[Primitive]
	z      *vector.Rasterizer
	log    *logger.Logger
}

// New creates a canvas of the given pixel size
func New(width, height int, log *logger.Logger) *Canvas {
	if log == nil {
		log = logger.Default()
	}
	if width <= 0 || height <= 0 {
		width, height = int(shape.DefaultViewport.Width), int(shape.DefaultViewport.Height)
	}
	c := &Canvas{
		width:  width,
		height: height,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		prims:  surface.NewStore[Primitive](),
		z:      vector.NewRasterizer(width, height),
		log:    log.WithPrefix("raster"),
	}
	c.paintBackground()
	return c
}

func (c *Canvas) Name() string { return "raster" }

func (c *Canvas) Viewport() shape.Viewport {
	return shape.Viewport{Width: float64(c.width), Height: float64(c.height)}
}

func (c *Canvas) Add(id string, cmd shape.Command) error {
	if _, ok := cmd.(shape.Graph); ok {
		return fmt.Errorf("raster: cannot draw %s", cmd.Kind())
	}
	c.prims.Put(id, Primitive{Kind: cmd.Kind(), Shape: cmd})
	return nil
}

func (c *Canvas) Update(id string, cmd shape.Command) error {
	if !c.prims.Has(id) {
		return fmt.Errorf("raster: no primitive %s", id)
	}
	return c.Add(id, cmd)
}

func (c *Canvas) Remove(id string) error {
	c.prims.Delete(id)
	return nil
}

func (c *Canvas) Clear() error {
	c.prims.Reset()
	return nil
}

func (c *Canvas) Primitive(id string) (any, bool) {
	return c.prims.Get(id)
}

// Redraw repaints the whole image from the stored primitives
func (c *Canvas) Redraw() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.paintBackground()
	for _, p := range c.prims.All() {
		c.paint(p.Shape)
	}
	return nil
}

// Image returns a copy of the current raster
func (c *Canvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := image.NewRGBA(c.img.Bounds())
	draw.Draw(out, out.Bounds(), c.img, image.Point{}, draw.Src)
	return out
}

// PNG encodes the current raster
func (c *Canvas) PNG(w io.Writer) error {
	if err := png.Encode(w, c.Image()); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// --- Painting ---

func (c *Canvas) paintBackground() {
	draw.Draw(c.img, c.img.Bounds(), &image.Uniform{hexColor(surface.Background)}, image.Point{}, draw.Src)
}

func (c *Canvas) paint(cmd shape.Command) {
	chalk := hexColor(surface.StrokeColor)

	switch s := cmd.(type) {
	case shape.Circle:
		c.strokePath(circlePoints(s.Center, s.Radius), true, chalk)
	case shape.Line:
		c.strokeSegment(s.From, s.To, chalk)
	case shape.Rectangle:
		c.strokePath([]shape.Point{
			s.Origin,
			{X: s.Origin.X + s.Width, Y: s.Origin.Y},
			{X: s.Origin.X + s.Width, Y: s.Origin.Y + s.Height},
			{X: s.Origin.X, Y: s.Origin.Y + s.Height},
		}, true, chalk)
	case shape.Polygon:
		c.strokePath(s.Points, !s.Open, chalk)
	case shape.Triangle:
		v := s.Vertices()
		c.strokePath(v[:], true, chalk)
	case shape.Text:
		c.text(s.Position, s.Text, chalk)
	case shape.Label:
		disc := circlePoints(s.Position, shape.LabelBadgeRadius)
		c.fill(disc, hexColor(surface.LabelFill))
		c.strokePath(disc, true, chalk)
		c.text(shape.Point{X: s.Position.X - 6, Y: s.Position.Y - 7}, s.Text, chalk)
	}
}

// strokePath strokes each edge on its own so overlapping edge quads never
// cancel in the accumulation buffer
func (c *Canvas) strokePath(pts []shape.Point, closed bool, col color.Color) {
	for i := 0; i+1 < len(pts); i++ {
		c.strokeSegment(pts[i], pts[i+1], col)
	}
	if closed && len(pts) > 2 {
		c.strokeSegment(pts[len(pts)-1], pts[0], col)
	}
}

func (c *Canvas) strokeSegment(a, b shape.Point, col color.Color) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	half := surface.StrokeWidth / 2
	if length == 0 {
		c.fill([]shape.Point{
			{X: a.X - half, Y: a.Y - half},
			{X: a.X + half, Y: a.Y - half},
			{X: a.X + half, Y: a.Y + half},
			{X: a.X - half, Y: a.Y + half},
		}, col)
		return
	}
	nx, ny := -dy/length*half, dx/length*half
	c.fill([]shape.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}, col)
}

func (c *Canvas) fill(pts []shape.Point, col color.Color) {
	if len(pts) < 3 {
		return
	}
	c.z.Reset(c.width, c.height)
	c.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		c.z.LineTo(float32(p.X), float32(p.Y))
	}
	c.z.ClosePath()
	c.z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func (c *Canvas) text(pos shape.Point, s string, col color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(int(pos.X), int(pos.Y)+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func circlePoints(center shape.Point, r float64) []shape.Point {
	pts := make([]shape.Point, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = shape.Point{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)}
	}
	return pts
}

// hexColor parses "#rrggbb"; anything else is opaque white
func hexColor(s string) color.RGBA {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
