// Package plot samples a function of x and lowers it into whiteboard commands:
// a pair of axes followed by the curve as consecutive line segments.
package plot

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"blackboard/entities/shape"
	"blackboard/tools/expr"
)

// Options controls sampling and placement. Zero fields take the defaults.
type Options struct {
	XMin, XMax float64
	Step       float64
	Scale      float64 // pixels per unit
	AxisLength float64
}

// DefaultOptions returns x in [-5,5], step 0.1, 50 px/unit and a 400 px axis
func DefaultOptions() Options {
	return Options{XMin: -5, XMax: 5, Step: 0.1, Scale: 50, AxisLength: 400}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.XMin == 0 && o.XMax == 0 {
		o.XMin, o.XMax = def.XMin, def.XMax
	}
	if o.Step <= 0 {
		o.Step = def.Step
	}
	if o.Scale == 0 {
		o.Scale = def.Scale
	}
	if o.AxisLength == 0 {
		o.AxisLength = def.AxisLength
	}
	return o
}

// Graph plots an equation such as "y = x^2" centred on the viewport. The first
// command is always the Graph axes; the curve follows as Line segments. Samples
// that fail to evaluate or are not finite are skipped, and fewer than two usable
// samples leaves the axes alone.
func Graph(equation string, vp shape.Viewport, opts Options) ([]shape.Command, error) {
	f, err := expr.Func(equation)
	if err != nil {
		return nil, fmt.Errorf("cannot graph %q: %w", equation, err)
	}
	opts = opts.withDefaults()
	center := vp.Center()

	cmds := []shape.Command{shape.Graph{Origin: center, AxisLength: opts.AxisLength}}

	var pts []shape.Point
	for _, x := range Samples(opts.XMin, opts.XMax, opts.Step) {
		y, err := f(x)
		if err != nil || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, shape.Point{
			X: center.X + x*opts.Scale,
			Y: center.Y - y*opts.Scale,
		})
	}
	if len(pts) < 2 {
		return cmds, nil
	}
	for i := 0; i < len(pts)-1; i++ {
		cmds = append(cmds, shape.Line{From: pts[i], To: pts[i+1]})
	}
	return cmds, nil
}

// Samples returns evenly spaced x positions from min to max inclusive
func Samples(min, max, step float64) []float64 {
	if step <= 0 || max < min {
		return nil
	}
	n := int(math.Floor((max-min)/step+1e-9)) + 1
	if n < 2 {
		return []float64{min}
	}
	xs := make([]float64, n)
	return floats.Span(xs, min, min+float64(n-1)*step)
}
