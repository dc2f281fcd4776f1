package shape

import (
	"fmt"
	"strconv"
	"strings"

	"blackboard/tools/errs"
)

// FromParams builds a command from a structured drawing request such as
// {"command":"draw","type":"circle","params":{"x":10,"y":20,"radius":5}}.
// Missing or zero numeric fields fall back to fixed defaults.
func FromParams(kind string, params map[string]any) (Command, error) {
	p := paramSet(params)

	var cmd Command
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "circle":
		cmd = Circle{
			Center: Pt(p.num("x", 400), p.num("y", 300)),
			Radius: p.num("radius", 50),
		}
	case "line":
		if pts := p.points("points"); len(pts) >= 2 {
			cmd = Line{From: pts[0], To: pts[1]}
			break
		}
		cmd = Line{
			From: Pt(p.num("x1", 300), p.num("y1", 300)),
			To:   Pt(p.num("x2", 500), p.num("y2", 300)),
		}
	case "rectangle", "rect":
		cmd = Rectangle{
			Origin: Pt(p.num("x", 350), p.num("y", 250)),
			Width:  p.num("width", 150),
			Height: p.num("height", 80),
		}
	case "square":
		cmd = Rectangle{
			Origin: Pt(p.num("x", 350), p.num("y", 250)),
			Width:  p.num("width", 100),
			Height: p.num("height", 100),
		}
	case "triangle":
		cmd = Triangle{
			Center: Pt(p.num("x", 400), p.num("y", 300)),
			Size:   p.num("size", 100),
		}
	case "polygon":
		cmd = Polygon{Points: p.points("points")}
	case "graph", "graphfunction":
		cmd = Graph{
			Origin:     Pt(p.num("x", 400), p.num("y", 300)),
			AxisLength: p.num("length", 300),
		}
	case "text":
		cmd = Text{Position: Pt(p.num("x", 400), p.num("y", 300)), Text: p.str("text")}
	case "label":
		cmd = Label{Position: Pt(p.num("x", 400), p.num("y", 300)), Text: p.str("text")}
	default:
		return nil, fmt.Errorf("%w: unknown drawing type %q", errs.ErrUnrecognizedInstruction, kind)
	}

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

type paramSet map[string]any

func (p paramSet) num(key string, def float64) float64 {
	v, ok := toFloat(p[key])
	if !ok || v == 0 {
		return def
	}
	return v
}

func (p paramSet) str(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// points reads [[x,y],...] or [{"x":..,"y":..},...]
func (p paramSet) points(key string) []Point {
	raw, ok := p[key].([]any)
	if !ok {
		return nil
	}
	var pts []Point
	for _, item := range raw {
		switch v := item.(type) {
		case []any:
			if len(v) < 2 {
				continue
			}
			x, okX := toFloat(v[0])
			y, okY := toFloat(v[1])
			if okX && okY {
				pts = append(pts, Pt(x, y))
			}
		case map[string]any:
			x, okX := toFloat(v["x"])
			y, okY := toFloat(v["y"])
			if okX && okY {
				pts = append(pts, Pt(x, y))
			}
		}
	}
	return pts
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
