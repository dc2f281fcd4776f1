package board

import (
	"fmt"

	"blackboard/entities/shape"
)

// Tool is the active pointer tool
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolLine      Tool = "line"
	ToolCircle    Tool = "circle"
	ToolRectangle Tool = "rectangle"
	ToolPolygon   Tool = "polygon"
	ToolText      Tool = "text"
	ToolLabel     Tool = "label"
	ToolErase     Tool = "erase"
)

// ParseTool validates a tool name
func ParseTool(name string) (Tool, error) {
	switch t := Tool(name); t {
	case ToolSelect, ToolLine, ToolCircle, ToolRectangle, ToolPolygon, ToolText, ToolLabel, ToolErase:
		return t, nil
	}
	return "", fmt.Errorf("unknown tool %q", name)
}

// State is the drag state of the board. Committing a drag moves the
// provisional shape into the live sequence and returns to StateIdle.
type State int

const (
	// StateIdle is the initial state and the state after a commit, a tool
	// change or a clear
	StateIdle State = iota
	// StateDrawing means a provisional shape follows the pointer
	StateDrawing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	default:
		return "unknown"
	}
}

// PromptFunc asks the user for the text of a text or label shape. ok=false or
// an empty string cancels.
type PromptFunc func(tool Tool) (text string, ok bool)

// SetPrompt installs the text prompt used by the text and label tools
func (b *Board) SetPrompt(fn PromptFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompt = fn
}

// SetTool switches tools and discards any unfinished provisional shape
func (b *Board) SetTool(t Tool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.dropProvisionalLocked(); err != nil {
		return err
	}
	b.tool = t
	b.state = StateIdle
	return nil
}

// Tool returns the active tool
func (b *Board) Tool() Tool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tool
}

// State returns the drag state
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Provisional returns the shape under construction, if any
func (b *Board) Provisional() (shape.Command, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.provisional == nil {
		return nil, false
	}
	return b.provisional.Command, true
}

// ProvisionalPrimitive returns the surface primitive of the shape under
// construction, for surfaces whose viewers only see exported primitives
func (b *Board) ProvisionalPrimitive() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.provisional == nil {
		return nil, false
	}
	return b.surface.Primitive(b.provisional.ID)
}

// PointerDown starts a drag for the drawing tools, adds a polygon vertex,
// places text or a label, or erases, depending on the active tool.
func (b *Board) PointerDown(p shape.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.tool {
	case ToolLine:
		return b.beginLocked(p, shape.Line{From: p, To: p})
	case ToolCircle:
		return b.beginLocked(p, shape.Circle{Center: p})
	case ToolRectangle:
		return b.beginLocked(p, shape.Rectangle{Origin: p})
	case ToolPolygon:
		return b.addVertexLocked(p)
	case ToolText, ToolLabel:
		return b.placeTextLocked(p)
	case ToolErase:
		_, err := b.eraseLocked(p)
		return err
	}
	return nil
}

// PointerMove reshapes the provisional shape from the drag start to p
func (b *Board) PointerMove(p shape.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateDrawing || b.provisional == nil {
		return nil
	}

	var cmd shape.Command
	switch b.tool {
	case ToolLine:
		cmd = shape.Line{From: b.start, To: p}
	case ToolCircle:
		cmd = shape.Circle{Center: b.start, Radius: b.start.Distance(p)}
	case ToolRectangle:
		cmd = shape.RectangleBetween(b.start, p)
	default:
		return nil
	}

	if err := b.surface.Update(b.provisional.ID, cmd); err != nil {
		return fmt.Errorf("update provisional %s: %w", cmd.Kind(), err)
	}
	b.provisional.Command = cmd
	return b.surface.Redraw()
}

// PointerUp commits the provisional shape to the live sequence and returns to
// idle. The shape keeps the geometry of the last move.
func (b *Board) PointerUp(shape.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateDrawing {
		return nil
	}
	if b.provisional != nil {
		b.live = append(b.live, *b.provisional)
		b.log.Command(string(b.provisional.Command.Kind()), b.surface.Name())
		b.provisional = nil
	}
	b.state = StateIdle
	return b.surface.Redraw()
}

// FinishPolygon closes the polygon path and commits it. Paths with fewer than
// three points stay open and provisional.
func (b *Board) FinishPolygon() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.provisional == nil {
		return false, nil
	}
	poly, ok := b.provisional.Command.(shape.Polygon)
	if !ok || len(poly.Points) < 3 {
		return false, nil
	}

	poly.Open = false
	if err := b.surface.Update(b.provisional.ID, poly); err != nil {
		return false, fmt.Errorf("close polygon: %w", err)
	}
	b.provisional.Command = poly
	b.live = append(b.live, *b.provisional)
	b.provisional = nil
	b.state = StateIdle
	b.log.Command(string(shape.KindPolygon), b.surface.Name())
	return true, b.surface.Redraw()
}

func (b *Board) beginLocked(p shape.Point, cmd shape.Command) error {
	if err := b.dropProvisionalLocked(); err != nil {
		return err
	}
	id := b.newIDLocked()
	if err := b.surface.Add(id, cmd); err != nil {
		return fmt.Errorf("start %s: %w", cmd.Kind(), err)
	}
	b.provisional = &Entry{ID: id, Command: cmd}
	b.start = p
	b.state = StateDrawing
	return b.surface.Redraw()
}

func (b *Board) addVertexLocked(p shape.Point) error {
	if b.provisional == nil {
		poly := shape.Polygon{Points: []shape.Point{p}, Open: true}
		id := b.newIDLocked()
		if err := b.surface.Add(id, poly); err != nil {
			return fmt.Errorf("start polygon: %w", err)
		}
		b.provisional = &Entry{ID: id, Command: poly}
		return b.surface.Redraw()
	}

	poly, ok := b.provisional.Command.(shape.Polygon)
	if !ok {
		return nil
	}
	pts := append(append([]shape.Point(nil), poly.Points...), p)
	next := shape.Polygon{Points: pts, Open: true}
	if err := b.surface.Update(b.provisional.ID, next); err != nil {
		return fmt.Errorf("extend polygon: %w", err)
	}
	b.provisional.Command = next
	return b.surface.Redraw()
}

func (b *Board) placeTextLocked(p shape.Point) error {
	if b.prompt == nil {
		b.log.Warn("%s tool used without a prompt", b.tool)
		return nil
	}
	text, ok := b.prompt(b.tool)
	if !ok || text == "" {
		return nil
	}
	if b.tool == ToolLabel {
		return b.executeLocked(shape.Label{Position: p, Text: text})
	}
	return b.executeLocked(shape.Text{Position: p, Text: text})
}

func (b *Board) dropProvisionalLocked() error {
	if b.provisional == nil {
		return nil
	}
	if err := b.surface.Remove(b.provisional.ID); err != nil {
		return fmt.Errorf("discard provisional: %w", err)
	}
	b.provisional = nil
	return nil
}
