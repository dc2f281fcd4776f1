// Package board executes shape commands against a drawing surface. It owns
// the live shape sequence and the single provisional slot used while the
// pointer is dragging out a new shape.
package board

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"blackboard/entities/shape"
	"blackboard/tools/logger"
)

// Entry is one live shape
type Entry struct {
	ID      string        `json:"id"`
	Command shape.Command `json:"command"`
}

// Board is the command executor for one surface. Methods are safe to call
// from several goroutines, though the classroom drives it from one.
type Board struct {
	mu      sync.Mutex
	surface Surface
	live    []Entry
	nextID  uint64
	log     *logger.Logger

	tool        Tool
	state       State
	start       shape.Point
	provisional *Entry
	prompt      PromptFunc
}

// New creates a board drawing on surface
func New(surface Surface, log *logger.Logger) *Board {
	if log == nil {
		log = logger.Default()
	}
	return &Board{
		surface: surface,
		log:     log.WithPrefix("board"),
		tool:    ToolSelect,
		state:   StateIdle,
	}
}

// Surface returns the active surface
func (b *Board) Surface() Surface {
	return b.surface
}

// Viewport returns the active surface's viewport
func (b *Board) Viewport() shape.Viewport {
	vp := b.surface.Viewport()
	if vp.Width <= 0 || vp.Height <= 0 {
		return shape.DefaultViewport
	}
	return vp
}

// Execute validates cmd and appends it to the live sequence. A Graph lowers to
// its two axis lines. Executing the same command twice draws it twice.
func (b *Board) Execute(cmd shape.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.executeLocked(cmd)
}

// ExecuteAll executes commands in order and stops at the first failure
func (b *Board) ExecuteAll(cmds []shape.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cmd := range cmds {
		if err := b.executeLocked(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (b *Board) executeLocked(cmd shape.Command) error {
	if cmd == nil {
		return fmt.Errorf("nil command")
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	if g, ok := cmd.(shape.Graph); ok {
		x, y := g.Axes()
		if err := b.appendLocked(x); err != nil {
			return err
		}
		if err := b.appendLocked(y); err != nil {
			return err
		}
	} else if err := b.appendLocked(cmd); err != nil {
		return err
	}

	if err := b.surface.Redraw(); err != nil {
		return fmt.Errorf("redraw %s: %w", b.surface.Name(), err)
	}
	return nil
}

func (b *Board) appendLocked(cmd shape.Command) error {
	id := b.newIDLocked()
	if err := b.surface.Add(id, cmd); err != nil {
		return fmt.Errorf("add %s to %s: %w", cmd.Kind(), b.surface.Name(), err)
	}
	b.live = append(b.live, Entry{ID: id, Command: cmd})
	b.log.Command(string(cmd.Kind()), b.surface.Name())
	return nil
}

func (b *Board) newIDLocked() string {
	b.nextID++
	return "shape-" + strconv.FormatUint(b.nextID, 10)
}

// Live returns a copy of the live sequence in z-order, bottom first
func (b *Board) Live() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.live...)
}

// Commands returns the live shape commands in z-order
func (b *Board) Commands() []shape.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	cmds := make([]shape.Command, len(b.live))
	for i, e := range b.live {
		cmds[i] = e.Command
	}
	return cmds
}

// Len returns the number of live shapes
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// EraseAt removes the first live shape, in z-order, whose bounding box
// contains p. It reports whether anything was removed.
func (b *Board) EraseAt(p shape.Point) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eraseLocked(p)
}

func (b *Board) eraseLocked(p shape.Point) (bool, error) {
	for i, e := range b.live {
		if !e.Command.Bounds().Contains(p) {
			continue
		}
		if err := b.surface.Remove(e.ID); err != nil {
			return false, fmt.Errorf("remove %s: %w", e.ID, err)
		}
		b.live = append(b.live[:i], b.live[i+1:]...)
		b.log.Debug("erased %s %s", e.Command.Kind(), e.ID)
		return true, b.surface.Redraw()
	}
	return false, nil
}

// Update rewrites live shapes in place. fn returns the replacement and true for
// every shape it wants to change.
func (b *Board) Update(fn func(shape.Command) (shape.Command, bool)) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	changed := 0
	for i, e := range b.live {
		next, ok := fn(e.Command)
		if !ok {
			continue
		}
		if err := next.Validate(); err != nil {
			return changed, err
		}
		if err := b.surface.Update(e.ID, next); err != nil {
			return changed, fmt.Errorf("update %s: %w", e.ID, err)
		}
		b.live[i].Command = next
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, b.surface.Redraw()
}

// SetCircleRadius sets the radius of every live circle
func (b *Board) SetCircleRadius(r float64) (int, error) {
	return b.Update(func(c shape.Command) (shape.Command, bool) {
		circle, ok := c.(shape.Circle)
		if !ok {
			return nil, false
		}
		circle.Radius = r
		return circle, true
	})
}

// Clear removes every shape, live and provisional
func (b *Board) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.surface.Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", b.surface.Name(), err)
	}
	b.live = nil
	b.provisional = nil
	b.state = StateIdle
	b.log.Info("board cleared")
	return b.surface.Redraw()
}

// Export serializes the live sequence as a pretty-printed JSON array of the
// surface's native primitives
func (b *Board) Export() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prims := make([]any, 0, len(b.live))
	for _, e := range b.live {
		p, ok := b.surface.Primitive(e.ID)
		if !ok {
			return nil, fmt.Errorf("surface %s lost primitive %s", b.surface.Name(), e.ID)
		}
		prims = append(prims, p)
	}
	data, err := json.MarshalIndent(prims, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return data, nil
}
