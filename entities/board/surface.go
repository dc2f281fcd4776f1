package board

import "blackboard/entities/shape"

// Surface is a drawing library adapter. The board decides what is live and
// hands the surface one primitive per id; the surface translates each shape
// command into its own native object.
type Surface interface {
	// Name identifies the surface in logs and exports
	Name() string

	// Viewport reports the visible region. Surfaces that cannot tell return
	// shape.DefaultViewport.
	Viewport() shape.Viewport

	// Add creates the native primitive for cmd under id
	Add(id string, cmd shape.Command) error

	// Update replaces the geometry of an existing primitive. Used while a
	// provisional shape follows the pointer and when parameters change.
	Update(id string, cmd shape.Command) error

	// Remove deletes a primitive. Unknown ids are ignored.
	Remove(id string) error

	// Clear deletes every primitive
	Clear() error

	// Primitive returns the native, JSON-marshalable object for id
	Primitive(id string) (any, bool)

	// Redraw commits pending changes to the screen
	Redraw() error
}
