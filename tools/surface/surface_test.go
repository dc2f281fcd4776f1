package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"blackboard/entities/shape"
)

func TestStoreKeepsInsertionOrder(t *testing.T) {
	s := NewStore[string]()
	s.Put("a", "first")
	s.Put("b", "second")
	s.Put("c", "third")
	s.Put("a", "replaced")

	assert.Equal(t, []string{"replaced", "second", "third"}, s.All())
	assert.True(t, s.Delete("b"))
	assert.False(t, s.Delete("b"))
	assert.Equal(t, []string{"replaced", "third"}, s.All())
	assert.Equal(t, 2, s.Len())

	v, ok := s.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "third", v)

	s.Reset()
	assert.Zero(t, s.Len())
	assert.False(t, s.Has("a"))
}

func TestViewportOrDefault(t *testing.T) {
	assert.Equal(t, shape.DefaultViewport, ViewportOrDefault(shape.Viewport{}))
	vp := shape.Viewport{Width: 10, Height: 20}
	assert.Equal(t, vp, ViewportOrDefault(vp))
}
