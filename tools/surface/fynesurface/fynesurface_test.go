package fynesurface

import (
	"testing"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackboard/entities/board"
	"blackboard/entities/shape"
	"blackboard/tools/logger"
)

func TestObjectsFor(t *testing.T) {
	objs, err := ObjectsFor(shape.Circle{Center: shape.Pt(100, 100), Radius: 10})
	require.NoError(t, err)
	require.Len(t, objs, 1)
	circle := objs[0].(*fynecanvas.Circle)
	assert.Equal(t, fyne.NewPos(90, 90), circle.Position1)
	assert.Equal(t, fyne.NewPos(110, 110), circle.Position2)

	objs, err = ObjectsFor(shape.Triangle{Center: shape.Pt(0, 0), Size: 100})
	require.NoError(t, err)
	assert.Len(t, objs, 3, "one line per edge")

	objs, err = ObjectsFor(shape.Polygon{Points: []shape.Point{shape.Pt(0, 0), shape.Pt(1, 0), shape.Pt(1, 1)}, Open: true})
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	objs, err = ObjectsFor(shape.Label{Position: shape.Pt(20, 20), Text: "A"})
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "A", objs[1].(*fynecanvas.Text).Text)
	assert.Equal(t, float32(shape.LabelFontSize), objs[1].(*fynecanvas.Text).TextSize)

	_, err = ObjectsFor(shape.Graph{AxisLength: 10})
	require.Error(t, err)
}

func TestCanvasWithBoard(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	c := New(800, 600, logger.Discard())
	b := board.New(c, logger.Discard())
	assert.Equal(t, shape.Pt(400, 300), b.Viewport().Center())

	require.NoError(t, b.Execute(shape.Rectangle{Origin: shape.Pt(10, 10), Width: 50, Height: 20}))
	require.NoError(t, b.Execute(shape.Graph{Origin: shape.Pt(400, 300), AxisLength: 100}))
	assert.Len(t, c.Content().Objects, 4, "background, rectangle and two axes")

	removed, err := b.EraseAt(shape.Pt(20, 20))
	require.NoError(t, err)
	require.True(t, removed)
	assert.Len(t, c.Content().Objects, 3)

	require.NoError(t, b.Clear())
	assert.Len(t, c.Content().Objects, 1)

	c.Resize(fyne.NewSize(1000, 500))
	assert.Equal(t, shape.Viewport{Width: 1000, Height: 500}, c.Viewport())
}
