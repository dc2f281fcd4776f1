package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackboard/entities/shape"
)

func TestDragLifecycle(t *testing.T) {
	tests := []struct {
		Name     string
		Tool     Tool
		Start    shape.Point
		Move     shape.Point
		Expected shape.Command
	}{
		{
			Name:     "Line",
			Tool:     ToolLine,
			Start:    shape.Pt(10, 10),
			Move:     shape.Pt(40, 50),
			Expected: shape.Line{From: shape.Pt(10, 10), To: shape.Pt(40, 50)},
		},
		{
			Name:     "Circle",
			Tool:     ToolCircle,
			Start:    shape.Pt(10, 10),
			Move:     shape.Pt(13, 14),
			Expected: shape.Circle{Center: shape.Pt(10, 10), Radius: 5},
		},
		{
			Name:     "Rectangle_NegativeDrag",
			Tool:     ToolRectangle,
			Start:    shape.Pt(50, 60),
			Move:     shape.Pt(10, 20),
			Expected: shape.Rectangle{Origin: shape.Pt(10, 20), Width: 40, Height: 40},
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			b, s := newTestBoard()
			require.NoError(t, b.SetTool(tt.Tool))
			assert.Equal(t, StateIdle, b.State())

			require.NoError(t, b.PointerDown(tt.Start))
			assert.Equal(t, StateDrawing, b.State())
			assert.Zero(t, b.Len(), "provisional shapes are not live")
			require.Len(t, s.prims, 1)

			require.NoError(t, b.PointerMove(tt.Move))
			prov, ok := b.Provisional()
			require.True(t, ok)
			assert.Equal(t, tt.Expected, prov)

			redraws := s.redraws
			require.NoError(t, b.PointerUp(tt.Move))
			assert.Equal(t, StateIdle, b.State(), "commit returns to idle")
			assert.Equal(t, redraws+1, s.redraws, "commit redraws")
			assert.Equal(t, []shape.Command{tt.Expected}, b.Commands())
			_, ok = b.Provisional()
			assert.False(t, ok)
		})
	}
}

func TestProvisionalStartsAtZeroSize(t *testing.T) {
	b, _ := newTestBoard()
	require.NoError(t, b.SetTool(ToolCircle))
	require.NoError(t, b.PointerDown(shape.Pt(7, 8)))

	prov, ok := b.Provisional()
	require.True(t, ok)
	assert.Equal(t, shape.Circle{Center: shape.Pt(7, 8)}, prov)
}

func TestProvisionalPrimitive(t *testing.T) {
	b, _ := newTestBoard()
	_, ok := b.ProvisionalPrimitive()
	assert.False(t, ok)

	require.NoError(t, b.SetTool(ToolLine))
	require.NoError(t, b.PointerDown(shape.Pt(0, 0)))
	require.NoError(t, b.PointerMove(shape.Pt(5, 5)))

	prim, ok := b.ProvisionalPrimitive()
	require.True(t, ok)
	assert.Equal(t, shape.Line{From: shape.Pt(0, 0), To: shape.Pt(5, 5)}, prim.(map[string]any)["shape"])

	require.NoError(t, b.PointerUp(shape.Pt(5, 5)))
	_, ok = b.ProvisionalPrimitive()
	assert.False(t, ok)
}

func TestDragAfterCommit(t *testing.T) {
	b, _ := newTestBoard()
	require.NoError(t, b.SetTool(ToolLine))

	for i := 0; i < 2; i++ {
		start := shape.Pt(float64(i*10), 0)
		require.NoError(t, b.PointerDown(start))
		require.NoError(t, b.PointerMove(shape.Pt(start.X, 20)))
		require.NoError(t, b.PointerUp(shape.Pt(start.X, 20)))
		assert.Equal(t, StateIdle, b.State())
	}
	assert.Equal(t, 2, b.Len())

	// a stray up after the commit changes nothing
	require.NoError(t, b.PointerUp(shape.Pt(0, 0)))
	assert.Equal(t, 2, b.Len())
}

func TestMoveWithoutDownIsIgnored(t *testing.T) {
	b, s := newTestBoard()
	require.NoError(t, b.SetTool(ToolLine))
	require.NoError(t, b.PointerMove(shape.Pt(1, 1)))
	require.NoError(t, b.PointerUp(shape.Pt(1, 1)))
	assert.Empty(t, s.prims)
	assert.Equal(t, StateIdle, b.State())
}

func TestToolChangeDiscardsProvisional(t *testing.T) {
	b, s := newTestBoard()
	require.NoError(t, b.SetTool(ToolRectangle))
	require.NoError(t, b.PointerDown(shape.Pt(1, 1)))
	require.NoError(t, b.SetTool(ToolCircle))

	assert.Empty(t, s.prims)
	assert.Equal(t, StateIdle, b.State())
	assert.Zero(t, b.Len())
}

func TestPolygon(t *testing.T) {
	b, s := newTestBoard()
	require.NoError(t, b.SetTool(ToolPolygon))

	require.NoError(t, b.PointerDown(shape.Pt(0, 0)))
	require.NoError(t, b.PointerDown(shape.Pt(10, 0)))

	done, err := b.FinishPolygon()
	require.NoError(t, err)
	assert.False(t, done, "two points stay provisional")
	prov, ok := b.Provisional()
	require.True(t, ok)
	assert.Equal(t, shape.Polygon{Points: []shape.Point{shape.Pt(0, 0), shape.Pt(10, 0)}, Open: true}, prov)

	require.NoError(t, b.PointerDown(shape.Pt(10, 10)))
	done, err = b.FinishPolygon()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StateIdle, b.State())

	expected := shape.Polygon{Points: []shape.Point{shape.Pt(0, 0), shape.Pt(10, 0), shape.Pt(10, 10)}}
	assert.Equal(t, []shape.Command{expected}, b.Commands())
	assert.Len(t, s.prims, 1)
	for _, p := range s.prims {
		assert.Equal(t, expected, p)
	}
}

func TestTextAndLabelTools(t *testing.T) {
	b, _ := newTestBoard()

	answers := map[Tool]string{ToolText: "theorem", ToolLabel: "A"}
	b.SetPrompt(func(tool Tool) (string, bool) {
		s, ok := answers[tool]
		return s, ok
	})

	require.NoError(t, b.SetTool(ToolText))
	require.NoError(t, b.PointerDown(shape.Pt(5, 5)))
	require.NoError(t, b.SetTool(ToolLabel))
	require.NoError(t, b.PointerDown(shape.Pt(6, 6)))

	assert.Equal(t, []shape.Command{
		shape.Text{Position: shape.Pt(5, 5), Text: "theorem"},
		shape.Label{Position: shape.Pt(6, 6), Text: "A"},
	}, b.Commands())

	answers[ToolText] = ""
	require.NoError(t, b.SetTool(ToolText))
	require.NoError(t, b.PointerDown(shape.Pt(7, 7)))
	assert.Equal(t, 2, b.Len(), "empty text cancels")
}

func TestEraseTool(t *testing.T) {
	b, _ := newTestBoard()
	require.NoError(t, b.Execute(shape.Circle{Center: shape.Pt(50, 50), Radius: 10}))
	require.NoError(t, b.SetTool(ToolErase))

	require.NoError(t, b.PointerDown(shape.Pt(0, 0)))
	assert.Equal(t, 1, b.Len())

	require.NoError(t, b.PointerDown(shape.Pt(55, 55)))
	assert.Zero(t, b.Len())
}

func TestParseTool(t *testing.T) {
	tool, err := ParseTool("polygon")
	require.NoError(t, err)
	assert.Equal(t, ToolPolygon, tool)

	_, err = ParseTool("lasso")
	require.Error(t, err)
}
