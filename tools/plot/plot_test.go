package plot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackboard/entities/shape"
)

func TestSamples(t *testing.T) {
	xs := Samples(-5, 5, 0.1)
	require.Len(t, xs, 101)
	assert.InDelta(t, -5, xs[0], 1e-9)
	assert.InDelta(t, 0, xs[50], 1e-9)
	assert.InDelta(t, 5, xs[100], 1e-9)

	assert.Equal(t, []float64{1}, Samples(1, 1, 0.5))
	assert.Nil(t, Samples(1, 0, 0.5))
	assert.Nil(t, Samples(0, 1, 0))
}

func TestGraphLine(t *testing.T) {
	vp := shape.Viewport{Width: 800, Height: 600}
	cmds, err := Graph("y = x", vp, Options{XMin: -1, XMax: 1, Step: 1})
	require.NoError(t, err)
	require.Len(t, cmds, 3)

	assert.Equal(t, shape.Graph{Origin: shape.Pt(400, 300), AxisLength: 400}, cmds[0])
	assert.Equal(t, shape.Line{From: shape.Pt(350, 350), To: shape.Pt(400, 300)}, cmds[1])
	assert.Equal(t, shape.Line{From: shape.Pt(400, 300), To: shape.Pt(450, 250)}, cmds[2])
}

func TestGraphDefaults(t *testing.T) {
	cmds, err := Graph("f(x) = x^2", shape.DefaultViewport, Options{})
	require.NoError(t, err)
	// axes + 100 segments between 101 samples
	assert.Len(t, cmds, 101)
	assert.Equal(t, shape.KindGraph, cmds[0].Kind())
	for _, c := range cmds[1:] {
		assert.Equal(t, shape.KindLine, c.Kind())
	}
}

func TestGraphSkipsNonFinite(t *testing.T) {
	cmds, err := Graph("y = sqrt(x)", shape.DefaultViewport, Options{XMin: -2, XMax: 2, Step: 1})
	require.NoError(t, err)
	// samples at 0, 1 and 2 survive
	assert.Len(t, cmds, 3)

	cmds, err = Graph("y = log(x) * 0 + sqrt(-1)", shape.DefaultViewport, Options{})
	require.NoError(t, err)
	assert.Len(t, cmds, 1, "axes only")
}

func TestGraphRejectsBadEquation(t *testing.T) {
	_, err := Graph("y = 2 +", shape.DefaultViewport, Options{})
	require.Error(t, err)
}
