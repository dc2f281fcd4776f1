package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackboard/tools/logger"
)

func TestRoundTrip(t *testing.T) {
	r := New(logger.Discard())

	var notifications []float64
	r.OnChange(func(name string, value float64) {
		assert.Equal(t, "radius", name)
		notifications = append(notifications, value)
	})

	r.Add("radius", 0, 200, 50, 1)
	v, err := r.SetValue("radius", 120)
	require.NoError(t, err)
	assert.Equal(t, 120.0, v)

	p, ok := r.Get("radius")
	require.True(t, ok)
	assert.Equal(t, 120.0, p.Value)
	assert.Equal(t, []float64{120}, notifications)
}

func TestSetValueClamps(t *testing.T) {
	r := New(logger.Discard())
	r.Add("angle", 0, 360, 0, 1)

	v, err := r.SetValue("angle", 400)
	require.NoError(t, err)
	assert.Equal(t, 360.0, v)

	v, err = r.SetValue("angle", -10)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestSetValueUnknown(t *testing.T) {
	r := New(logger.Discard())
	_, err := r.SetValue("missing", 1)
	require.Error(t, err)
}

func TestAddOverwritesAndRebuilds(t *testing.T) {
	r := New(logger.Discard())

	var rebuilds [][]Parameter
	r.OnRebuild(func(ps []Parameter) { rebuilds = append(rebuilds, ps) })

	r.Add("radius", 0, 200, 50, 0)
	r.Add("angle", 0, 360, 0, 5)
	r.Add("radius", 0, 100, 500, 2)

	require.Len(t, rebuilds, 3)
	assert.Equal(t, []Parameter{
		{Name: "radius", Min: 0, Max: 100, Value: 100, Step: 2},
		{Name: "angle", Min: 0, Max: 360, Value: 0, Step: 5},
	}, r.List())

	assert.Equal(t, 1.0, rebuilds[0][0].Step, "non-positive step defaults to 1")
}

func TestImplicitRegistration(t *testing.T) {
	r := New(logger.Discard())

	notified := 0
	r.OnChange(func(string, float64) { notified++ })

	v, err := r.Set("speed", 42)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	p, ok := r.Get("speed")
	require.True(t, ok)
	assert.Equal(t, Parameter{Name: "speed", Min: 0, Max: 100, Value: 42, Step: 1}, p)
	assert.Equal(t, 1, notified)

	v, err = r.Set("height", 150)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
	p, _ = r.Get("height")
	assert.Equal(t, Parameter{Name: "height", Min: 0, Max: 100, Value: 100, Step: 1}, p, "implicit range is [0,100]")

	v, err = r.Set("depth", -5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestClear(t *testing.T) {
	r := New(logger.Discard())
	r.Add("radius", 0, 200, 50, 1)

	cleared := false
	r.OnRebuild(func(ps []Parameter) { cleared = ps == nil })
	r.Clear()

	assert.True(t, cleared)
	assert.Empty(t, r.List())
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		Text     string
		Expected Assignment
		OK       bool
	}{
		{Text: "set radius to 120", Expected: Assignment{Name: "radius", Value: 120}, OK: true},
		{Text: "change the Angle is 45.5", Expected: Assignment{Name: "angle", Value: 45.5}, OK: true},
		{Text: "slider speed = 3", Expected: Assignment{Name: "speed", Value: 3}, OK: true},
		{Text: "adjust size equals 7", Expected: Assignment{Name: "size", Value: 7}, OK: true},
		{Text: "set radius bigger"},
	}

	for _, tt := range tests {
		t.Run(tt.Text, func(t *testing.T) {
			a, ok := ParseAssignment(tt.Text)
			assert.Equal(t, tt.OK, ok)
			assert.Equal(t, tt.Expected, a)
		})
	}
}
