package gps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimTracker_WindowDiscipline(t *testing.T) {
	tr := NewSimTracker(18)

	// No window open yet.
	_, ok := tr.EndSprint()
	assert.False(t, ok)

	require.NoError(t, tr.StartSprint())
	res, ok := tr.EndSprint()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, res.Time, 0.0)

	// Window consumed; a second end has nothing to close.
	_, ok = tr.EndSprint()
	assert.False(t, ok)
}

func TestSimTracker_ResultShape(t *testing.T) {
	tr := NewSimTracker(20)

	require.NoError(t, tr.StartSprint())
	time.Sleep(50 * time.Millisecond)
	res, ok := tr.EndSprint()
	require.True(t, ok)

	assert.InDelta(t, 0.05, res.Time, 0.05)
	assert.Greater(t, res.Distance, 0.0)
	assert.Greater(t, res.MaxSpeed, 0.0)
	assert.Less(t, res.MaxSpeed, 20.0, "cannot exceed modeled top speed")
}

func TestSimTracker_LiveDistanceGrows(t *testing.T) {
	tr := NewSimTracker(18)
	assert.Zero(t, tr.LiveDistance(), "closed window reports zero")

	require.NoError(t, tr.StartSprint())
	time.Sleep(30 * time.Millisecond)
	d1 := tr.LiveDistance()
	time.Sleep(30 * time.Millisecond)
	d2 := tr.LiveDistance()

	assert.Greater(t, d1, 0.0)
	assert.Greater(t, d2, d1)

	tr.EndSprint()
	assert.Zero(t, tr.LiveDistance())
}

func TestSimTracker_DefaultTopSpeed(t *testing.T) {
	tr := NewSimTracker(0)
	assert.Equal(t, 18.0, tr.topSpeedMPH)
}
