package workout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sprintcoach/sprintcoach/internal/session"
)

func TestPhaseOrdering(t *testing.T) {
	order := []Phase{PhaseWarmup, PhaseStretch, PhaseDrills, PhaseStrides, PhaseSprints, PhaseCooldown, PhaseComplete}

	p := PhaseWarmup
	for i := 1; i < len(order); i++ {
		next, ok := p.Next()
		assert.True(t, ok)
		assert.Equal(t, order[i], next)
		assert.Greater(t, int(next), int(p), "phases only move forward")
		p = next
	}

	next, ok := PhaseComplete.Next()
	assert.False(t, ok, "Complete is terminal")
	assert.Equal(t, PhaseComplete, next)
}

func TestPhaseClassification(t *testing.T) {
	assert.False(t, PhaseWarmup.Compound())
	assert.False(t, PhaseStretch.Compound())
	assert.True(t, PhaseDrills.Compound())
	assert.True(t, PhaseStrides.Compound())
	assert.True(t, PhaseSprints.Compound())
	assert.False(t, PhaseCooldown.Compound())
	assert.False(t, PhaseComplete.Compound())

	assert.True(t, PhaseComplete.Terminal())
	assert.False(t, PhaseCooldown.Terminal())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "Sprints", PhaseSprints.String())
	assert.Equal(t, "Unknown", Phase(42).String())
}

func TestCompoundDuration_NoTrailingRest(t *testing.T) {
	units := make([]session.Unit, 5)
	for i := range units {
		units[i] = session.Unit{Index: i, ActiveSeconds: 30, RestAfterSeconds: 60}
	}
	// 5*(30+60) minus the final unit's rest.
	assert.Equal(t, 390.0, CompoundDuration(units))

	assert.Equal(t, 0.0, CompoundDuration(nil))
	assert.Equal(t, 30.0, CompoundDuration(units[:1]))
}
