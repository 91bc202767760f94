package recorder

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintcoach/sprintcoach/internal/gps"
	"github.com/sprintcoach/sprintcoach/internal/session"
	"github.com/sprintcoach/sprintcoach/internal/workout"
)

func testSummary(started time.Time) workout.Summary {
	id := uuid.New()
	return workout.Summary{
		SessionID:  id,
		StartedAt:  started,
		Duration:   42 * time.Minute,
		TotalUnits: 2,
		MaxSpeed:   19.4,
		CompletedUnits: []workout.UnitResult{
			{
				Phase:  workout.PhaseSprints,
				Unit:   session.Unit{Index: 0, DistanceYards: 40, Label: "40 yd sprint 1/2 @ 95%"},
				Result: gps.SprintResult{Time: 4.9, Distance: 40.3, MaxSpeed: 19.4},
			},
			{
				Phase:     workout.PhaseSprints,
				Unit:      session.Unit{Index: 1, DistanceYards: 40, Label: "40 yd sprint 2/2 @ 95%"},
				Result:    gps.SprintResult{Time: 5.2},
				HeartRate: 168,
				Synthetic: true,
			},
		},
	}
}

func TestSaveAndList(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	s1 := testSummary(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	s2 := testSummary(time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC))
	s2.MaxSpeed = 20.1
	require.NoError(t, db.Save(s1))
	require.NoError(t, db.Save(s2))

	records, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, s2.SessionID.String(), records[0].SessionID)
	assert.Equal(t, s1.SessionID.String(), records[1].SessionID)
	assert.Equal(t, 2, records[0].TotalUnits)
	assert.Equal(t, 42*time.Minute, records[0].Duration)

	best, err := db.BestSpeed()
	require.NoError(t, err)
	assert.Equal(t, 20.1, best)
}

func TestSaveIsIdempotent(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	s := testSummary(time.Now().UTC())
	require.NoError(t, db.Save(s))
	require.NoError(t, db.Save(s))

	records, err := db.Sessions()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestBestSpeedEmpty(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	best, err := db.BestSpeed()
	require.NoError(t, err)
	assert.Zero(t, best)
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/results"
	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
