package workout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotSupersedes_Timestamp(t *testing.T) {
	t0 := time.Unix(100, 0)

	newer := Snapshot{Phase: PhaseDrills, LastUpdated: t0, Origin: DeviceWrist}
	older := Snapshot{Phase: PhaseStrides, LastUpdated: t0.Add(-5 * time.Second), Origin: DeviceHandheld}

	// Higher timestamp wins even though the older snapshot "looks" more
	// advanced by phase ordering.
	assert.True(t, newer.Supersedes(older))
	assert.False(t, older.Supersedes(newer))
}

func TestSnapshotSupersedes_TieBreak(t *testing.T) {
	t0 := time.Unix(100, 0)

	wrist := Snapshot{LastUpdated: t0, Origin: DeviceWrist}
	phone := Snapshot{LastUpdated: t0, Origin: DeviceHandheld}

	assert.True(t, wrist.Supersedes(phone), "wrist wins timestamp ties")
	assert.False(t, phone.Supersedes(wrist))
	assert.False(t, wrist.Supersedes(wrist), "equal snapshot does not supersede itself")
}
