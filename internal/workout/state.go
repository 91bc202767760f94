package workout

import (
	"time"

	"github.com/google/uuid"
)

// DeviceID tags which execution context wrote a snapshot. Used only for
// sync tie-breaking.
type DeviceID string

const (
	DeviceWrist    DeviceID = "wrist"
	DeviceHandheld DeviceID = "handheld"
)

// syncPriority breaks last-updated ties. The wrist device wins: it is the
// primary input surface during a workout.
func (d DeviceID) syncPriority() int {
	switch d {
	case DeviceWrist:
		return 2
	case DeviceHandheld:
		return 1
	default:
		return 0
	}
}

// Snapshot is the full, immutable copy of the session state that leaves the
// orchestrator: the UI renders it, the sync channel ships it between
// devices. The orchestrator's run loop is the single writer of the
// underlying record; everyone else sees copies.
type Snapshot struct {
	SessionID     uuid.UUID `json:"session_id"`
	Phase         Phase     `json:"phase"`
	PhaseElapsed  float64   `json:"phase_elapsed_seconds"`
	UnitIndex     int       `json:"unit_index"`
	TotalUnits    int       `json:"total_units"`
	Resting       bool      `json:"resting"`
	RestRemaining float64   `json:"rest_remaining_seconds"`
	Running       bool      `json:"running"`
	Paused        bool      `json:"paused"`
	LastUpdated   time.Time `json:"last_updated"`
	Origin        DeviceID  `json:"origin_device"`
}

// Supersedes implements the last-writer-wins merge rule: s replaces other
// when s was written later, or at the exact same instant by a device with
// higher sync priority. Phase ordering is deliberately not consulted, so a
// stale snapshot can never regress a replica no matter how "advanced" it
// looks.
func (s Snapshot) Supersedes(other Snapshot) bool {
	if s.LastUpdated.After(other.LastUpdated) {
		return true
	}
	if s.LastUpdated.Equal(other.LastUpdated) {
		return s.Origin.syncPriority() > other.Origin.syncPriority()
	}
	return false
}
