package workout

import (
	"time"

	"github.com/google/uuid"

	"github.com/sprintcoach/sprintcoach/internal/events"
	"github.com/sprintcoach/sprintcoach/internal/gps"
	"github.com/sprintcoach/sprintcoach/internal/session"
)

// UnitResult is the completion record for one unit. Result.Distance and
// Result.MaxSpeed are zero when the measurement fell back to wall clock.
type UnitResult struct {
	Phase     Phase
	Unit      session.Unit
	Result    gps.SprintResult
	HeartRate int  // bpm at completion, zero when no monitor is wired
	Synthetic bool // true when GPS was unavailable for this unit
}

// Summary is the finalized session record handed to the result recorder
// exactly once, when the Complete phase is reached.
type Summary struct {
	SessionID      uuid.UUID
	StartedAt      time.Time
	Duration       time.Duration
	TotalUnits     int
	MaxSpeed       float64
	CompletedUnits []UnitResult
}

// Recorder persists finished sessions. The orchestrator calls Save exactly
// once per completed session.
type Recorder interface {
	Save(Summary) error
}

// Publisher pushes snapshots toward the peer device, best effort. A nil
// publisher (or one returning errors) never affects orchestration.
type Publisher interface {
	Publish(Snapshot) error
}

// Events is the closed set of typed signals the orchestrator emits. The
// announcer, the dashboard and the sync layer subscribe here; the
// orchestrator knows nothing about spoken text, haptics or rendering.
type Events struct {
	PhaseStarted   *events.CallbackEvent[Phase]
	PhaseCompleted *events.CallbackEvent[Phase]
	RestCountdown  *events.CallbackEvent[int] // seconds remaining: advisory, not a transition
	UnitCompleted  *events.CallbackEvent[UnitResult]
	State          *events.ChannelEvent[Snapshot]
}

// NewEvents creates the event bus. The state event replays the latest
// snapshot to late subscribers so a display attaching mid-workout renders
// immediately.
func NewEvents() *Events {
	return &Events{
		PhaseStarted:   events.NewCallbackEvent[Phase](false),
		PhaseCompleted: events.NewCallbackEvent[Phase](false),
		RestCountdown:  events.NewCallbackEvent[int](false),
		UnitCompleted:  events.NewCallbackEvent[UnitResult](false),
		State:          events.NewChannelEvent[Snapshot](true),
	}
}
