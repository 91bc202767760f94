package workout

// Phase is one of the seven ordered stages of a session. Transitions only
// move forward; Complete is terminal.
type Phase int

const (
	PhaseWarmup Phase = iota
	PhaseStretch
	PhaseDrills
	PhaseStrides
	PhaseSprints
	PhaseCooldown
	PhaseComplete
)

var phaseNames = map[Phase]string{
	PhaseWarmup:   "Warmup",
	PhaseStretch:  "Stretch",
	PhaseDrills:   "Drills",
	PhaseStrides:  "Strides",
	PhaseSprints:  "Sprints",
	PhaseCooldown: "Cooldown",
	PhaseComplete: "Complete",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "Unknown"
}

// Next returns the following phase; ok is false at Complete.
func (p Phase) Next() (Phase, bool) {
	if p >= PhaseComplete {
		return PhaseComplete, false
	}
	return p + 1, true
}

// Compound reports whether the phase's duration is driven by completing a
// unit list rather than a fixed timer.
func (p Phase) Compound() bool {
	return p == PhaseDrills || p == PhaseStrides || p == PhaseSprints
}

// Terminal reports whether the phase has no outgoing transition.
func (p Phase) Terminal() bool { return p == PhaseComplete }
