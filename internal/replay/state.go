package replay

// State is the replay recorder's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
)

// canTransition reports whether the recorder may move from from to to.
// idle -> recording -> paused -> recording -> stopped. stopped is
// terminal; a caller must build a new Recorder to record again.
func canTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateRecording
	case StateRecording:
		return to == StatePaused || to == StateStopped
	case StatePaused:
		return to == StateRecording || to == StateStopped
	case StateStopped:
		return false
	default:
		return false
	}
}
