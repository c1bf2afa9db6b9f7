package symposium

// State is the position of a discussion in the staged protocol.
type State int32

const (
	StatePending State = iota
	StateStage1
	StateStage2
	StateStage3
	StateCompleted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStage1:
		return "stage1"
	case StateStage2:
		return "stage2"
	case StateStage3:
		return "stage3"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "error"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the discussion has finished.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateErrored
}

// Stage returns the protocol stage number (1-3) or 0 outside the stages.
func (s State) Stage() int {
	switch s {
	case StateStage1, StateStage2, StateStage3:
		return int(s)
	default:
		return 0
	}
}
