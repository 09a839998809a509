package domain

// PositionState is the lifecycle state of a tracked position.
type PositionState int32

// Lifecycle: Created -> Bought -> Watching -> Selling -> Closed.
// Failed is terminal and reachable from any non-terminal state.
const (
	PositionCreated PositionState = iota
	PositionBought
	PositionWatching
	PositionSelling
	PositionClosed
	PositionFailed
)

// String returns the state name.
func (s PositionState) String() string {
	switch s {
	case PositionCreated:
		return "CREATED"
	case PositionBought:
		return "BOUGHT"
	case PositionWatching:
		return "WATCHING"
	case PositionSelling:
		return "SELLING"
	case PositionClosed:
		return "CLOSED"
	case PositionFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state is final.
func (s PositionState) Terminal() bool {
	return s == PositionClosed || s == PositionFailed
}
