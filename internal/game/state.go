package game

// State is the lifecycle phase of a World.
type State int

const (
	StateInactive State = iota
	StateLoading
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	}
	return "unknown"
}
