package agent

// State is the agent loop's current phase
type State int

const (
	// StateThinking asks the model for the next turn
	StateThinking State = iota
	// StateCallingTools executes the turn's tool calls
	StateCallingTools
	// StateDone holds the terminal answer
	StateDone
	// StateFailed holds the causing error
	StateFailed
)

// String returns the state name for logging
func (s State) String() string {
	switch s {
	case StateThinking:
		return "THINKING"
	case StateCallingTools:
		return "CALLING_TOOLS"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}
