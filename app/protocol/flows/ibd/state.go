package ibd

import "fmt"

// State is the phase a sync session is in. States only ever move forward.
type State uint32

// The states of a sync session
const (
	StateHandshake State = iota
	StateHeaderSync
	StateBlockSync
	StateComplete
	StateFailed
	StateCancelled
)

var stateStrings = map[State]string{
	StateHandshake:  "Handshake",
	StateHeaderSync: "HeaderSync",
	StateBlockSync:  "BlockSync",
	StateComplete:   "Complete",
	StateFailed:     "Failed",
	StateCancelled:  "Cancelled",
}

func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown State (%d)", uint32(s))
}

// IsTerminal returns whether no further transitions can happen from s.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed || s == StateCancelled
}

// Progress is a snapshot of a sync session.
type Progress struct {
	State   State
	Headers int
	Blocks  int
	Target  int
}

func (p Progress) String() string {
	return fmt.Sprintf("%s: %d/%d headers, %d/%d blocks", p.State, p.Headers, p.Target, p.Blocks, p.Target)
}
