package view

import "github.com/linanwx/companion/message"

// StateContext owns the editor state mirrored into the view. Nothing is
// rendered until it has been hydrated.
type StateContext interface {
	DidHydrateState() bool
	State() message.State
	// Handle consumes msg if it carries state and reports whether it did.
	Handle(msg message.Message) bool
}

// ExtensionState is hydrated by the first state snapshot and replaced by
// each later one.
type ExtensionState struct {
	hydrated bool
	state    message.State
}

func NewExtensionState() *ExtensionState {
	return &ExtensionState{}
}

func (s *ExtensionState) DidHydrateState() bool { return s.hydrated }
func (s *ExtensionState) State() message.State  { return s.state }

func (s *ExtensionState) Handle(msg message.Message) bool {
	snap, ok := msg.(message.StateSnapshot)
	if !ok {
		return false
	}
	s.state = snap.State
	s.hydrated = true
	return true
}
