package view

import "github.com/linanwx/companion/message"

// Navigation selects which screen the view shows. At most one of the two
// flags is set; both unset means the chat screen.
type Navigation struct {
	ShowSettings bool
	ShowHistory  bool
}

// Apply folds an editor message into the navigation state. It reports
// whether the message was a navigation action; anything else, including
// unknown actions, leaves the state untouched.
func (n Navigation) Apply(msg message.Message) (Navigation, bool) {
	a, ok := msg.(message.ActionNotification)
	if !ok {
		return n, false
	}
	switch a.Action {
	case message.ActionSettingsButtonClicked:
		return Navigation{ShowSettings: true}, true
	case message.ActionHistoryButtonClicked:
		return Navigation{ShowHistory: true}, true
	case message.ActionChatButtonClicked:
		return Navigation{}, true
	}
	return n, false
}

// ShowHistoryView is the in-view route to the history screen. It lands on
// the same state as a historyButtonClicked action.
func (n Navigation) ShowHistoryView() Navigation {
	return Navigation{ShowHistory: true}
}

// ShowChat returns to the chat screen.
func (n Navigation) ShowChat() Navigation {
	return Navigation{}
}

// ChatHidden reports whether another screen covers the chat.
func (n Navigation) ChatHidden() bool {
	return n.ShowSettings || n.ShowHistory
}
