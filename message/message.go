// Package message defines the frames exchanged between the editor side and
// the view. Every frame is a JSON object tagged by "type".
package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrMalformed is returned by Decode for frames that are not JSON objects.
var ErrMalformed = errors.New("malformed message frame")

// Type is the discriminator carried in the "type" field.
type Type string

const (
	TypeAction           Type = "action"
	TypeState            Type = "state"
	TypeWebviewDidLaunch Type = "webviewDidLaunch"
	TypeNewTask          Type = "newTask"
)

// Action is the payload of an action notification.
type Action string

const (
	ActionSettingsButtonClicked Action = "settingsButtonClicked"
	ActionHistoryButtonClicked  Action = "historyButtonClicked"
	ActionChatButtonClicked     Action = "chatButtonClicked"
)

// Actions lists every action the view understands.
var Actions = []Action{
	ActionSettingsButtonClicked,
	ActionHistoryButtonClicked,
	ActionChatButtonClicked,
}

// Known reports whether a is one of the enumerated actions.
func (a Action) Known() bool {
	switch a {
	case ActionSettingsButtonClicked, ActionHistoryButtonClicked, ActionChatButtonClicked:
		return true
	}
	return false
}

// Message is a decoded frame. The concrete types below are the only
// implementations.
type Message interface {
	Type() Type
	isMessage()
}

// ActionNotification asks the view to switch screens.
type ActionNotification struct {
	Action Action
}

// StateSnapshot carries the state the view hydrates from.
type StateSnapshot struct {
	State State
}

// WebviewDidLaunch is sent by the view once it is ready to receive state.
type WebviewDidLaunch struct{}

// NewTask is sent by the view when the user submits input.
type NewTask struct {
	Text string
}

// Unknown is any frame whose type this package does not model. Raw is the
// frame exactly as received so it can be forwarded untouched.
type Unknown struct {
	Kind Type
	Raw  []byte
}

func (ActionNotification) Type() Type { return TypeAction }
func (StateSnapshot) Type() Type      { return TypeState }
func (WebviewDidLaunch) Type() Type   { return TypeWebviewDidLaunch }
func (NewTask) Type() Type            { return TypeNewTask }
func (u Unknown) Type() Type          { return u.Kind }

func (ActionNotification) isMessage() {}
func (StateSnapshot) isMessage()      {}
func (WebviewDidLaunch) isMessage()   {}
func (NewTask) isMessage()            {}
func (Unknown) isMessage()            {}

// State is the snapshot of editor-side state rendered by the view.
type State struct {
	Version          string        `json:"version"`
	APIProvider      string        `json:"apiProvider,omitempty"`
	HasOpenRouterKey bool          `json:"hasOpenRouterKey"`
	TaskHistory      []HistoryItem `json:"taskHistory"`
}

// HistoryItem is one entry of the task history.
type HistoryItem struct {
	ID   string `json:"id"`
	Task string `json:"task"`
	TS   int64  `json:"ts"`
}

// Encode serializes m into a frame.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("encode: nil message")
	}

	frame := []byte(`{}`)
	var err error
	switch m := m.(type) {
	case ActionNotification:
		frame, err = sjson.SetBytes(frame, "type", string(TypeAction))
		if err == nil {
			frame, err = sjson.SetBytes(frame, "action", string(m.Action))
		}
	case StateSnapshot:
		frame, err = sjson.SetBytes(frame, "type", string(TypeState))
		if err == nil {
			frame, err = sjson.SetBytes(frame, "state", m.State)
		}
	case WebviewDidLaunch:
		frame, err = sjson.SetBytes(frame, "type", string(TypeWebviewDidLaunch))
	case NewTask:
		frame, err = sjson.SetBytes(frame, "type", string(TypeNewTask))
		if err == nil {
			frame, err = sjson.SetBytes(frame, "text", m.Text)
		}
	case Unknown:
		if !gjson.ValidBytes(m.Raw) {
			return nil, fmt.Errorf("encode %q: %w", m.Kind, ErrMalformed)
		}
		return append([]byte(nil), m.Raw...), nil
	default:
		return nil, fmt.Errorf("encode: unsupported message %T", m)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return frame, nil
}

// Decode parses a frame. Frames with an unrecognized type decode to Unknown
// rather than failing; only frames that are not JSON objects are errors.
func Decode(frame []byte) (Message, error) {
	if !gjson.ValidBytes(frame) {
		return nil, ErrMalformed
	}
	root := gjson.ParseBytes(frame)
	if !root.IsObject() {
		return nil, ErrMalformed
	}

	kind := Type(root.Get("type").String())
	switch kind {
	case TypeAction:
		return ActionNotification{Action: Action(root.Get("action").String())}, nil
	case TypeState:
		var st State
		if raw := root.Get("state"); raw.Exists() {
			if err := json.Unmarshal([]byte(raw.Raw), &st); err != nil {
				return nil, fmt.Errorf("decode state: %w", err)
			}
		}
		return StateSnapshot{State: st}, nil
	case TypeWebviewDidLaunch:
		return WebviewDidLaunch{}, nil
	case TypeNewTask:
		return NewTask{Text: root.Get("text").String()}, nil
	default:
		return Unknown{Kind: kind, Raw: append([]byte(nil), frame...)}, nil
	}
}
