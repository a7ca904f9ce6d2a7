// Package bus provides the editor-side event loop. Command invocations,
// surface notifications and callback URIs all become events on one Bus so
// that the state they mutate is only ever touched by a single goroutine.
package bus

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	EventCommandExecute  EventType = "command.execute"
	EventSurfaceMessage  EventType = "surface.message"
	EventSurfaceDisposed EventType = "surface.disposed"
	EventPanelDisposed   EventType = "panel.disposed"
	EventPanelSettled    EventType = "panel.settled"
	EventURIReceived     EventType = "uri.received"
)

// Event represents a bus event.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent creates a new event.
func NewEvent(eventType EventType, source string, data any) (*Event, error) {
	var dataBytes json.RawMessage
	if data != nil {
		var err error
		dataBytes, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}

	return &Event{
		ID:        generateEventID(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now(),
		Data:      dataBytes,
	}, nil
}

// MustEvent is NewEvent for payloads that always marshal.
func MustEvent(eventType EventType, source string, data any) *Event {
	ev, err := NewEvent(eventType, source, data)
	if err != nil {
		panic(fmt.Sprintf("bus: marshal %s payload: %v", eventType, err))
	}
	return ev
}

// ParseData unmarshals the event data into the given struct.
func (e *Event) ParseData(v any) error {
	if e.Data == nil {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// CommandData is the payload of EventCommandExecute.
type CommandData struct {
	Name string `json:"name"`
}

// SurfaceData is the payload of the surface and panel events. Frame is only
// set for EventSurfaceMessage.
type SurfaceData struct {
	SurfaceID string `json:"surface_id"`
	Frame     []byte `json:"frame,omitempty"`
}

// URIData is the payload of EventURIReceived.
type URIData struct {
	URI string `json:"uri"`
}

var eventCounter atomic.Int64

func generateEventID() string {
	n := eventCounter.Add(1)
	return fmt.Sprintf("evt-%d-%d", time.Now().UnixMilli(), n)
}
