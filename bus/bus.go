package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/linanwx/companion/logger"
)

// ErrClosed is returned by Request once the bus has been closed.
var ErrClosed = errors.New("bus closed")

// Handler handles one event. Handlers run on the bus goroutine, one at a
// time, so state they touch needs no further locking from the editor side.
type Handler func(ctx context.Context, event *Event) error

// Subscription represents a subscription to events.
type Subscription struct {
	ID        string
	EventType EventType
	Handler   Handler
}

type envelope struct {
	ctx   context.Context
	event *Event
	reply chan error
}

type loopKey struct{}

// Bus is the editor-side event loop. Events are dispatched in the order they
// were queued, each to its subscribers in subscription order.
type Bus struct {
	mu            sync.RWMutex
	subscriptions []*Subscription
	subCounter    int64

	eventChan chan envelope
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewBus creates a new event bus and starts its dispatch loop.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	b := &Bus{
		eventChan: make(chan envelope, bufferSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	go b.processEvents()

	return b
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subCounter++
	id := fmt.Sprintf("sub-%d", b.subCounter)

	b.subscriptions = append(b.subscriptions, &Subscription{
		ID:        id,
		EventType: eventType,
		Handler:   handler,
	})

	logger.Debug("subscription added", "id", id, "eventType", eventType)
	return id
}

// Publish queues an event without waiting for it to be handled. The event is
// dropped if the bus is closed or its buffer is full.
func (b *Bus) Publish(event *Event) {
	if b.isClosed() {
		logger.Warn("bus closed, event dropped", "type", event.Type)
		return
	}
	select {
	case b.eventChan <- envelope{ctx: context.Background(), event: event}:
		logger.Debug("event published", "type", event.Type, "source", event.Source)
	default:
		logger.Warn("event buffer full, event dropped", "type", event.Type)
	}
}

// Request queues an event and waits until its handlers have run, returning
// their joined error. Called from inside a handler it dispatches inline,
// since the loop is busy running the caller.
func (b *Bus) Request(ctx context.Context, event *Event) error {
	if owner, _ := ctx.Value(loopKey{}).(*Bus); owner == b {
		return b.dispatch(ctx, event)
	}
	if b.isClosed() {
		return ErrClosed
	}

	reply := make(chan error, 1)
	select {
	case b.eventChan <- envelope{ctx: ctx, event: event, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrClosed
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stopped:
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// Close stops accepting events, drains the queue and waits for the loop to
// exit.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	<-b.stopped
}

func (b *Bus) isClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// processEvents is the main event processing loop.
func (b *Bus) processEvents() {
	defer close(b.stopped)

	for {
		select {
		case env := <-b.eventChan:
			b.handle(env)
		case <-b.done:
			for {
				select {
				case env := <-b.eventChan:
					b.handle(env)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) handle(env envelope) {
	ctx := context.WithValue(env.ctx, loopKey{}, b)
	err := b.dispatch(ctx, env.event)
	if env.reply != nil {
		env.reply <- err
		return
	}
	if err != nil {
		logger.Warn("event handler failed", "type", env.event.Type, "source", env.event.Source, "err", err)
	}
}

// dispatch runs every matching subscriber in order.
func (b *Bus) dispatch(ctx context.Context, event *Event) error {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		if sub.EventType == event.Type {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := b.call(ctx, sub, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) call(ctx context.Context, s *Subscription, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panic", "subscription", s.ID, "panic", r)
			err = fmt.Errorf("handler %s panicked: %v", s.ID, r)
		}
	}()
	return s.Handler(ctx, event)
}
