// Package surface provides the UI surfaces a panel can be hosted in and the
// hosts that create them.
package surface

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/linanwx/companion/logger"
)

const outboxSize = 64

var (
	// ErrDisposed is returned when posting into a surface that is gone.
	ErrDisposed = errors.New("surface disposed")
	// ErrHostBusy is returned by hosts that can only show one surface.
	ErrHostBusy = errors.New("host already shows a surface")
)

// Column says where a new surface is placed relative to the editing area.
type Column int

const (
	ColumnActive Column = iota
	ColumnBeside
)

// Options describe a surface to create.
type Options struct {
	ViewType                string
	Title                   string
	Column                  Column
	RetainContextWhenHidden bool
}

// Presentation is the chrome shown around a surface.
type Presentation struct {
	Title     string
	IconLight string
	IconDark  string
}

// Surface is one host-owned UI panel.
type Surface interface {
	// ID identifies the surface for its whole lifetime.
	ID() string

	// PostMessage delivers a frame to the view. Delivery is fire-and-forget:
	// a nil error does not mean the view has seen the frame.
	PostMessage(ctx context.Context, frame []byte) error

	// OnDidReceiveMessage registers a callback for frames sent by the view.
	OnDidReceiveMessage(fn func(frame []byte))

	// OnDidDispose registers a callback run once when the surface goes away,
	// whoever closed it.
	OnDidDispose(fn func())

	// SetPresentation updates title and icons.
	SetPresentation(p Presentation)

	// Dispose closes the surface.
	Dispose()
}

// Host creates surfaces.
type Host interface {
	CreateSurface(ctx context.Context, opts Options) (Surface, error)
}

// Locker is implemented by hosts that can pin the surface's column so
// later navigation does not cover it.
type Locker interface {
	LockEditorGroup(ctx context.Context) error
}

// lifecycle holds the bookkeeping shared by every surface implementation.
type lifecycle struct {
	id   string
	opts Options

	mu           sync.Mutex
	disposed     bool
	onDispose    []func()
	onMessage    []func([]byte)
	pending      [][]byte // frames received before anyone listened
	presentation Presentation
}

func newLifecycle(opts Options) *lifecycle {
	return &lifecycle{
		id:           uuid.NewString(),
		opts:         opts,
		presentation: Presentation{Title: opts.Title},
	}
}

func (l *lifecycle) ID() string { return l.id }

func (l *lifecycle) SetPresentation(p Presentation) {
	l.mu.Lock()
	l.presentation = p
	l.mu.Unlock()
}

// Presentation returns the current chrome.
func (l *lifecycle) Presentation() Presentation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.presentation
}

func (l *lifecycle) OnDidDispose(fn func()) {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		fn()
		return
	}
	l.onDispose = append(l.onDispose, fn)
	l.mu.Unlock()
}

func (l *lifecycle) OnDidReceiveMessage(fn func([]byte)) {
	l.mu.Lock()
	l.onMessage = append(l.onMessage, fn)
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, frame := range pending {
		fn(frame)
	}
}

func (l *lifecycle) isDisposed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disposed
}

// receive hands a frame from the view to the registered callbacks.
func (l *lifecycle) receive(frame []byte) {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return
	}
	if len(l.onMessage) == 0 {
		l.pending = append(l.pending, frame)
		l.mu.Unlock()
		return
	}
	handlers := append([]func([]byte){}, l.onMessage...)
	l.mu.Unlock()

	for _, fn := range handlers {
		fn(frame)
	}
}

// markDisposed runs the disposal callbacks. Only the first call has any
// effect.
func (l *lifecycle) markDisposed() bool {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return false
	}
	l.disposed = true
	fns := l.onDispose
	l.onDispose = nil
	l.onMessage = nil
	l.pending = nil
	l.mu.Unlock()

	logger.Debug("surface disposed", "surface", l.id)
	for _, fn := range fns {
		fn()
	}
	return true
}

// Outbox serializes frames to one view so they arrive in the order posted,
// without the poster waiting on the view.
type Outbox struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewOutbox starts a sender goroutine calling send for each pushed frame.
func NewOutbox(send func([]byte) error) *Outbox {
	o := &Outbox{
		frames: make(chan []byte, outboxSize),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case frame := <-o.frames:
				if err := send(frame); err != nil {
					logger.Debug("frame not delivered", "err", err)
				}
			case <-o.done:
				return
			}
		}
	}()
	return o
}

// Push queues frame. It never blocks; a full or closed outbox drops it.
func (o *Outbox) Push(frame []byte) bool {
	select {
	case <-o.done:
		return false
	default:
	}
	select {
	case o.frames <- frame:
		return true
	default:
		logger.Warn("surface outbox full, frame dropped")
		return false
	}
}

// Close stops the sender. Queued frames are discarded.
func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}
