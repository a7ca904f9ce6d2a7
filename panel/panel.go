// Package panel owns the single assistant panel: opening it beside the
// editor, closing it, and noticing when the user closes it.
package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/linanwx/companion/bus"
	"github.com/linanwx/companion/instance"
	"github.com/linanwx/companion/logger"
	"github.com/linanwx/companion/surface"
)

const (
	ViewType = "companion"
	Title    = "Companion"

	DefaultSettleDelay = 100 * time.Millisecond
)

// InstanceFactory binds a new surface to a controller instance.
type InstanceFactory interface {
	New(s surface.Surface) *instance.Instance
}

// Config wires a Controller.
type Config struct {
	Host    surface.Host
	Factory InstanceFactory
	Bus     *bus.Bus
	Clock   clockwork.Clock

	// SettleDelay is how long to wait after opening before locking the
	// panel's column.
	SettleDelay  time.Duration
	Presentation surface.Presentation

	// Lock pins the panel's column. Nil skips locking.
	Lock func(ctx context.Context) error
}

// Controller toggles the panel. Toggle and the bus handlers run on the bus
// loop; IsOpen and WaitClosed may be called from anywhere.
type Controller struct {
	cfg Config

	mu      sync.Mutex
	current surface.Surface
	closed  chan struct{}
}

// New creates a closed controller and subscribes it to panel events.
func New(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Presentation.Title == "" {
		cfg.Presentation.Title = Title
	}

	c := &Controller{cfg: cfg}
	cfg.Bus.Subscribe(bus.EventPanelDisposed, c.handleDisposed)
	cfg.Bus.Subscribe(bus.EventPanelSettled, c.handleSettled)
	return c
}

// IsOpen reports whether a panel is currently shown.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Current returns the open surface, if any.
func (c *Controller) Current() (surface.Surface, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.current != nil
}

// WaitClosed blocks until no panel is open.
func (c *Controller) WaitClosed(ctx context.Context) error {
	c.mu.Lock()
	ch := c.closed
	open := c.current != nil
	c.mu.Unlock()
	if !open {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Toggle closes the panel if it is open and opens a new one otherwise.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	if cur != nil {
		logger.Info("closing panel", "surface", cur.ID())
		c.clear(cur.ID())
		cur.Dispose()
		return nil
	}
	return c.open(ctx)
}

func (c *Controller) open(ctx context.Context) error {
	s, err := c.cfg.Host.CreateSurface(ctx, surface.Options{
		ViewType:                ViewType,
		Title:                   c.cfg.Presentation.Title,
		Column:                  surface.ColumnBeside,
		RetainContextWhenHidden: true,
	})
	if err != nil {
		return fmt.Errorf("create panel: %w", err)
	}
	s.SetPresentation(c.cfg.Presentation)
	c.cfg.Factory.New(s)

	id := s.ID()
	c.mu.Lock()
	c.current = s
	c.closed = make(chan struct{})
	c.mu.Unlock()

	s.OnDidDispose(func() {
		c.cfg.Bus.Publish(bus.MustEvent(bus.EventPanelDisposed, "panel", bus.SurfaceData{SurfaceID: id}))
	})
	c.cfg.Clock.AfterFunc(c.cfg.SettleDelay, func() {
		c.cfg.Bus.Publish(bus.MustEvent(bus.EventPanelSettled, "panel", bus.SurfaceData{SurfaceID: id}))
	})

	logger.Info("panel opened", "surface", id)
	return nil
}

// clear forgets the panel if id is still the current one.
func (c *Controller) clear(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.ID() != id {
		return false
	}
	c.current = nil
	close(c.closed)
	return true
}

func (c *Controller) handleDisposed(_ context.Context, ev *bus.Event) error {
	var data bus.SurfaceData
	if err := ev.ParseData(&data); err != nil {
		return err
	}
	if c.clear(data.SurfaceID) {
		logger.Info("panel closed by user", "surface", data.SurfaceID)
	}
	return nil
}

func (c *Controller) handleSettled(ctx context.Context, ev *bus.Event) error {
	var data bus.SurfaceData
	if err := ev.ParseData(&data); err != nil {
		return err
	}
	c.mu.Lock()
	still := c.current != nil && c.current.ID() == data.SurfaceID
	c.mu.Unlock()
	if !still || c.cfg.Lock == nil {
		return nil
	}
	if err := c.cfg.Lock(ctx); err != nil {
		logger.Warn("lock editor group failed", "surface", data.SurfaceID, "err", err)
	}
	return nil
}
