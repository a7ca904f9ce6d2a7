package instance

import (
	"context"
	"errors"
	"sync"

	"github.com/linanwx/companion/bus"
	"github.com/linanwx/companion/logger"
	"github.com/linanwx/companion/message"
	"github.com/linanwx/companion/surface"
)

type entry struct {
	inst    *Instance
	visible bool
}

// Registry tracks live instances in creation order.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers inst as visible.
func (r *Registry) Add(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &entry{inst: inst, visible: true})
}

// Remove drops the instance bound to surfaceID and reports whether one was
// registered.
func (r *Registry) Remove(surfaceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.inst.surface.ID() == surfaceID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// SetVisible updates the visibility of the instance bound to surfaceID.
func (r *Registry) SetVisible(surfaceID string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.inst.surface.ID() == surfaceID {
			e.visible = visible
			return
		}
	}
}

// Visible returns the most recently created visible instance.
func (r *Registry) Visible() (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].visible {
			return r.entries[i].inst, true
		}
	}
	return nil, false
}

// BySurface returns the instance bound to surfaceID.
func (r *Registry) BySurface(surfaceID string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.inst.surface.ID() == surfaceID {
			return e.inst, true
		}
	}
	return nil, false
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// PostAction sends an action notification to the visible instance. With no
// visible instance, or one whose surface is already gone, it does nothing.
func PostAction(ctx context.Context, r *Registry, action message.Action) error {
	inst, ok := r.Visible()
	if !ok {
		logger.Debug("no visible panel, action dropped", "action", action)
		return nil
	}
	err := inst.PostMessage(ctx, message.ActionNotification{Action: action})
	if errors.Is(err, surface.ErrDisposed) {
		logger.Debug("panel disposed, action dropped", "action", action, "surface", inst.Surface().ID())
		return nil
	}
	return err
}

// Factory creates instances for new surfaces and keeps the registry in step
// with their lifetime.
type Factory struct {
	bus       *bus.Bus
	registry  *Registry
	assistant Assistant
}

// NewFactory creates a factory and subscribes the registry to surface events
// on b.
func NewFactory(b *bus.Bus, r *Registry, a Assistant) *Factory {
	f := &Factory{bus: b, registry: r, assistant: a}
	b.Subscribe(bus.EventSurfaceMessage, f.handleSurfaceMessage)
	b.Subscribe(bus.EventSurfaceDisposed, f.handleSurfaceDisposed)
	return f
}

// New creates an instance bound to s and registers it as visible. Frames
// from the view and the surface's disposal are routed through the bus.
func (f *Factory) New(s surface.Surface) *Instance {
	inst := New(s, f.assistant)
	f.registry.Add(inst)

	id := s.ID()
	s.OnDidReceiveMessage(func(frame []byte) {
		f.bus.Publish(bus.MustEvent(bus.EventSurfaceMessage, "surface", bus.SurfaceData{SurfaceID: id, Frame: frame}))
	})
	// The instance goes with its surface, before the disposer returns.
	s.OnDidDispose(func() {
		if f.registry.Remove(id) {
			logger.Debug("instance removed", "surface", id)
		}
		f.bus.Publish(bus.MustEvent(bus.EventSurfaceDisposed, "surface", bus.SurfaceData{SurfaceID: id}))
	})

	logger.Debug("instance created", "instance", inst.ID(), "surface", id)
	return inst
}

func (f *Factory) handleSurfaceMessage(ctx context.Context, ev *bus.Event) error {
	var data bus.SurfaceData
	if err := ev.ParseData(&data); err != nil {
		return err
	}
	inst, ok := f.registry.BySurface(data.SurfaceID)
	if !ok {
		logger.Debug("message from unknown surface dropped", "surface", data.SurfaceID)
		return nil
	}
	return inst.HandleViewMessage(ctx, data.Frame)
}

func (f *Factory) handleSurfaceDisposed(_ context.Context, ev *bus.Event) error {
	var data bus.SurfaceData
	if err := ev.ParseData(&data); err != nil {
		return err
	}
	// Normally already removed by the disposal callback.
	f.registry.Remove(data.SurfaceID)
	return nil
}
