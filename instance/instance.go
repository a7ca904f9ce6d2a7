// Package instance binds surfaces to the assistant that drives them and
// tracks which of those bindings is currently visible.
package instance

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/linanwx/companion/message"
	"github.com/linanwx/companion/surface"
)

// Assistant is the component that owns conversation state and reacts to
// what the view sends. It lives outside this package; Instance only
// forwards to it.
type Assistant interface {
	HandleViewMessage(ctx context.Context, inst *Instance, msg message.Message) error
	HandleOpenRouterCallback(ctx context.Context, inst *Instance, code string) error
}

// Instance is one (surface, assistant) binding.
type Instance struct {
	id        string
	surface   surface.Surface
	assistant Assistant
}

// New binds s to a.
func New(s surface.Surface, a Assistant) *Instance {
	return &Instance{
		id:        uuid.NewString(),
		surface:   s,
		assistant: a,
	}
}

func (i *Instance) ID() string               { return i.id }
func (i *Instance) Surface() surface.Surface { return i.surface }

// PostMessage encodes m and delivers it into the bound surface.
func (i *Instance) PostMessage(ctx context.Context, m message.Message) error {
	frame, err := message.Encode(m)
	if err != nil {
		return err
	}
	if err := i.surface.PostMessage(ctx, frame); err != nil {
		return fmt.Errorf("post %s to surface %s: %w", m.Type(), i.surface.ID(), err)
	}
	return nil
}

// HandleOpenRouterCallback completes an OpenRouter authorization.
func (i *Instance) HandleOpenRouterCallback(ctx context.Context, code string) error {
	return i.assistant.HandleOpenRouterCallback(ctx, i, code)
}

// HandleViewMessage decodes a frame sent by the view and hands it to the
// assistant.
func (i *Instance) HandleViewMessage(ctx context.Context, frame []byte) error {
	msg, err := message.Decode(frame)
	if err != nil {
		return fmt.Errorf("view message on surface %s: %w", i.surface.ID(), err)
	}
	return i.assistant.HandleViewMessage(ctx, i, msg)
}
