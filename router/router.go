// Package router dispatches callback URIs, such as the redirect at the end
// of an OpenRouter authorization, to the visible panel.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/linanwx/companion/bus"
	"github.com/linanwx/companion/instance"
	"github.com/linanwx/companion/logger"
)

// PathOpenRouter receives the OpenRouter authorization code.
const PathOpenRouter = "/openrouter"

// Instances finds the instance callbacks are delivered to.
type Instances interface {
	Visible() (*instance.Instance, bool)
}

// Router is stateless: the same URI delivered twice is handled twice.
type Router struct {
	instances Instances
}

// New creates a router delivering to the visible instance of instances.
func New(instances Instances) *Router {
	return &Router{instances: instances}
}

// HandleURI dispatches u by path. A malformed query is an error; a URI that
// arrives while no panel is visible, or whose path or parameters are not
// recognized, is dropped.
func (r *Router) HandleURI(ctx context.Context, u *url.URL) error {
	// A literal "+" in a code is data, not an encoded space.
	query, err := url.ParseQuery(strings.ReplaceAll(u.RawQuery, "+", "%2B"))
	if err != nil {
		return fmt.Errorf("parse callback query: %w", err)
	}

	inst, ok := r.instances.Visible()
	if !ok {
		logger.Debug("no visible panel, callback dropped", "path", u.Path)
		return nil
	}

	switch u.Path {
	case PathOpenRouter:
		code := query.Get("code")
		if code == "" {
			logger.Debug("openrouter callback without code")
			return nil
		}
		return inst.HandleOpenRouterCallback(ctx, code)
	default:
		logger.Debug("callback path not handled", "path", u.Path)
		return nil
	}
}

// Subscribe handles uri.received events on b.
func (r *Router) Subscribe(b *bus.Bus) {
	b.Subscribe(bus.EventURIReceived, func(ctx context.Context, ev *bus.Event) error {
		var data bus.URIData
		if err := ev.ParseData(&data); err != nil {
			return err
		}
		u, err := ParseURI(data.URI)
		if err != nil {
			return err
		}
		return r.HandleURI(ctx, u)
	})
}

// ParseURI parses a callback URI. Both full URIs such as
// "companion://auth/openrouter?code=x" and bare request targets such
// as "/openrouter?code=x" are accepted.
func ParseURI(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty callback uri")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse callback uri: %w", err)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}
