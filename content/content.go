// Package content serves read-only virtual documents. A provider claims a
// URI scheme and returns the text for any URI in it; the text is never
// stored on disk.
package content

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"unicode/utf8"
)

// DiffViewScheme is the scheme of the left-hand side of diff views. The
// document text travels base64-encoded in the URI query.
const DiffViewScheme = "companion-diff"

var (
	ErrDuplicateScheme = errors.New("scheme already has a content provider")
	ErrNoProvider      = errors.New("no content provider for scheme")
	ErrInvalidContent  = errors.New("invalid document content")
)

// Provider returns the text of a virtual document.
type Provider interface {
	ProvideContent(ctx context.Context, u *url.URL) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, u *url.URL) (string, error)

func (f ProviderFunc) ProvideContent(ctx context.Context, u *url.URL) (string, error) {
	return f(ctx, u)
}

// Registry maps schemes to providers. A scheme's provider is fixed for the
// registry's lifetime.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register claims scheme for p.
func (r *Registry) Register(scheme string, p Provider) error {
	if scheme == "" || p == nil {
		return errors.New("register content provider: scheme and provider are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[scheme]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateScheme, scheme)
	}
	r.providers[scheme] = p
	return nil
}

// Provide resolves u with the provider registered for its scheme.
func (r *Registry) Provide(ctx context.Context, u *url.URL) (string, error) {
	r.mu.RLock()
	p, ok := r.providers[u.Scheme]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoProvider, u.Scheme)
	}
	return p.ProvideContent(ctx, u)
}

// Schemes lists the registered schemes, sorted.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for s := range r.providers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// DiffProvider decodes the document carried in the URI query.
var DiffProvider = ProviderFunc(func(_ context.Context, u *url.URL) (string, error) {
	return DecodeQuery(u.RawQuery)
})

// DecodeQuery decodes a base64 document query. Percent escapes are undone
// first; "+" is part of the base64 alphabet and is kept.
func DecodeQuery(rawQuery string) (string, error) {
	q, err := url.PathUnescape(rawQuery)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	b, err := base64.StdEncoding.DecodeString(q)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: not utf-8", ErrInvalidContent)
	}
	return string(b), nil
}

// DiffURI builds the URI of a virtual document named name holding text. The
// name is escaped so that '?' and '#' stay part of it.
func DiffURI(name, text string) *url.URL {
	return &url.URL{
		Scheme:   DiffViewScheme,
		Opaque:   url.PathEscape(name),
		RawQuery: base64.StdEncoding.EncodeToString([]byte(text)),
	}
}
