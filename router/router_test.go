package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linanwx/companion/bus"
	"github.com/linanwx/companion/instance"
	"github.com/linanwx/companion/message"
	"github.com/linanwx/companion/surface"
)

type nullSurface struct{}

func (nullSurface) ID() string                                { return "s1" }
func (nullSurface) PostMessage(context.Context, []byte) error { return nil }
func (nullSurface) OnDidReceiveMessage(func([]byte))          {}
func (nullSurface) OnDidDispose(func())                       {}
func (nullSurface) SetPresentation(surface.Presentation)      {}
func (nullSurface) Dispose()                                  {}

type codeRecorder struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (c *codeRecorder) HandleViewMessage(context.Context, *instance.Instance, message.Message) error {
	return nil
}

func (c *codeRecorder) HandleOpenRouterCallback(_ context.Context, _ *instance.Instance, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = append(c.codes, code)
	return c.err
}

func visible(rec *codeRecorder) *instance.Registry {
	r := instance.NewRegistry()
	r.Add(instance.New(nullSurface{}, rec))
	return r
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := ParseURI(raw)
	require.NoError(t, err)
	return u
}

func TestHandleURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		uri  string
		want []string
	}{
		{"openrouter code", "companion://auth/openrouter?code=abc", []string{"abc"}},
		{"plus is kept literal", "companion://auth/openrouter?code=a+b", []string{"a+b"}},
		{"percent escapes decode", "/openrouter?code=a%2Fb", []string{"a/b"}},
		{"missing code", "/openrouter?state=x", nil},
		{"empty code", "/openrouter?code=", nil},
		{"unknown path", "/other?code=abc", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &codeRecorder{}
			r := New(visible(rec))
			require.NoError(t, r.HandleURI(context.Background(), mustURL(t, tt.uri)))
			assert.Equal(t, tt.want, rec.codes)
		})
	}
}

func TestHandleURIWithoutVisiblePanel(t *testing.T) {
	t.Parallel()

	r := New(instance.NewRegistry())
	require.NoError(t, r.HandleURI(context.Background(), mustURL(t, "/openrouter?code=abc")))
}

func TestHandleURIMalformedQuery(t *testing.T) {
	t.Parallel()

	rec := &codeRecorder{}
	r := New(visible(rec))
	require.Error(t, r.HandleURI(context.Background(), mustURL(t, "/openrouter?code=%zz")))
	assert.Empty(t, rec.codes)
}

func TestHandleURIDuplicatesReinvoke(t *testing.T) {
	t.Parallel()

	rec := &codeRecorder{}
	r := New(visible(rec))
	u := mustURL(t, "/openrouter?code=abc")
	require.NoError(t, r.HandleURI(context.Background(), u))
	require.NoError(t, r.HandleURI(context.Background(), u))
	assert.Equal(t, []string{"abc", "abc"}, rec.codes)
}

func TestHandleURIPropagatesCallbackError(t *testing.T) {
	t.Parallel()

	boom := errors.New("exchange failed")
	r := New(visible(&codeRecorder{err: boom}))
	assert.ErrorIs(t, r.HandleURI(context.Background(), mustURL(t, "/openrouter?code=abc")), boom)
}

func TestParseURIRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := ParseURI("  ")
	require.Error(t, err)
}

func TestServerRoutesCallbacksThroughBus(t *testing.T) {
	t.Parallel()

	b := bus.NewBus(16)
	defer b.Close()
	rec := &codeRecorder{}
	New(visible(rec)).Subscribe(b)

	srv := httptest.NewServer(NewServer("", b).Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/openrouter?code=x+y")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "close this window")
	assert.Equal(t, []string{"x+y"}, rec.codes)

	resp, err = srv.Client().Get(srv.URL + "/openrouter?code=%zz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = srv.Client().Post(srv.URL+"/openrouter", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServerStartStop(t *testing.T) {
	t.Parallel()

	b := bus.NewBus(16)
	defer b.Close()
	s := NewServer("127.0.0.1:0", b)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NotEqual(t, "127.0.0.1:0", s.Addr())

	resp, err := http.Get(s.URL() + "/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
