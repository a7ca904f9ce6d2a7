package router

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linanwx/companion/bus"
	"github.com/linanwx/companion/logger"
)

// DefaultAddr is where the callback server listens unless configured.
const DefaultAddr = "127.0.0.1:52987"

// Server is the local HTTP endpoint callback redirects land on. Every GET is
// turned into a uri.received request on the bus. Other handlers, such as the
// websocket surface host, can be mounted next to it.
type Server struct {
	addr    string
	bus     *bus.Bus
	mux     *http.ServeMux
	server  *http.Server
	running atomic.Bool

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a callback server for addr. Port 0 picks a free port.
func NewServer(addr string, b *bus.Bus) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{addr: addr, bus: b, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleCallback)
	return s
}

// Handle mounts handler on pattern. Call before Start.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Handler returns the server's routing table.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens and serves in the background until ctx is done or Stop is
// called.
func (s *Server) Start(ctx context.Context) error {
	if alreadyRunning := s.running.Swap(true); alreadyRunning {
		return nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	logger.Info("callback server listening", "addr", listener.Addr().String())
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("callback server error", "err", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the base http URL of the server.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if wasRunning := s.running.Swap(false); !wasRunning {
		return nil
	}
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("callback server shutdown failed", "err", err)
		return s.server.Close()
	}
	return nil
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger.Debug("callback received", "path", r.URL.Path)

	ev, err := bus.NewEvent(bus.EventURIReceived, "callback", bus.URIData{URI: r.URL.RequestURI()})
	if err == nil {
		err = s.bus.Request(r.Context(), ev)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		logger.Warn("callback failed", "path", r.URL.Path, "err", err)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprintf(w, pageTemplate, "Authorization failed",
			`<p class="error">`+html.EscapeString(err.Error())+`</p><p>You can close this window.</p>`)
		return
	}
	_, _ = fmt.Fprintf(w, pageTemplate, "Done", "<p>You can close this window and return to your editor.</p>")
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Companion</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; display: flex; justify-content: center; padding: 48px; color: #1f2937; }
.error { font-family: Menlo, monospace; color: #dc2626; }
</style>
</head>
<body><div><h1>%s</h1>%s</div></body>
</html>`
