package surface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/linanwx/companion/logger"
)

const wsWriteTimeout = 5 * time.Second

// WSHost shows each surface in a separate view process connected over a
// websocket. The view dials the URL returned by URL.
type WSHost struct {
	baseURL string

	mu       sync.Mutex
	surfaces map[string]*WSSurface
	locked   map[string]bool
}

// NewWSHost creates a websocket host. baseURL is the externally reachable
// address of the HTTP server Handler is mounted on, e.g.
// "ws://127.0.0.1:52987".
func NewWSHost(baseURL string) *WSHost {
	return &WSHost{
		baseURL:  strings.TrimRight(baseURL, "/"),
		surfaces: make(map[string]*WSSurface),
		locked:   make(map[string]bool),
	}
}

// SetBaseURL updates the advertised address, e.g. once the listener has
// picked a port.
func (h *WSHost) SetBaseURL(baseURL string) {
	h.mu.Lock()
	h.baseURL = strings.TrimRight(baseURL, "/")
	h.mu.Unlock()
}

// URL returns the address a view should dial for surface id.
func (h *WSHost) URL(id string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.baseURL + "/surface/" + id
}

// WSSurface is a surface backed by one websocket session.
type WSSurface struct {
	*lifecycle
	host *WSHost

	connMu sync.Mutex
	conn   *websocket.Conn
	out    *Outbox
}

// CreateSurface registers a surface and waits for a view to connect to it.
// Frames posted before the view connects are dropped.
func (h *WSHost) CreateSurface(_ context.Context, opts Options) (Surface, error) {
	s := &WSSurface{
		lifecycle: newLifecycle(opts),
		host:      h,
	}

	h.mu.Lock()
	h.surfaces[s.ID()] = s
	h.mu.Unlock()

	logger.Info("surface waiting for view", "surface", s.ID(), "viewType", opts.ViewType, "url", h.URL(s.ID()))
	return s, nil
}

// LockEditorGroup marks every open surface as locked.
func (h *WSHost) LockEditorGroup(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.surfaces {
		h.locked[id] = true
	}
	return nil
}

// Locked reports whether surface id has been locked.
func (h *WSHost) Locked(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.locked[id]
}

// Handler returns the HTTP handler serving view connections under
// /surface/{id}.
func (h *WSHost) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /surface/{id}", h.serveSurface)
	return mux
}

func (h *WSHost) serveSurface(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	h.mu.Lock()
	s, ok := h.surfaces[id]
	h.mu.Unlock()
	if !ok {
		http.Error(w, "unknown surface", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("view connection rejected", "surface", id, "err", err)
		return
	}
	if err := s.attach(conn); err != nil {
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	logger.Info("view connected", "surface", id)
	s.readLoop(r.Context(), conn)
	s.detach()
}

func (h *WSHost) remove(id string) {
	h.mu.Lock()
	delete(h.surfaces, id)
	delete(h.locked, id)
	h.mu.Unlock()
}

func (s *WSSurface) attach(conn *websocket.Conn) error {
	if s.isDisposed() {
		return ErrDisposed
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		return errors.New("surface already has a view")
	}
	s.conn = conn
	s.out = NewOutbox(func(frame []byte) error {
		ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
		defer cancel()
		return conn.Write(ctx, websocket.MessageText, frame)
	})
	return nil
}

func (s *WSSurface) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != -1 {
				logger.Debug("view connection closed", "surface", s.ID(), "status", status)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		s.receive(data)
	}
}

// detach runs when the view goes away; the surface is gone with it.
func (s *WSSurface) detach() {
	s.connMu.Lock()
	if s.out != nil {
		s.out.Close()
	}
	s.conn = nil
	s.connMu.Unlock()

	s.host.remove(s.ID())
	s.markDisposed()
}

// PostMessage queues a frame for the connected view.
func (s *WSSurface) PostMessage(_ context.Context, frame []byte) error {
	if s.isDisposed() {
		return ErrDisposed
	}

	s.connMu.Lock()
	out := s.out
	s.connMu.Unlock()
	if out == nil {
		logger.Debug("no view connected, frame dropped", "surface", s.ID())
		return nil
	}
	out.Push(frame)
	return nil
}

// Dispose drops the surface at once and closes the view connection, if
// any, in the background.
func (s *WSSurface) Dispose() {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()

	s.host.remove(s.ID())
	s.markDisposed()
	if conn == nil {
		return
	}
	go func() {
		if err := conn.Close(websocket.StatusNormalClosure, "panel closed"); err != nil {
			logger.Debug("close view connection", "surface", s.ID(), "err", fmt.Errorf("close: %w", err))
		}
	}()
}
