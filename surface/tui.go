package surface

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linanwx/companion/logger"
)

const logLineBufferSize = 256

// TUIConfig configures a TUIHost. The host knows nothing about the view
// model itself: NewModel builds it and Inbound/LogLine wrap frames and log
// lines into messages the model understands.
type TUIConfig struct {
	// NewModel builds the view for a new surface. post sends a frame from
	// the view back to the editor side.
	NewModel func(post func(frame []byte)) tea.Model

	// Inbound wraps a frame posted by the editor side.
	Inbound func(frame []byte) tea.Msg

	// LogLine wraps a log line when InterceptLogs is set.
	LogLine func(line string) tea.Msg

	// InterceptLogs routes logger output into the surface while it is open.
	InterceptLogs bool

	ProgramOptions []tea.ProgramOption
}

// TUIHost shows surfaces as a bubbletea program on the terminal. A terminal
// holds one program at a time, so only one surface can be open.
type TUIHost struct {
	cfg TUIConfig

	mu     sync.Mutex
	active *TUISurface
	locked bool
}

// NewTUIHost creates a terminal host.
func NewTUIHost(cfg TUIConfig) *TUIHost {
	return &TUIHost{cfg: cfg}
}

// TUISurface is a surface backed by a bubbletea program.
type TUISurface struct {
	*lifecycle
	host    *TUIHost
	program *tea.Program
	out     *Outbox
	done    chan struct{}
}

// CreateSurface starts the view program. It returns once the program has
// been launched, not once it has drawn.
func (h *TUIHost) CreateSurface(_ context.Context, opts Options) (Surface, error) {
	if h.cfg.NewModel == nil || h.cfg.Inbound == nil {
		return nil, fmt.Errorf("tui host: view constructor not configured")
	}

	h.mu.Lock()
	if h.active != nil {
		h.mu.Unlock()
		return nil, ErrHostBusy
	}
	s := &TUISurface{
		lifecycle: newLifecycle(opts),
		host:      h,
		done:      make(chan struct{}),
	}
	h.active = s
	h.locked = false
	h.mu.Unlock()

	s.program = tea.NewProgram(h.cfg.NewModel(s.receive), h.cfg.ProgramOptions...)
	s.out = NewOutbox(func(frame []byte) error {
		s.program.Send(h.cfg.Inbound(frame))
		return nil
	})

	var lw *logWriter
	if h.cfg.InterceptLogs && h.cfg.LogLine != nil {
		lw = newLogWriter(s.program, h.cfg.LogLine)
		logger.Intercept(lw)
	}

	go func() {
		if _, err := s.program.Run(); err != nil {
			logger.Error("surface program exited", "surface", s.ID(), "err", err)
		}
		if lw != nil {
			logger.Restore()
			lw.close()
		}
		s.out.Close()
		h.release(s)
		s.markDisposed()
		close(s.done)
	}()

	logger.Info("surface opened", "surface", s.ID(), "viewType", opts.ViewType, "host", "tui")
	return s, nil
}

// LockEditorGroup pins the open surface. The terminal has a single group, so
// this only records the request.
func (h *TUIHost) LockEditorGroup(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return nil
	}
	h.locked = true
	logger.Debug("editor group locked", "surface", h.active.ID())
	return nil
}

// Locked reports whether the open surface has been locked.
func (h *TUIHost) Locked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.locked
}

func (h *TUIHost) release(s *TUISurface) {
	h.mu.Lock()
	if h.active == s {
		h.active = nil
		h.locked = false
	}
	h.mu.Unlock()
}

// PostMessage queues a frame for the view.
func (s *TUISurface) PostMessage(_ context.Context, frame []byte) error {
	if s.isDisposed() {
		return ErrDisposed
	}
	s.out.Push(frame)
	return nil
}

// Dispose quits the program and returns once it has exited, the terminal
// is free and the disposal callbacks have run. It must not be called from
// the program's own update loop.
func (s *TUISurface) Dispose() {
	if !s.isDisposed() {
		s.program.Quit()
	}
	<-s.done
}

// Done is closed when the program has exited.
func (s *TUISurface) Done() <-chan struct{} {
	return s.done
}

// logWriter implements io.Writer and sends each line to the program without
// blocking the goroutine that logged it.
type logWriter struct {
	lines chan string
	stop  chan struct{}
	once  sync.Once
}

func newLogWriter(program *tea.Program, wrap func(string) tea.Msg) *logWriter {
	w := &logWriter{
		lines: make(chan string, logLineBufferSize),
		stop:  make(chan struct{}),
	}
	go func() {
		for {
			select {
			case line := <-w.lines:
				program.Send(wrap(line))
			case <-w.stop:
				return
			}
		}
	}()
	return w
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		select {
		case w.lines <- string(line):
		default:
		}
	}
	return len(p), nil
}

func (w *logWriter) close() {
	w.once.Do(func() { close(w.stop) })
}
