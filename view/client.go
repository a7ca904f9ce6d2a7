package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/websocket"

	"github.com/linanwx/companion/surface"
)

const (
	clientReadLimit    = 1 << 20
	clientWriteTimeout = 5 * time.Second
)

// RunClient shows the view for a surface served by a websocket host at url.
// It returns when the user quits, the editor side closes the panel, or ctx
// is done.
func RunClient(ctx context.Context, url string, cfg Config, opts ...tea.ProgramOption) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(clientReadLimit)

	out := surface.NewOutbox(func(frame []byte) error {
		wctx, cancel := context.WithTimeout(ctx, clientWriteTimeout)
		defer cancel()
		return conn.Write(wctx, websocket.MessageText, frame)
	})
	defer out.Close()

	cfg.Post = func(frame []byte) { out.Push(frame) }
	opts = append(opts, tea.WithContext(ctx))
	program := tea.NewProgram(NewApp(cfg), opts...)

	go func() {
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				// The editor side closed the panel.
				program.Quit()
				return
			}
			if typ == websocket.MessageText {
				program.Send(InboundMsg{Frame: data})
			}
		}
	}()

	_, err = program.Run()
	conn.Close(websocket.StatusNormalClosure, "view closed")
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
