package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/linanwx/companion/bus"
	"github.com/linanwx/companion/commands"
	"github.com/linanwx/companion/logger"
)

const consolePrompt = "companion> "

// consoleCommands maps console words to editor commands.
var consoleCommands = map[string]string{
	"toggle":   commands.TogglePanel,
	"settings": commands.SettingsButtonClicked,
	"history":  commands.HistoryButtonClicked,
	"chat":     commands.ChatButtonClicked,
	"lock":     commands.LockEditorGroup,
}

// console drives a running extension from line input when the panel is not
// on this terminal.
type console struct {
	ext    *Extension
	in     io.Reader
	out    io.Writer
	prompt string
}

func newConsole(ext *Extension, in io.Reader, out io.Writer) *console {
	return &console{ext: ext, in: in, out: out, prompt: consolePrompt}
}

// run reads commands until EOF, quit or ctx is done.
func (c *console) run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(c.out, c.prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" || line == "/exit" || line == "/quit" {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}
		if err := c.exec(ctx, line); err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	word, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	if name, ok := consoleCommands[word]; ok {
		return c.ext.Commands.Execute(ctx, name)
	}

	switch word {
	case "help":
		c.help()
	case "status":
		if url, ok := panelURL(c.ext); ok {
			fmt.Fprintln(c.out, "panel open:", url)
		} else if c.ext.Panel.IsOpen() {
			fmt.Fprintln(c.out, "panel open")
		} else {
			fmt.Fprintln(c.out, "panel closed")
		}
	case "auth":
		fmt.Fprintln(c.out, c.ext.Auth.AuthURL(c.ext.CallbackURL()))
	case "uri":
		if arg == "" {
			return fmt.Errorf("usage: uri <callback-uri>")
		}
		return c.ext.Bus.Request(ctx, bus.MustEvent(bus.EventURIReceived, "console", bus.URIData{URI: arg}))
	case "diff":
		return c.diff(ctx, arg)
	default:
		logger.Debug("console command unknown", "line", line)
		return fmt.Errorf("unknown command %q, try 'help'", word)
	}
	return nil
}

// diff renders "diff <name> <original> | <modified>" through the content
// registry.
func (c *console) diff(ctx context.Context, arg string) error {
	name, rest, _ := strings.Cut(arg, " ")
	original, modified, ok := strings.Cut(rest, "|")
	if name == "" || !ok {
		return fmt.Errorf("usage: diff <name> <original> | <modified>")
	}
	out, err := renderDiff(ctx, c.ext, name, strings.TrimSpace(original)+"\n", strings.TrimSpace(modified)+"\n")
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, out)
	return nil
}

func (c *console) help() {
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  toggle                 open or close the panel")
	fmt.Fprintln(c.out, "  settings|history|chat  navigate the visible panel")
	fmt.Fprintln(c.out, "  lock                   lock the panel's editor group")
	fmt.Fprintln(c.out, "  status                 show where the panel is served")
	fmt.Fprintln(c.out, "  auth                   print the OpenRouter sign-in URL")
	fmt.Fprintln(c.out, "  uri <uri>              deliver a callback URI")
	fmt.Fprintln(c.out, "  diff <name> <a> | <b>  show a diff view")
	fmt.Fprintln(c.out, "  quit                   stop companion")
}
