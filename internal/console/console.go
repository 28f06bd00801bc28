// Package console runs the conversation as a local terminal REPL.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ashureev/careerbot/internal/dispatch"
	"github.com/ashureev/careerbot/internal/domain"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// UserID is the dispatcher user id of the local console user.
const UserID = "console:local"

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	replyStyle  = lipgloss.NewStyle().
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	// Telegram-style *bold* becomes CommonMark **bold** for glamour.
	singleStar = regexp.MustCompile(`\*([^*\n]+)\*`)
)

// REPL reads lines from in and writes replies to out.
type REPL struct {
	conv     dispatch.Conversation
	in       io.Reader
	out      io.Writer
	plain    bool
	renderer *glamour.TermRenderer
	logger   *slog.Logger
}

// New creates a REPL. plain disables styling and markdown rendering.
func New(conv dispatch.Conversation, in io.Reader, out io.Writer, plain bool, logger *slog.Logger) (*REPL, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &REPL{conv: conv, in: in, out: out, plain: plain, logger: logger}
	if !plain {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return nil, fmt.Errorf("create markdown renderer: %w", err)
		}
		r.renderer = renderer
	}
	return r, nil
}

// Run shows the menu and processes lines until EOF, /quit or ctx is done.
// "/start" resets the session.
func (r *REPL) Run(ctx context.Context) error {
	replies, err := r.conv.Start(ctx, UserID)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	r.print(replies)
	r.note("Type /start to return to the menu, /quit to leave.")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		r.prompt()
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-scanErr:
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
			default:
			}
			return nil
		}

		text := strings.TrimSpace(line)
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/start":
			replies, err = r.conv.Start(ctx, UserID)
		default:
			replies, err = r.conv.Handle(ctx, UserID, text)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("Console message failed", "user_id", UserID, "error", err)
			r.note("Something went wrong, please try again.")
			continue
		}
		r.print(replies)
	}
}

func (r *REPL) prompt() {
	if r.plain {
		fmt.Fprint(r.out, "> ")
		return
	}
	fmt.Fprint(r.out, promptStyle.Render("you ›")+" ")
}

func (r *REPL) note(text string) {
	if r.plain {
		fmt.Fprintln(r.out, text)
		return
	}
	fmt.Fprintln(r.out, mutedStyle.Render(text))
}

func (r *REPL) print(replies []domain.Reply) {
	for _, reply := range replies {
		fmt.Fprintln(r.out, r.format(reply))
	}
}

func (r *REPL) format(reply domain.Reply) string {
	if r.plain {
		return reply.Text
	}
	text := reply.Text
	if reply.Markdown && r.renderer != nil {
		rendered, err := r.renderer.Render(singleStar.ReplaceAllString(text, "**$1**"))
		if err == nil {
			text = strings.TrimRight(rendered, "\n")
		}
	}
	return replyStyle.Render(text)
}
