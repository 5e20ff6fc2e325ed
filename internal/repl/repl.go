// Package repl implements the interactive coding chat loop.
// History lives here, not in the chat service: every turn resends the
// trimmed history along with the new question.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/hpkotak/codebud/internal/provider"
)

const (
	chatTimeout    = 5 * time.Minute
	maxHistoryMsgs = 50
)

// Package-level function variables for testability.
var highlight = quick.Highlight

// Chatter sends one conversation turn. *chat.Service and *apiclient.Client
// both implement it.
type Chatter interface {
	SendMessage(ctx context.Context, text, language string, history []provider.Message) (provider.Result, error)
}

// Options controls the loop's presentation.
type Options struct {
	Language string
	// Color enables ANSI colors and syntax highlighting.
	Color bool
	// Spinner shows progress while waiting for a reply.
	Spinner bool
}

type session struct {
	chat     Chatter
	opts     Options
	out      io.Writer
	history  []provider.Message
	heading  *color.Color
	dim      *color.Color
	errColor *color.Color
}

// Run starts the interactive loop and returns on exit, EOF or input error.
func Run(ctx context.Context, c Chatter, opts Options, in io.Reader, out io.Writer) error {
	s := &session{
		chat:     c,
		opts:     opts,
		out:      out,
		heading:  color.New(color.FgCyan, color.Bold),
		dim:      color.New(color.Faint),
		errColor: color.New(color.FgRed),
	}
	for _, col := range []*color.Color{s.heading, s.dim, s.errColor} {
		if opts.Color {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}

	_, _ = fmt.Fprintf(out, "codebud chat [%s] (type /help for commands, 'exit' to quit)\n\n", s.opts.Language)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		_, _ = fmt.Fprintf(out, "%s> ", s.opts.Language)

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				_, _ = fmt.Fprintf(out, "\nInput error: %v\n", err)
				return err
			}
			_, _ = fmt.Fprintln(out)
			return nil // EOF (Ctrl+D)
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			_, _ = fmt.Fprintln(out, "Bye!")
			return nil
		}
		if strings.HasPrefix(input, "/") {
			s.command(input)
			continue
		}

		s.turn(ctx, input)
		_, _ = fmt.Fprintln(out)
	}
}

func (s *session) command(input string) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/lang":
		if arg == "" {
			_, _ = fmt.Fprintf(s.out, "Language: %s\n", s.opts.Language)
			return
		}
		s.opts.Language = arg
		_, _ = fmt.Fprintf(s.out, "Language set to %s\n", arg)
	case "/reset":
		s.history = nil
		_, _ = fmt.Fprintln(s.out, "History cleared.")
	case "/history":
		_, _ = fmt.Fprintf(s.out, "%d messages in history\n", len(s.history))
	case "/help":
		_, _ = fmt.Fprintln(s.out, "  /lang [name]  show or change the language")
		_, _ = fmt.Fprintln(s.out, "  /reset        forget the conversation")
		_, _ = fmt.Fprintln(s.out, "  /history      show history size")
		_, _ = fmt.Fprintln(s.out, "  exit, quit    leave")
	default:
		_, _ = fmt.Fprintf(s.out, "Unknown command %s. Try /help.\n", name)
	}
}

func (s *session) turn(ctx context.Context, input string) {
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	stop := s.startSpinner()
	res, err := s.chat.SendMessage(ctx, input, s.opts.Language, s.history)
	stop()
	if err != nil {
		_, _ = s.errColor.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	s.history = append(s.history,
		provider.Message{Role: provider.RoleUser, Content: input},
		provider.Message{Role: provider.RoleAssistant, Content: assistantContent(res, s.opts.Language)},
	)
	// Trim history if too long (keep most recent user/assistant pairs).
	if len(s.history) > maxHistoryMsgs {
		s.history = s.history[len(s.history)-maxHistoryMsgs:]
	}

	s.render(res)
}

func (s *session) startSpinner() func() {
	if !s.opts.Spinner {
		return func() {}
	}
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(s.out))
	sp.Suffix = " thinking"
	sp.Start()
	return sp.Stop
}

func (s *session) render(res provider.Result) {
	if res.Explanation != "" {
		_, _ = fmt.Fprintf(s.out, "\n%s\n", res.Explanation)
	}
	if res.Code == "" {
		return
	}

	_, _ = s.heading.Fprintf(s.out, "\n--- %s ---\n", s.opts.Language)
	if s.opts.Color {
		if err := highlight(s.out, res.Code+"\n", strings.ToLower(s.opts.Language), "terminal256", "monokai"); err == nil {
			_, _ = s.dim.Fprintln(s.out, "---")
			return
		}
	}
	_, _ = fmt.Fprintln(s.out, res.Code)
	_, _ = s.dim.Fprintln(s.out, "---")
}

// assistantContent rebuilds a fenced reply so later turns see the code the
// model produced.
func assistantContent(res provider.Result, language string) string {
	if res.Code == "" {
		return res.Explanation
	}
	tag := strings.ToLower(strings.Join(strings.Fields(language), ""))
	return fmt.Sprintf("%s\n```%s\n%s\n```", res.Explanation, tag, res.Code)
}
