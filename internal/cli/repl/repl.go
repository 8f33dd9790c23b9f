package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"
)

// DefaultPrompt is printed before every line.
const DefaultPrompt = "websec> "

// Config configures a REPL.
type Config struct {
	// NewApp builds the application that runs each line.
	NewApp func() *cli.App
	// Args are prepended to every line (inherited global flags).
	Args []string

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	Prompt  string
	History *History
}

// REPL is a read-eval-print loop over a cli.App.
type REPL struct {
	cfg       Config
	in        *bufio.Reader
	completer *Completer
	history   *History
}

// New creates a REPL. A nil History keeps history in memory only.
func New(cfg Config) *REPL {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.ErrOut == nil {
		cfg.ErrOut = cfg.Out
	}
	h := cfg.History
	if h == nil {
		h = NewHistory("")
	}
	return &REPL{
		cfg:       cfg,
		in:        bufio.NewReader(cfg.In),
		completer: NewCompleter(cfg.NewApp()),
		history:   h,
	}
}

// Run reads lines until exit, quit or end of input.
func (r *REPL) Run() error {
	for {
		fmt.Fprint(r.cfg.Out, r.cfg.Prompt)

		line, err := r.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line != "" {
			r.history.Add(line)
			if line == "exit" || line == "quit" {
				return nil
			}
			if err := r.execute(line); err != nil {
				fmt.Fprintf(r.cfg.ErrOut, "error: %v\n", err)
			}
		}
		if eof {
			fmt.Fprintln(r.cfg.Out)
			return nil
		}
	}
}

func (r *REPL) execute(line string) error {
	args, err := Split(line)
	if err != nil {
		return err
	}
	switch args[0] {
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.cfg.Out, "%4d  %s\n", i+1, e)
		}
		return nil
	case "shell":
		return errors.New("already in a shell")
	}
	if !r.completer.Known(args[0]) {
		msg := fmt.Sprintf("unknown command %q", args[0])
		if s := r.completer.Complete(args[0]); len(s) > 0 {
			msg += ", did you mean: " + strings.Join(s, ", ")
		}
		return errors.New(msg)
	}

	app := r.cfg.NewApp()
	app.Reader = r.in
	app.Writer = r.cfg.Out
	app.ErrWriter = r.cfg.ErrOut
	app.ExitErrHandler = func(*cli.Context, error) {}
	argv := append([]string{app.Name}, r.cfg.Args...)
	return app.Run(append(argv, args...))
}

// Split breaks a line into words. Quotes group words, single quotes keep
// their text literally and a backslash escapes the next character.
func Split(line string) ([]string, error) {
	var (
		words  []string
		cur    strings.Builder
		inWord bool
		quote  rune
		escape bool
	)
	for _, c := range line {
		switch {
		case escape:
			cur.WriteRune(c)
			escape = false
		case quote == '\'':
			if c == '\'' {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '\\':
			escape, inWord = true, true
		case quote == '"':
			if c == '"' {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '\'' || c == '"':
			quote, inWord = c, true
		case c == ' ' || c == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if escape {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		words = append(words, cur.String())
	}
	if len(words) == 0 {
		return nil, errors.New("empty command")
	}
	return words, nil
}
