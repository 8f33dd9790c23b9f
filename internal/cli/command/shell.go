package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/websec-go/internal/cli/repl"
)

// ShellCommand runs commands interactively. Global flags given to shell
// apply to every line.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands interactively",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-history", Usage: "do not read or write ~/.websec/history"},
		},
		Action: func(c *cli.Context) error {
			file := repl.DefaultHistoryFile()
			if c.Bool("no-history") {
				file = ""
			}
			history := repl.NewHistory(file)
			if err := history.Load(); err != nil {
				warn(c, "history: %v", err)
			}

			r := repl.New(repl.Config{
				NewApp:  App,
				Args:    inheritedFlags(c),
				In:      c.App.Reader,
				Out:     c.App.Writer,
				ErrOut:  c.App.ErrWriter,
				History: history,
			})
			err := r.Run()
			if serr := history.Save(); serr != nil {
				warn(c, "history: %v", serr)
			}
			return err
		},
	}
}

// inheritedFlags rebuilds the global flags set on the shell invocation.
func inheritedFlags(c *cli.Context) []string {
	var args []string
	for _, name := range []string{"config", "server", "output", "ca-file"} {
		if c.IsSet(name) {
			args = append(args, "--"+name, c.String(name))
		}
	}
	if c.IsSet("wide") {
		args = append(args, "--wide")
	}
	return args
}
