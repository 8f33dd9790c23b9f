package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/websec-go/internal/cli/config"
	"github.com/yndnr/websec-go/internal/cli/output"
	"github.com/yndnr/websec-go/internal/infra/buildinfo"
)

const settingsKey = "settings"

// App creates the websec-cli application.
func App() *cli.App {
	return &cli.App{
		Name:    "websec-cli",
		Usage:   "websec token, hashing and server administration tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			TokenCommand(),
			SaltCommand(),
			HashCommand(),
			VerifyCommand(),
			ConfigCommand(),
			StorageCommand(),
			HealthCommand(),
			SignupCommand(),
			LoginCommand(),
			VersionCommand(),
			ShellCommand(),
		},
		Before: loadSettings,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file (default ~/.websec/cli.yaml)",
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "websec-server base URL",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show every column",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "extra CA certificate for https servers",
		},
	}
}

func loadSettings(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), map[string]any{
		"server":  c.String("server"),
		"output":  c.String("output"),
		"ca_file": c.String("ca-file"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("config: %v", err), 2)
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[settingsKey] = cfg
	return nil
}

// settings returns the merged CLI settings.
func settings(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[settingsKey].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(settings(c).Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(c.App.Writer, data)
}

// warn writes a warning to the error stream.
func warn(c *cli.Context, format string, args ...any) {
	fmt.Fprintf(c.App.ErrWriter, "warning: "+format+"\n", args...)
}

// readSecret reads one line from r without its line ending.
func readSecret(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, errors.New("no password on standard input")
	}
	return []byte(line), nil
}
