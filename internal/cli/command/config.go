package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	serverconfig "github.com/yndnr/websec-go/internal/server/config"
)

// ConfigCommand inspects configuration.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Check a websec-server configuration file",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
			{
				Name:      "show",
				Usage:     "Show the effective websec-server configuration with secrets masked",
				ArgsUsage: "[FILE]",
				Action:    configShow,
			},
			{
				Name:   "cli",
				Usage:  "Show the effective CLI settings",
				Action: func(c *cli.Context) error { return render(c, settings(c)) },
			},
		},
	}
}

func configValidate(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: websec-cli config validate FILE", 2)
	}
	if _, _, err := serverconfig.Load(c.Args().First()); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(c.App.Writer, "%s: ok\n", c.Args().First())
	return nil
}

func configShow(c *cli.Context) error {
	cfg, _, err := serverconfig.Load(c.Args().First())
	if err != nil {
		return err
	}
	return render(c, serverconfig.Sanitize(cfg))
}
