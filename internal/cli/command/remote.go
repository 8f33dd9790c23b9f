package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/websec-go/internal/cli/connection"
	"github.com/yndnr/websec-go/internal/infra/tlsroots"
)

// newClient builds a server client from the CLI settings.
func newClient(c *cli.Context) (*connection.Client, error) {
	cfg := settings(c)
	opts := []connection.Option{connection.WithTimeout(cfg.Timeout)}
	if cfg.CAFile != "" {
		tlsCfg, err := tlsroots.ClientConfig(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, connection.WithTLSConfig(tlsCfg))
	}
	return connection.NewClient(cfg.Server, opts...)
}

// HealthCommand queries GET /health.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check a running server",
		Action: func(c *cli.Context) error {
			client, err := newClient(c)
			if err != nil {
				return err
			}
			health, err := client.Health(c.Context)
			if err != nil {
				return err
			}
			if err := render(c, health); err != nil {
				return err
			}
			if health.Status != "healthy" {
				return cli.Exit("server is unhealthy", 1)
			}
			return nil
		},
	}
}

var usernameFlag = &cli.StringFlag{
	Name:     "username",
	Aliases:  []string{"u"},
	Required: true,
	Usage:    "account name",
}

// SignupCommand registers an account. The password is read from standard
// input.
func SignupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Register an account on a running server",
		Flags: []cli.Flag{usernameFlag},
		Action: func(c *cli.Context) error {
			client, err := newClient(c)
			if err != nil {
				return err
			}
			password, err := readSecret(c.App.Reader)
			if err != nil {
				return err
			}
			cred, err := client.Signup(c.Context, c.String("username"), string(password))
			if err != nil {
				return err
			}
			return render(c, cred)
		},
	}
}

// LoginCommand opens a session and shows it. With --check the session is
// read back through GET /session, and --logout ends it afterwards.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in to a running server with a password from standard input",
		Flags: []cli.Flag{
			usernameFlag,
			&cli.BoolFlag{Name: "check", Usage: "read the session back after login"},
			&cli.BoolFlag{Name: "logout", Usage: "end the session before exiting"},
		},
		Action: loginAction,
	}
}

func loginAction(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	password, err := readSecret(c.App.Reader)
	if err != nil {
		return err
	}
	ctx := c.Context

	sess, err := client.Login(ctx, c.String("username"), string(password))
	if err != nil {
		return err
	}
	if c.Bool("check") {
		if sess, err = client.Session(ctx); err != nil {
			return fmt.Errorf("session check: %w", err)
		}
	}
	if err := render(c, sess); err != nil {
		return err
	}
	if c.Bool("logout") {
		if _, err := client.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.App.ErrWriter, "logged out")
	}
	return nil
}
