package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/websec-go/internal/storage"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/pkg/crypto/adaptive"
)

// StorageCommand works on the badger credential store of a stopped server.
func StorageCommand() *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:     "data-dir",
		Aliases:  []string{"d"},
		Required: true,
		Usage:    "badger data directory (the server must be stopped)",
	}
	passFlag := &cli.StringFlag{
		Name:    "passphrase-file",
		Usage:   "file holding the backup passphrase",
		EnvVars: []string{"WEBSEC_BACKUP_PASSPHRASE_FILE"},
	}
	return &cli.Command{
		Name:  "storage",
		Usage: "Credential store maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "backup",
				Usage: "Write a full backup of the credential store",
				Flags: []cli.Flag{
					dirFlag,
					passFlag,
					&cli.StringFlag{Name: "out", Aliases: []string{"f"}, Usage: "backup file (default standard output)"},
				},
				Action: storageBackup,
			},
			{
				Name:      "restore",
				Usage:     "Load a backup into the credential store",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{dirFlag, passFlag},
				Action:    storageRestore,
			},
			{
				Name:   "stats",
				Usage:  "Count stored credentials",
				Flags:  []cli.Flag{dirFlag},
				Action: storageStats,
			},
			{
				Name:   "gc",
				Usage:  "Run value log garbage collection",
				Flags:  []cli.Flag{dirFlag},
				Action: storageGC,
			},
		},
	}
}

func openStore(c *cli.Context) (*storage.BadgerCredentialStore, error) {
	cfg := storage.DefaultBadgerConfig(c.String("data-dir"))
	cfg.GCInterval = 0
	return storage.OpenBadger(cfg, logger.Discard())
}

// passphrase reads the --passphrase-file contents. It returns nil when
// the flag is unset.
func passphrase(c *cli.Context) ([]byte, error) {
	path := c.String("passphrase-file")
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pass := strings.TrimRight(string(data), "\r\n")
	if pass == "" {
		return nil, fmt.Errorf("%s: empty passphrase", path)
	}
	return []byte(pass), nil
}

func storageBackup(c *cli.Context) (err error) {
	pass, err := passphrase(c)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = c.App.Writer
	if path := c.String("out"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	if pass == nil {
		if err := store.Backup(w); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	} else {
		var buf bytes.Buffer
		if err := store.Backup(&buf); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		sealed, err := adaptive.SealWithPassphrase(pass, buf.Bytes())
		if err != nil {
			return err
		}
		if _, err := w.Write(sealed); err != nil {
			return err
		}
	}
	if path := c.String("out"); path != "" {
		fmt.Fprintf(c.App.ErrWriter, "backup written to %s\n", path)
	}
	return nil
}

func storageRestore(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: websec-cli storage restore --data-dir DIR FILE", 2)
	}
	pass, err := passphrase(c)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	if adaptive.IsSealed(data) {
		if pass == nil {
			return cli.Exit("backup is encrypted: --passphrase-file is required", 2)
		}
		data, err = adaptive.OpenWithPassphrase(pass, data)
		if errors.Is(err, adaptive.ErrDecrypt) {
			return cli.Exit("wrong passphrase or corrupted backup", 1)
		}
		if err != nil {
			return err
		}
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Restore(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "restored %s\n", c.Args().First())
	return nil
}

// StatsOutput summarizes the credential store.
type StatsOutput struct {
	DataDir     string `json:"data_dir"`
	Credentials int    `json:"credentials"`
}

func storageStats(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		return err
	}
	return render(c, StatsOutput{DataDir: c.String("data-dir"), Credentials: n})
}

func storageGC(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.GC()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "value log files rewritten: %d\n", n)
	return nil
}
