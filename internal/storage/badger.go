package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store closed")

const credentialPrefix = "cred/"

// BadgerConfig tunes the Badger credential store.
type BadgerConfig struct {
	// Dir is the data directory. Empty with InMemory set keeps data in RAM.
	Dir string
	// InMemory runs Badger without touching disk (tests).
	InMemory bool
	// GCInterval is the interval between value log GC runs.
	GCInterval time.Duration
	// GCThreshold is the discard ratio that triggers a value log rewrite.
	GCThreshold float64
	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// DefaultBadgerConfig returns the default configuration for dir.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		SyncWrites:  true,
	}
}

// BadgerCredentialStore implements CredentialStore on Badger v3. Values
// are JSON-encoded domain.Credential records under "cred/<username>".
type BadgerCredentialStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	log    logger.Logger
	closed atomic.Bool

	lastGC atomic.Int64 // unix millis

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ CredentialStore = (*BadgerCredentialStore)(nil)

// OpenBadger opens (or creates) a Badger credential store.
func OpenBadger(cfg BadgerConfig, log logger.Logger) (*BadgerCredentialStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, errors.New("badger: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{logger: log.Slog()})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerCredentialStore{
		db:     db,
		cfg:    cfg,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		go s.gcLoop()
	} else {
		close(s.doneCh)
	}

	log.Info("badger credential store opened", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return s, nil
}

func credentialKey(username string) []byte {
	return []byte(credentialPrefix + username)
}

// Get implements CredentialStore.
func (s *BadgerCredentialStore) Get(_ context.Context, username string) (*domain.Credential, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var cred domain.Credential
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(credentialKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cred)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return &cred, nil
}

// Create implements CredentialStore.
func (s *BadgerCredentialStore) Create(_ context.Context, cred *domain.Credential) error {
	return s.write(cred, true)
}

// Put implements CredentialStore.
func (s *BadgerCredentialStore) Put(_ context.Context, cred *domain.Credential) error {
	return s.write(cred, false)
}

func (s *BadgerCredentialStore) write(cred *domain.Credential, mustNotExist bool) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := cred.Validate(); err != nil {
		return err
	}
	val, err := json.Marshal(cred)
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	key := credentialKey(cred.Username)

	err = s.db.Update(func(txn *badger.Txn) error {
		if mustNotExist {
			_, err := txn.Get(key)
			if err == nil {
				return domain.ErrUserExists
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return txn.Set(key, val)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUserExists):
		return err
	case mustNotExist && errors.Is(err, badger.ErrConflict):
		// A concurrent Create for the same key committed first.
		return domain.ErrUserExists
	default:
		return domain.ErrStorageError.WithCause(err)
	}
}

// Delete implements CredentialStore.
func (s *BadgerCredentialStore) Delete(_ context.Context, username string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(credentialKey(username))
	})
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Count implements CredentialStore with a key-only prefix scan.
func (s *BadgerCredentialStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(credentialPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Backup writes a full Badger backup of all credentials to w.
func (s *BadgerCredentialStore) Backup(w io.Writer) error {
	if s.closed.Load() {
		return ErrClosed
	}
	_, err := s.db.Backup(w, 0)
	return err
}

// Restore loads a backup written by Backup. Existing keys are
// overwritten; keys absent from the backup are kept.
func (s *BadgerCredentialStore) Restore(r io.Reader) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Load(r, restorePendingWrites)
}

// restorePendingWrites bounds in-flight writes during Restore.
const restorePendingWrites = 256

// GC runs value log garbage collection until nothing is left to rewrite.
// It returns the number of rewrite passes.
func (s *BadgerCredentialStore) GC() (int, error) {
	passes := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return passes, fmt.Errorf("gc: %w", err)
		}
		passes++
	}
	s.lastGC.Store(time.Now().UnixMilli())
	return passes, nil
}

// Collectors returns Prometheus collectors reporting on-disk sizes.
func (s *BadgerCredentialStore) Collectors() []prometheus.Collector {
	lsm := func() float64 { l, _ := s.db.Size(); return float64(l) }
	vlog := func() float64 { _, v := s.db.Size(); return float64(v) }
	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "websec",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes.",
		}, lsm),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "websec",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes.",
		}, vlog),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "websec",
			Subsystem: "badger",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix time of the last value log GC.",
		}, func() float64 { return float64(s.lastGC.Load()) / 1000 }),
	}
}

// Close stops the GC loop and closes the database.
func (s *BadgerCredentialStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.stopCh)
	<-s.doneCh
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	s.log.Info("badger credential store closed")
	return nil
}

func (s *BadgerCredentialStore) gcLoop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			start := time.Now()
			passes, err := s.GC()
			if err != nil {
				s.log.Error("badger gc failed", "error", err)
				continue
			}
			s.log.Debug("badger gc completed", "passes", passes, "elapsed", time.Since(start))
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface. Badger is
// chatty at info level, so its info lines are demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
