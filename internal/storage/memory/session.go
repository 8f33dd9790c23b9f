package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/storage"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/pkg/cmap"
)

// DefaultSweepInterval is how often expired sessions are removed.
const DefaultSweepInterval = time.Minute

// SessionStore keeps sessions in memory.
type SessionStore struct {
	sessions *cmap.Map[*domain.Session]

	now           func() time.Time
	sweepInterval time.Duration
	log           logger.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

var _ storage.SessionStore = (*SessionStore)(nil)

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithSweepInterval sets the sweep interval. Zero or negative disables
// the background sweeper.
func WithSweepInterval(d time.Duration) Option {
	return func(s *SessionStore) {
		s.sweepInterval = d
	}
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		s.now = now
	}
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(l logger.Logger) Option {
	return func(s *SessionStore) {
		s.log = l
	}
}

// NewSessionStore creates a session store and starts its sweeper.
func NewSessionStore(opts ...Option) *SessionStore {
	s := &SessionStore{
		sessions:      cmap.New[*domain.Session](),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		log:           logger.Discard(),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sweepInterval > 0 {
		go s.sweepLoop()
	} else {
		close(s.doneCh)
	}
	return s
}

// Get implements storage.SessionStore.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if sess.IsExpired(s.now()) {
		return nil, domain.ErrSessionExpired
	}
	return sess.Clone(), nil
}

// Put implements storage.SessionStore.
func (s *SessionStore) Put(_ context.Context, sess *domain.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.sessions.Set(sess.ID, sess.Clone())
	return nil
}

// Expire implements storage.SessionStore.
func (s *SessionStore) Expire(_ context.Context, id string) error {
	s.sessions.Delete(id)
	return nil
}

// Count implements storage.SessionStore. Sessions that expired but were
// not swept yet are not counted.
func (s *SessionStore) Count(context.Context) (int, error) {
	now := s.now()
	n := 0
	s.sessions.Range(func(_ string, sess *domain.Session) bool {
		if !sess.IsExpired(now) {
			n++
		}
		return true
	})
	return n, nil
}

// Sweep removes expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	now := s.now()
	return s.sessions.DeleteFunc(func(_ string, sess *domain.Session) bool {
		return sess.IsExpired(now)
	})
}

// Close stops the sweeper. Sessions stay readable.
func (s *SessionStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	return nil
}

func (s *SessionStore) sweepLoop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("expired sessions swept", "count", n)
			}
		case <-s.stopCh:
			return
		}
	}
}
