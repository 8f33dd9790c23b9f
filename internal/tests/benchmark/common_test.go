package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/core/service"
	"github.com/yndnr/websec-go/internal/storage/memory"
	"github.com/yndnr/websec-go/internal/storage/storagetest"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/pkg/hashing"
)

// SessionCounts are the store sizes lookups are measured against.
var SessionCounts = []int{1000, 10000, 100000}

// benchIterations keeps PBKDF2 cheap where hashing is not what is measured.
const benchIterations = 1000

// prefillSessions stores count sessions and returns them.
func prefillSessions(b *testing.B, store *memory.SessionStore, count int) []*domain.Session {
	b.Helper()
	ctx := context.Background()
	sessions := make([]*domain.Session, count)
	for i := range sessions {
		sessions[i] = storagetest.Session(b, fmt.Sprintf("user-%d", i%1000), time.Hour)
		if err := store.Put(ctx, sessions[i]); err != nil {
			b.Fatalf("Put failed: %v", err)
		}
	}
	return sessions
}

// newAuthService returns a service over memory stores with throttling
// effectively off.
func newAuthService(b *testing.B) (*service.AuthService, *memory.SessionStore) {
	b.Helper()
	sessions := memory.NewSessionStore(memory.WithSweepInterval(0))
	b.Cleanup(func() { _ = sessions.Close() })
	cfg := service.DefaultConfig()
	cfg.LoginRate = 1e9
	cfg.LoginBurst = 1 << 30
	svc := service.NewAuthService(memory.NewCredentialStore(), sessions,
		hashing.NewPBKDF2WithIterations(benchIterations), cfg,
		service.WithLogger(logger.Discard()))
	return svc, sessions
}

// reportMemory reports heap usage after a forced GC.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

// runWithSessionCounts runs benchFn once per store size.
func runWithSessionCounts(b *testing.B, benchFn func(b *testing.B, count int)) {
	for _, count := range SessionCounts {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
