// Package retention deletes stored objects once they outlive the configured
// retention period.
package retention

import (
	"context"
	"time"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
)

// Expirer is the part of objectstore.Store the sweeper needs.
type Expirer interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Sweeper periodically removes objects older than Retention.
type Sweeper struct {
	store     Expirer
	retention time.Duration
	interval  time.Duration
	clock     Clock
	log       logging.Logger
}

// NewSweeper returns a sweeper. A non-positive retention disables it.
func NewSweeper(store Expirer, retention, interval time.Duration, log logging.Logger) *Sweeper {
	if log == nil {
		log = logging.Nop{}
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		clock:     systemClock{},
		log:       log.With("module", "retention"),
	}
}

// Enabled reports whether the sweeper does anything.
func (s *Sweeper) Enabled() bool { return s.retention > 0 && s.interval > 0 }

// SweepOnce deletes every object written before now - retention.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now().Add(-s.retention)

	n, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error(ctx, "retention sweep failed", "error", err, "deleted", n)
		return n, err
	}
	if n > 0 {
		s.log.Info(ctx, "retention sweep", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}

// Run sweeps once at start and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.Enabled() {
		s.log.Info(ctx, "retention sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		_, _ = s.SweepOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
