// Package scheduler runs the service's periodic housekeeping.
package scheduler

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/example/fsmgate/internal/domain/audit"
)

var logger = loggo.GetLogger("fsmgate.scheduler")

// Retention deletes audit records older than Keep once per Interval,
// starting with an immediate sweep.
type Retention struct {
	Store    audit.Pruner
	Keep     time.Duration
	Interval time.Duration
	Clock    clock.Clock
}

// Run sweeps until ctx is done.
func (r Retention) Run(ctx context.Context) error {
	if r.Store == nil || r.Keep <= 0 {
		return errors.NotValidf("audit retention %v", r.Keep)
	}
	clk := r.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	interval := r.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	now := clk.Now()
	for {
		if _, err := r.Sweep(ctx, now); err != nil {
			logger.Warningf("%v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now = <-clk.After(interval):
		}
	}
}

// Sweep prunes the records that fell out of the window at now.
func (r Retention) Sweep(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-r.Keep)
	n, err := r.Store.Prune(ctx, cutoff)
	if err != nil {
		return 0, errors.Annotatef(err, "prune audit before %s", cutoff.UTC().Format(time.RFC3339))
	}
	if n > 0 {
		logger.Infof("pruned %d tool calls older than %s", n, r.Keep)
	}
	return n, nil
}
