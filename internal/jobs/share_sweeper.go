package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/telemetry"
)

const sweepTimeout = 2 * time.Minute

// ShareClearer nulls out share tokens whose expiry is at or before now.
type ShareClearer interface {
	ClearExpiredShares(ctx context.Context, now time.Time) (int64, error)
}

// ShareSweeper periodically drops expired share tokens so they stop
// occupying the unique index. Lookups already ignore expired tokens.
type ShareSweeper struct {
	Repo     ShareClearer
	Schedule string
	Now      func() time.Time

	cron *cron.Cron
}

func NewShareSweeper(repo ShareClearer, schedule string) *ShareSweeper {
	if schedule == "" {
		schedule = "@every 1h"
	}
	return &ShareSweeper{Repo: repo, Schedule: schedule, Now: time.Now}
}

// Start schedules the sweep. A run still in progress causes the next tick to be skipped.
func (s *ShareSweeper) Start() error {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(s.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule share sweep %q: %w", s.Schedule, err)
	}
	s.cron = c
	c.Start()
	telemetry.Info("jobs.share_sweep_started", map[string]any{"schedule": s.Schedule})
	return nil
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *ShareSweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs a single sweep.
func (s *ShareSweeper) RunOnce(ctx context.Context) (int64, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	start := time.Now()
	n, err := s.Repo.ClearExpiredShares(ctx, now().UTC())
	if err != nil {
		telemetry.Error("jobs.share_sweep_failed", map[string]any{"error": err.Error()})
		return 0, err
	}
	metrics.AddSharesSwept(n)
	telemetry.Info("jobs.share_sweep", map[string]any{
		"cleared":     n,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return n, nil
}
