package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resume-builder/internal/resumes"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/resume/model"
)

type failingClearer struct{}

func (failingClearer) ClearExpiredShares(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func seed(t *testing.T, repo *resumes.MemoryRepo, id, token string, expiry time.Time) {
	t.Helper()
	r := model.Resume{ID: id, UserID: "u1", Title: id, ShareToken: &token, ShareExpiry: &expiry}
	if err := repo.Create(context.Background(), r); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestRunOnceClearsOnlyExpiredShares(t *testing.T) {
	var logs strings.Builder
	t.Cleanup(telemetry.SetOutput(&logs))
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	repo := resumes.NewMemoryRepo()
	seed(t, repo, "old", "tok-old", now.Add(-time.Hour))
	seed(t, repo, "edge", "tok-edge", now)
	seed(t, repo, "live", "tok-live", now.Add(time.Hour))

	sweeper := NewShareSweeper(repo, "")
	sweeper.Now = func() time.Time { return now }

	n, err := sweeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 cleared, got %d", n)
	}
	live, _ := repo.Get(context.Background(), "live")
	if live.ShareToken == nil {
		t.Fatalf("live share should survive")
	}
	old, _ := repo.Get(context.Background(), "old")
	if old.ShareToken != nil || old.ShareExpiry != nil {
		t.Fatalf("expired share should be cleared")
	}
	if !strings.Contains(logs.String(), "jobs.share_sweep") {
		t.Fatalf("expected sweep log, got %q", logs.String())
	}
}

func TestRunOnceReportsErrors(t *testing.T) {
	var logs strings.Builder
	t.Cleanup(telemetry.SetOutput(&logs))
	if _, err := NewShareSweeper(failingClearer{}, "").RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(logs.String(), "jobs.share_sweep_failed") {
		t.Fatalf("expected failure log")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	if err := NewShareSweeper(failingClearer{}, "not a schedule").Start(); err == nil {
		t.Fatalf("expected schedule error")
	}
	s := NewShareSweeper(resumes.NewMemoryRepo(), "@every 1h")
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop(context.Background())
}
