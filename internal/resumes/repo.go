package resumes

import (
	"context"
	"errors"
	"time"

	"resume-builder/resume/model"
)

var (
	ErrNotFound      = errors.New("resume not found")
	ErrTokenConflict = errors.New("share token already in use")
)

// Repo persists resumes. Get and the share lookup return ErrNotFound for
// missing rows; ListByUser orders by updatedAt, newest first.
type Repo interface {
	Create(ctx context.Context, r model.Resume) error
	Update(ctx context.Context, r model.Resume) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (model.Resume, error)
	ListByUser(ctx context.Context, userID string) ([]model.Resume, error)
	// GetByShareToken only matches tokens whose expiry is after now.
	GetByShareToken(ctx context.Context, token string, now time.Time) (model.Resume, error)
	// ClearExpiredShares nulls token and expiry on every share that expired at or before now.
	ClearExpiredShares(ctx context.Context, now time.Time) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	CountAll(ctx context.Context) (int, error)
}
