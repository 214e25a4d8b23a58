package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

// ListQuery pages through users, newest first. Search matches name or email.
type ListQuery struct {
	Search string
	Offset int
	Limit  int
}

type Repo interface {
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, userID string) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByGoogleID(ctx context.Context, googleID string) (User, error)
	// GetByResetToken finds a user whose reset token hash matches and has not expired.
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (User, error)
	List(ctx context.Context, q ListQuery) ([]User, int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}
