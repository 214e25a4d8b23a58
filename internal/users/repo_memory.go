package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTakenLocked(user.Email, user.ID) {
		return ErrEmailTaken
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	if r.emailTakenLocked(user.Email, user.ID) {
		return ErrEmailTaken
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return ErrNotFound
	}
	delete(r.users, userID)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.find(ctx, func(u User) bool { return u.ID == userID })
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = NormalizeEmail(email)
	return r.find(ctx, func(u User) bool { return NormalizeEmail(u.Email) == email })
}

func (r *MemoryRepo) GetByGoogleID(ctx context.Context, googleID string) (User, error) {
	if googleID == "" {
		return User{}, ErrNotFound
	}
	return r.find(ctx, func(u User) bool { return u.GoogleID == googleID })
}

func (r *MemoryRepo) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (User, error) {
	if tokenHash == "" {
		return User{}, ErrNotFound
	}
	return r.find(ctx, func(u User) bool {
		return u.ResetTokenHash == tokenHash && u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now)
	})
}

func (r *MemoryRepo) List(ctx context.Context, q ListQuery) ([]User, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))
	r.mu.RLock()
	matched := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		matched = append(matched, u)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	start := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if !u.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) find(ctx context.Context, match func(User) bool) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) emailTakenLocked(email, exceptID string) bool {
	email = NormalizeEmail(email)
	for id, u := range r.users {
		if id != exceptID && NormalizeEmail(u.Email) == email {
			return true
		}
	}
	return false
}

var _ Repo = (*MemoryRepo)(nil)
