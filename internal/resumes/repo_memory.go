package resumes

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"resume-builder/resume/model"
)

// MemoryRepo is an in-process Repo used in dev and tests. Values are deep
// copied on the way in and out so callers never share slices with the store.
type MemoryRepo struct {
	mu      sync.RWMutex
	resumes map[string]model.Resume
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{resumes: make(map[string]model.Resume)}
}

func (m *MemoryRepo) Create(ctx context.Context, r model.Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenTakenLocked(r) {
		return ErrTokenConflict
	}
	m.resumes[r.ID] = clone(r)
	return nil
}

func (m *MemoryRepo) Update(ctx context.Context, r model.Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resumes[r.ID]; !ok {
		return ErrNotFound
	}
	if m.tokenTakenLocked(r) {
		return ErrTokenConflict
	}
	m.resumes[r.ID] = clone(r)
	return nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resumes[id]; !ok {
		return ErrNotFound
	}
	delete(m.resumes, id)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (model.Resume, error) {
	if err := ctx.Err(); err != nil {
		return model.Resume{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resumes[id]
	if !ok {
		return model.Resume{}, ErrNotFound
	}
	return clone(r), nil
}

func (m *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]model.Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]model.Resume, 0)
	for _, r := range m.resumes {
		if r.UserID == userID {
			out = append(out, clone(r))
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *MemoryRepo) GetByShareToken(ctx context.Context, token string, now time.Time) (model.Resume, error) {
	if err := ctx.Err(); err != nil {
		return model.Resume{}, err
	}
	if token == "" {
		return model.Resume{}, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.resumes {
		if r.ShareToken != nil && *r.ShareToken == token && r.ShareExpiry != nil && r.ShareExpiry.After(now) {
			return clone(r), nil
		}
	}
	return model.Resume{}, ErrNotFound
}

func (m *MemoryRepo) ClearExpiredShares(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.resumes {
		if r.ShareExpiry != nil && !r.ShareExpiry.After(now) {
			r.ShareToken = nil
			r.ShareExpiry = nil
			m.resumes[id] = r
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.resumes {
		if r.UserID == userID {
			delete(m.resumes, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepo) CountAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.resumes), nil
}

func (m *MemoryRepo) tokenTakenLocked(r model.Resume) bool {
	if r.ShareToken == nil {
		return false
	}
	for id, other := range m.resumes {
		if id != r.ID && other.ShareToken != nil && *other.ShareToken == *r.ShareToken {
			return true
		}
	}
	return false
}

func clone(r model.Resume) model.Resume {
	raw, err := json.Marshal(r)
	if err != nil {
		return r
	}
	var out model.Resume
	if err := json.Unmarshal(raw, &out); err != nil {
		return r
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
