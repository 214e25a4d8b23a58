package share

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"resume-builder/resume/model"
)

const (
	// TokenBytes is the entropy of a share token before hex encoding.
	TokenBytes = 32
	DefaultTTL = 30 * 24 * time.Hour
)

// NewToken returns 32 random bytes hex-encoded (64 characters).
func NewToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Grant is the outcome of issuing a share token.
type Grant struct {
	Token     string    `json:"shareToken"`
	ExpiresAt time.Time `json:"expiresAt"`
	Reused    bool      `json:"-"`
}

// Manager issues, checks and revokes share tokens on a resume value.
// Callers persist the mutated resume.
type Manager struct {
	TTL   time.Duration
	Now   func() time.Time
	Token func() (string, error)
}

func NewManager() *Manager {
	return &Manager{TTL: DefaultTTL, Now: time.Now, Token: NewToken}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}

func (m *Manager) ttl() time.Duration {
	if m.TTL <= 0 {
		return DefaultTTL
	}
	return m.TTL
}

// Generate always issues a fresh token, replacing any previous one.
func (m *Manager) Generate(r *model.Resume) (Grant, error) {
	newToken := m.Token
	if newToken == nil {
		newToken = NewToken
	}
	token, err := newToken()
	if err != nil {
		return Grant{}, err
	}
	expiry := m.now().Add(m.ttl())
	r.ShareToken = &token
	r.ShareExpiry = &expiry
	return Grant{Token: token, ExpiresAt: expiry}, nil
}

// Ensure keeps a live token and only issues a new one when none is valid.
func (m *Manager) Ensure(r *model.Resume) (Grant, error) {
	if Valid(*r, m.now()) {
		return Grant{Token: *r.ShareToken, ExpiresAt: *r.ShareExpiry, Reused: true}, nil
	}
	return m.Generate(r)
}

// Valid reports whether the resume carries a token that has not expired.
// A token expiring exactly at now is already expired.
func Valid(r model.Resume, now time.Time) bool {
	if r.ShareToken == nil || *r.ShareToken == "" || r.ShareExpiry == nil {
		return false
	}
	return r.ShareExpiry.After(now)
}

// Revoke clears both sharing fields. Calling it on an unshared resume is a no-op.
func Revoke(r *model.Resume) {
	r.ShareToken = nil
	r.ShareExpiry = nil
}

// URL is the public link for a token under the given app origin.
func URL(origin, token string) string {
	for len(origin) > 0 && origin[len(origin)-1] == '/' {
		origin = origin[:len(origin)-1]
	}
	return origin + "/resume/shared/" + token
}
