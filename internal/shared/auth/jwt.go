package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenKind separates access from refresh tokens so one can never stand in for the other.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims represents the identity contained in a JWT.
type Claims struct {
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
	Admin bool      `json:"admin,omitempty"`
	Kind  TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Identity is what gets embedded into an access token.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Admin  bool
}

// Pair is the token pair returned to clients after sign-in.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

var (
	ErrInvalidToken  = errors.New("invalid token")
	errMissingSecret = errors.New("jwt secret not configured")
)

// Issuer signs and verifies HS256 tokens with separate access and refresh keys.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(strings.TrimSpace(accessSecret)),
		refreshSecret: []byte(strings.TrimSpace(refreshSecret)),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock overrides the issuance clock. Verification always uses wall time.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// SignAccess issues a short-lived access token for id.
func (i *Issuer) SignAccess(id Identity) (string, error) {
	claims := Claims{Email: id.Email, Name: id.Name, Admin: id.Admin, Kind: KindAccess}
	return i.sign(i.accessSecret, id.UserID, i.accessTTL, claims)
}

// SignRefresh issues a refresh token. Each one carries a unique ID so a
// stored hash identifies exactly one issuance.
func (i *Issuer) SignRefresh(userID string) (string, error) {
	claims := Claims{Kind: KindRefresh}
	claims.ID = uuid.NewString()
	return i.sign(i.refreshSecret, userID, i.refreshTTL, claims)
}

// IssuePair signs both tokens.
func (i *Issuer) IssuePair(id Identity) (Pair, error) {
	access, err := i.SignAccess(id)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.SignRefresh(id.UserID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) VerifyAccess(token string) (Claims, error) {
	return i.verify(i.accessSecret, token, KindAccess)
}

func (i *Issuer) VerifyRefresh(token string) (Claims, error) {
	return i.verify(i.refreshSecret, token, KindRefresh)
}

func (i *Issuer) sign(secret []byte, subject string, ttl time.Duration, claims Claims) (string, error) {
	if len(secret) == 0 {
		return "", errMissingSecret
	}
	if subject == "" {
		return "", errors.New("sub is required")
	}
	now := i.now().UTC()
	claims.Subject = subject
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) verify(secret []byte, token string, kind TokenKind) (Claims, error) {
	if len(secret) == 0 {
		return Claims{}, errMissingSecret
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Kind != kind {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
