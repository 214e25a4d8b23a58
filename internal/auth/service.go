package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-builder/internal/notify"
	sharedauth "resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/validation"
	"resume-builder/internal/users"
)

const (
	defaultResetTTL = 10 * time.Minute
	resetTokenBytes = 20
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrGoogleNotConfigured = errors.New("google sign-in is not configured")
)

// ProviderError means the account must sign in through Provider.
type ProviderError struct {
	Provider string
}

func (e *ProviderError) Error() string {
	return "account uses " + e.Provider + " sign-in"
}

// Session is what a successful sign-in returns to the client.
type Session struct {
	User         users.Profile `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Service struct {
	Users  users.Repo
	Tokens *sharedauth.Issuer
	Notify notify.Publisher
	Google GoogleVerifier
	// IsAdminEmail elevates allow-listed addresses at sign-in.
	IsAdminEmail func(email string) bool
	ResetTTL     time.Duration
	Now          func() time.Time
}

func NewService(repo users.Repo, tokens *sharedauth.Issuer, pub notify.Publisher) *Service {
	if pub == nil {
		pub = notify.Discard{}
	}
	return &Service{
		Users:    repo,
		Tokens:   tokens,
		Notify:   pub,
		ResetTTL: defaultResetTTL,
		Now:      time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = users.NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return Session{}, err
	}
	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		return Session{}, users.ErrEmailTaken
	} else if !errors.Is(err, users.ErrNotFound) {
		return Session{}, err
	}

	hash, err := sharedauth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	user := users.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		AuthProvider: users.ProviderLocal,
		IsAdmin:      s.allowListed(in.Email),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return Session{}, err
	}
	s.publish(notify.KindUserRegistered, user)
	return s.session(ctx, user)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = users.NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return Session{}, err
	}
	user, err := s.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, users.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if user.AuthProvider != users.ProviderLocal {
		return Session{}, &ProviderError{Provider: user.AuthProvider}
	}
	if !sharedauth.CheckPassword(user.PasswordHash, in.Password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.completeLogin(ctx, user)
}

// GoogleSignIn verifies a Google ID token and signs the user in, creating
// or linking the account as needed.
func (s *Service) GoogleSignIn(ctx context.Context, idToken string) (Session, error) {
	if s.Google == nil {
		return Session{}, ErrGoogleNotConfigured
	}
	if strings.TrimSpace(idToken) == "" {
		return Session{}, validation.New("idToken", "is required")
	}
	profile, err := s.Google.Verify(ctx, idToken)
	if err != nil {
		telemetry.Warn("auth.google_token_rejected", map[string]any{"error": err.Error()})
		return Session{}, ErrInvalidCredentials
	}
	return s.SignInWithGoogle(ctx, profile)
}

// SignInWithGoogle finds or creates the account behind a verified Google profile.
func (s *Service) SignInWithGoogle(ctx context.Context, profile GoogleProfile) (Session, error) {
	email := users.NormalizeEmail(profile.Email)
	if profile.Subject == "" || email == "" {
		return Session{}, validation.New("email", "Email and Google ID are required")
	}

	user, err := s.Users.GetByGoogleID(ctx, profile.Subject)
	if errors.Is(err, users.ErrNotFound) {
		user, err = s.Users.GetByEmail(ctx, email)
	}
	switch {
	case err == nil:
		if user.GoogleID == "" {
			user.GoogleID = profile.Subject
			user.AuthProvider = users.ProviderGoogle
			if user.ProfilePicture == "" {
				user.ProfilePicture = profile.Picture
			}
		}
	case errors.Is(err, users.ErrNotFound):
		now := s.now()
		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user = users.User{
			ID:             uuid.NewString(),
			Name:           name,
			Email:          email,
			AuthProvider:   users.ProviderGoogle,
			GoogleID:       profile.Subject,
			ProfilePicture: profile.Picture,
			IsAdmin:        s.allowListed(email),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.Users.Create(ctx, user); err != nil {
			return Session{}, err
		}
		s.publish(notify.KindUserRegistered, user)
	default:
		return Session{}, err
	}
	return s.completeLogin(ctx, user)
}

func (s *Service) completeLogin(ctx context.Context, user users.User) (Session, error) {
	now := s.now()
	user.LastLogin = &now
	user.UpdatedAt = now
	if s.allowListed(user.Email) {
		user.IsAdmin = true
	}
	session, err := s.session(ctx, user)
	if err != nil {
		return Session{}, err
	}
	s.publish(notify.KindUserLogin, user)
	return session, nil
}

// Refresh exchanges a refresh token for a new access token. The token must
// verify and match the hash stored at issuance.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	user, err := s.Users.GetByID(ctx, claims.Subject)
	if errors.Is(err, users.ErrNotFound) {
		return "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", err
	}
	if user.RefreshTokenHash == "" || user.RefreshTokenHash != sharedauth.HashToken(strings.TrimSpace(refreshToken)) {
		return "", ErrInvalidRefreshToken
	}
	return s.Tokens.SignAccess(identity(user))
}

// Logout forgets the stored refresh token so it can no longer be exchanged.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.RefreshTokenHash == "" {
		return nil
	}
	user.RefreshTokenHash = ""
	user.UpdatedAt = s.now()
	return s.Users.Update(ctx, user)
}

func (s *Service) Me(ctx context.Context, userID string) (users.Profile, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return users.Profile{}, err
	}
	return user.Profile(), nil
}

// ForgotPassword stores a hashed single-use reset token and returns the raw
// token; delivery happens through the notifier.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = users.NormalizeEmail(email)
	if email == "" {
		return "", validation.New("email", "is required")
	}
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user.AuthProvider != users.ProviderLocal {
		return "", &ProviderError{Provider: user.AuthProvider}
	}
	token, err := sharedauth.RandomHex(resetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	ttl := s.ResetTTL
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	expires := s.now().Add(ttl)
	user.ResetTokenHash = sharedauth.HashToken(token)
	user.ResetTokenExpires = &expires
	user.UpdatedAt = s.now()
	if err := s.Users.Update(ctx, user); err != nil {
		return "", err
	}
	s.Notify.Publish(notify.Event{
		Kind:       notify.KindPasswordReset,
		UserID:     user.ID,
		UserName:   user.Name,
		UserEmail:  user.Email,
		ResetToken: token,
	})
	return token, nil
}

// ResetPassword consumes a reset token and signs the user in.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (Session, error) {
	if len(password) < users.MinPasswordLen {
		return Session{}, validation.New("password", fmt.Sprintf("must be at least %d characters", users.MinPasswordLen))
	}
	user, err := s.Users.GetByResetToken(ctx, sharedauth.HashToken(strings.TrimSpace(token)), s.now())
	if errors.Is(err, users.ErrNotFound) {
		return Session{}, ErrInvalidResetToken
	}
	if err != nil {
		return Session{}, err
	}
	hash, err := sharedauth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	user.PasswordHash = hash
	user.ResetTokenHash = ""
	user.ResetTokenExpires = nil
	session, err := s.session(ctx, user)
	if err != nil {
		return Session{}, err
	}
	s.Notify.Publish(notify.Event{
		Kind:      notify.KindPasswordChanged,
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		Fields:    []string{"password"},
	})
	return session, nil
}

// IssueSession signs a new token pair and stores the refresh token hash.
func (s *Service) IssueSession(ctx context.Context, user users.User) (sharedauth.Pair, error) {
	pair, err := s.Tokens.IssuePair(identity(user))
	if err != nil {
		return sharedauth.Pair{}, err
	}
	user.RefreshTokenHash = sharedauth.HashToken(pair.RefreshToken)
	user.UpdatedAt = s.now()
	if err := s.Users.Update(ctx, user); err != nil {
		return sharedauth.Pair{}, err
	}
	return pair, nil
}

func (s *Service) session(ctx context.Context, user users.User) (Session, error) {
	pair, err := s.IssueSession(ctx, user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user.Profile(), AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *Service) allowListed(email string) bool {
	return s.IsAdminEmail != nil && s.IsAdminEmail(email)
}

func (s *Service) publish(kind notify.Kind, user users.User) {
	s.Notify.Publish(notify.Event{
		Kind:      kind,
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
	})
}

func identity(user users.User) sharedauth.Identity {
	return sharedauth.Identity{UserID: user.ID, Email: user.Email, Name: user.Name, Admin: user.IsAdmin}
}
