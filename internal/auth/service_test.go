package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"resume-builder/internal/notify"
	sharedauth "resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/validation"
	"resume-builder/internal/users"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *capturePublisher) Publish(ev notify.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *capturePublisher) kinds() []notify.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notify.Kind, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (c *capturePublisher) last() notify.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

type stubGoogle struct {
	profile GoogleProfile
	err     error
}

func (s stubGoogle) Verify(context.Context, string) (GoogleProfile, error) {
	return s.profile, s.err
}

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *users.MemoryRepo, *capturePublisher) {
	t.Helper()
	sharedauth.PasswordCost = bcrypt.MinCost
	t.Cleanup(func() { sharedauth.PasswordCost = bcrypt.DefaultCost })
	repo := users.NewMemoryRepo()
	pub := &capturePublisher{}
	svc := NewService(repo, sharedauth.NewIssuer("access", "refresh", time.Hour, 24*time.Hour), pub)
	svc.Now = func() time.Time { return testNow }
	return svc, repo, pub
}

func TestRegisterThenLogin(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Name: " Jane ", Email: "Jane@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.User.Email != "jane@example.com" || sess.User.Name != "Jane" {
		t.Fatalf("unexpected profile %+v", sess.User)
	}
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatalf("expected tokens")
	}
	stored, _ := repo.GetByEmail(ctx, "jane@example.com")
	if stored.PasswordHash == "secret1" || stored.RefreshTokenHash != sharedauth.HashToken(sess.RefreshToken) {
		t.Fatalf("expected hashed secrets to be stored")
	}

	if _, err := svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"}); !errors.Is(err, users.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like a bad password, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "JANE@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored, _ = repo.GetByEmail(ctx, "jane@example.com")
	if stored.LastLogin == nil || !stored.LastLogin.Equal(testNow) {
		t.Fatalf("expected last login stamped, got %v", stored.LastLogin)
	}

	kinds := pub.kinds()
	if len(kinds) != 2 || kinds[0] != notify.KindUserRegistered || kinds[1] != notify.KindUserLogin {
		t.Fatalf("unexpected events %v", kinds)
	}
}

func TestRegisterValidates(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterInput{Name: "", Email: "bad", Password: "123"})
	var verr *validation.Error
	if !errors.As(err, &verr) || len(verr.Fields) != 3 {
		t.Fatalf("expected three field errors, got %v", err)
	}
}

func TestLoginRejectsGoogleAccounts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.SignInWithGoogle(ctx, GoogleProfile{Subject: "g-1", Email: "g@example.com", Name: "G"}); err != nil {
		t.Fatalf("google: %v", err)
	}
	_, err := svc.Login(ctx, LoginInput{Email: "g@example.com", Password: "anything"})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Provider != users.ProviderGoogle {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestSignInWithGoogleLinksExistingAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	sess, err := svc.SignInWithGoogle(ctx, GoogleProfile{Subject: "g-42", Email: "JANE@example.com", Picture: "https://img/p.png"})
	if err != nil {
		t.Fatalf("google: %v", err)
	}
	if sess.User.ID != reg.User.ID {
		t.Fatalf("expected the existing account to be linked")
	}
	stored, _ := repo.GetByID(ctx, reg.User.ID)
	if stored.GoogleID != "g-42" || stored.AuthProvider != users.ProviderGoogle || stored.ProfilePicture != "https://img/p.png" {
		t.Fatalf("unexpected linked user %+v", stored)
	}

	again, err := svc.SignInWithGoogle(ctx, GoogleProfile{Subject: "g-42", Email: "other@example.com"})
	if err != nil || again.User.ID != reg.User.ID {
		t.Fatalf("expected lookup by google id, got %v %+v", err, again.User)
	}
}

func TestGoogleSignIn(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.GoogleSignIn(ctx, "tok"); !errors.Is(err, ErrGoogleNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}

	svc.Google = stubGoogle{err: errors.New("bad audience")}
	if _, err := svc.GoogleSignIn(ctx, "tok"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	svc.Google = stubGoogle{profile: GoogleProfile{Subject: "g-1", Email: "new@example.com"}}
	sess, err := svc.GoogleSignIn(ctx, "tok")
	if err != nil {
		t.Fatalf("google: %v", err)
	}
	if sess.User.Name != "new" || sess.User.AuthProvider != users.ProviderGoogle {
		t.Fatalf("unexpected created user %+v", sess.User)
	}
}

func TestAdminAllowListElevatesOnLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.IsAdminEmail = func(email string) bool { return email == "root@example.com" }
	sess, err := svc.Register(context.Background(), RegisterInput{Name: "Root", Email: "root@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := svc.Tokens.VerifyAccess(sess.AccessToken)
	if err != nil || !claims.Admin || !sess.User.IsAdmin {
		t.Fatalf("expected admin session, got %+v %v", claims, err)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	access, err := svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := svc.Tokens.VerifyAccess(access)
	if err != nil || claims.Subject != sess.User.ID {
		t.Fatalf("unexpected refreshed token %+v %v", claims, err)
	}
	if _, err := svc.Refresh(ctx, sess.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	if err := svc.Logout(ctx, sess.User.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, sess.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected refresh to fail after logout, got %v", err)
	}
}

func TestRefreshRejectsSupersededToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	first, _ := svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"})
	if _, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected older refresh token to be rejected, got %v", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()
	reg, _ := svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"})

	if _, err := svc.ForgotPassword(ctx, "missing@example.com"); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	token, err := svc.ForgotPassword(ctx, "Jane@example.com")
	if err != nil {
		t.Fatalf("forgot: %v", err)
	}
	if len(token) != 40 {
		t.Fatalf("expected 40 hex chars, got %q", token)
	}
	ev := pub.last()
	if ev.Kind != notify.KindPasswordReset || ev.ResetToken != token || ev.UserEmail != "jane@example.com" {
		t.Fatalf("unexpected reset event %+v", ev)
	}
	stored, _ := repo.GetByID(ctx, reg.User.ID)
	if stored.ResetTokenHash != sharedauth.HashToken(token) || stored.ResetTokenExpires == nil {
		t.Fatalf("expected hashed token with expiry")
	}

	if _, err := svc.ResetPassword(ctx, token, "123"); err == nil {
		t.Fatalf("expected short password rejection")
	}
	if _, err := svc.ResetPassword(ctx, "bogus", "newpass1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := svc.ResetPassword(ctx, token, "newpass1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := svc.ResetPassword(ctx, token, "newpass2"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("reset tokens are single use, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "newpass1"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestResetTokenExpires(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, _ = svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"})
	token, err := svc.ForgotPassword(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("forgot: %v", err)
	}
	svc.Now = func() time.Time { return testNow.Add(11 * time.Minute) }
	if _, err := svc.ResetPassword(ctx, token, "newpass1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected expired token rejection, got %v", err)
	}
}

func TestCallbackURL(t *testing.T) {
	got, err := CallbackURL("http://localhost:5173/auth/callback?x=1", Session{AccessToken: "a b", RefreshToken: "r"})
	if err != nil {
		t.Fatalf("callback url: %v", err)
	}
	if got != "http://localhost:5173/auth/callback?refreshToken=r&token=a+b&x=1" {
		t.Fatalf("unexpected url %s", got)
	}
	if _, err := CallbackURL("", Session{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
