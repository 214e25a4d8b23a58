package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/telemetry"
)

type noAdmins struct{}

func (noAdmins) IsAdmin(context.Context, string) (bool, error) { return false, nil }

func newTestRouter(t *testing.T, exposeReset bool) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService(t)
	h := NewHandler(svc, NewOAuthFlow("", "", "", "session-secret", false), "http://ui/auth/callback", exposeReset)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"), middleware.NewGuards(svc.Tokens, noAdmins{}))
	return r, svc
}

func doJSON(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRegisterLoginMeFlow(t *testing.T) {
	r, _ := newTestRouter(t, false)

	rec := doJSON(r, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Jane", "email": "jane@example.com", "password": "secret1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(r, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Jane", "email": "jane@example.com", "password": "secret1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	rec = doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@example.com", "password": "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@example.com", "password": "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	access, _ := body["accessToken"].(string)
	refresh, _ := body["refreshToken"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("expected tokens in %v", body)
	}

	if rec := doJSON(r, http.MethodGet, "/api/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = doJSON(r, http.MethodGet, "/api/auth/me", access, nil)
	if rec.Code != http.StatusOK || decode(t, rec)["email"] != "jane@example.com" {
		t.Fatalf("unexpected me response %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(r, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{"refreshToken": refresh})
	if rec.Code != http.StatusOK || decode(t, rec)["accessToken"] == "" {
		t.Fatalf("unexpected refresh response %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(r, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing refresh token, got %d", rec.Code)
	}

	if rec := doJSON(r, http.MethodPost, "/api/auth/logout", access, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected logout 200, got %d", rec.Code)
	}
	if rec := doJSON(r, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{"refreshToken": refresh}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestRegisterValidationDetails(t *testing.T) {
	r, _ := newTestRouter(t, false)
	rec := doJSON(r, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Jane", "email": "nope", "password": "secret1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"email"`) {
		t.Fatalf("expected email field error, got %s", rec.Body.String())
	}
}

func TestForgotAndResetPasswordRoutes(t *testing.T) {
	r, _ := newTestRouter(t, true)
	doJSON(r, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Jane", "email": "jane@example.com", "password": "secret1"})

	if rec := doJSON(r, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ghost@example.com"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec := doJSON(r, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "jane@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	token, _ := decode(t, rec)["resetToken"].(string)
	if token == "" {
		t.Fatalf("expected reset token echoed in dev")
	}

	if rec := doJSON(r, http.MethodPut, "/api/auth/reset-password/bogus", "", map[string]string{"password": "newpass1"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad token, got %d", rec.Code)
	}
	rec = doJSON(r, http.MethodPut, "/api/auth/reset-password/"+token, "", map[string]string{"password": "newpass1"})
	if rec.Code != http.StatusOK || decode(t, rec)["accessToken"] == "" {
		t.Fatalf("unexpected reset response %d %s", rec.Code, rec.Body.String())
	}
}

func TestForgotPasswordHidesTokenOutsideDev(t *testing.T) {
	r, _ := newTestRouter(t, false)
	doJSON(r, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Jane", "email": "jane@example.com", "password": "secret1"})
	rec := doJSON(r, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "jane@example.com"})
	if _, ok := decode(t, rec)["resetToken"]; ok {
		t.Fatalf("reset token must not be echoed")
	}
}

func TestGoogleRoutesWithoutConfiguration(t *testing.T) {
	r, _ := newTestRouter(t, false)
	if rec := doJSON(r, http.MethodPost, "/api/auth/google", "", map[string]string{"idToken": "x"}); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec := doJSON(r, http.MethodGet, "/api/auth/google/start", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestGoogleProviderErrorOnPasswordLogin(t *testing.T) {
	r, svc := newTestRouter(t, false)
	if _, err := svc.SignInWithGoogle(context.Background(), GoogleProfile{Subject: "g", Email: "g@example.com"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec := doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "g@example.com", "password": "whatever"})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Please login using google") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestGoogleStartSetsStateCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService(t)
	flow := NewOAuthFlow("client", "secret", "http://api/api/auth/google/callback", "session-secret", false)
	h := NewHandler(svc, flow, "http://ui/auth/callback", false)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"), middleware.NewGuards(svc.Tokens, noAdmins{}))

	rec := doJSON(r, http.MethodGet, "/api/auth/google/start", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil || loc.Host != "accounts.google.com" || loc.Query().Get("state") == "" {
		t.Fatalf("unexpected location %q", rec.Header().Get("Location"))
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), stateSessionName+"=") {
		t.Fatalf("expected state cookie, got %q", rec.Header().Get("Set-Cookie"))
	}

	// A callback without the cookie cannot complete.
	rec = doJSON(r, http.MethodGet, "/api/auth/google/callback?state="+loc.Query().Get("state")+"&code=abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing state cookie, got %d", rec.Code)
	}
}

func TestWriteErrorLogsUnexpectedFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&logs))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	writeError(c, errors.New("pq: connection refused to 10.0.0.5"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("internal detail leaked to client: %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "auth.request_failed") || !strings.Contains(logs.String(), "connection refused to 10.0.0.5") {
		t.Fatalf("expected error detail in logs, got %s", logs.String())
	}
}
