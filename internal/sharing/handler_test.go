package sharing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/resumes"
	sharedauth "resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/server/middleware"
	localstore "resume-builder/internal/shared/storage/object/local"
	"resume-builder/internal/users"
	"resume-builder/resume/model"
)

type noAdmins struct{}

func (noAdmins) IsAdmin(context.Context, string) (bool, error) { return false, nil }

type harness struct {
	router *gin.Engine
	svc    *resumes.Service
	token  string
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	owners := users.NewMemoryRepo()
	_ = owners.Create(context.Background(), users.User{ID: "user-a", Name: "Alice", Email: "alice@example.com"})
	h.svc = resumes.NewService(resumes.NewMemoryRepo(), localstore.New(t.TempDir()), owners, nil, "https://app.example.com")
	h.svc.Now = func() time.Time { return h.now }

	tokens := sharedauth.NewIssuer("access", "refresh", time.Hour, time.Hour)
	token, err := tokens.SignAccess(sharedauth.Identity{UserID: "user-a", Email: "alice@example.com", Name: "Alice"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	h.token = token

	r := gin.New()
	NewHandler(h.svc).RegisterRoutes(r.Group("/api"), middleware.NewGuards(tokens, noAdmins{}))
	h.router = r
	return h
}

func (h *harness) do(method, path string, authed bool, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) createResume(t *testing.T) model.Resume {
	t.Helper()
	in := model.Resume{Title: "Platform CV"}
	in.PersonalInfo.FullName = model.StringPtr("Alice Smith")
	in.PersonalInfo.Summary = model.StringPtr("Builds reliable systems.")
	r, err := h.svc.Create(context.Background(), resumes.Actor{UserID: "user-a", Name: "Alice"}, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return r
}

func TestLinksReuseTheActiveToken(t *testing.T) {
	h := newHarness(t)
	r := h.createResume(t)

	var first, second linksResponse
	rec := h.do(http.MethodGet, "/api/share/"+r.ID+"/links", true, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("links: %d %s", rec.Code, rec.Body.String())
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &first)
	rec = h.do(http.MethodGet, "/api/share/"+r.ID+"/links", true, "")
	_ = json.Unmarshal(rec.Body.Bytes(), &second)

	if first.ShareToken == "" || first.ShareToken != second.ShareToken {
		t.Fatalf("expected the same token twice, got %q and %q", first.ShareToken, second.ShareToken)
	}
	if first.ShareURL != "https://app.example.com/resume/shared/"+first.ShareToken || first.Links.Copy != first.ShareURL {
		t.Fatalf("unexpected share url %q", first.ShareURL)
	}
	if !strings.Contains(first.Links.Email, "Builds%20reliable%20systems.") {
		t.Fatalf("expected summary in email body, got %q", first.Links.Email)
	}

	if rec := h.do(http.MethodGet, "/api/share/"+r.ID+"/links", false, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestMetaAndTrack(t *testing.T) {
	h := newHarness(t)
	r := h.createResume(t)
	link, _, err := h.svc.EnsureShare(context.Background(), resumes.Actor{UserID: "user-a"}, r.ID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	rec := h.do(http.MethodGet, "/api/share/meta/"+link.Token, false, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("meta: %d %s", rec.Code, rec.Body.String())
	}
	var meta Meta
	_ = json.Unmarshal(rec.Body.Bytes(), &meta)
	if meta.Title != "Alice Smith" || meta.Name != "Alice" || meta.URL != link.URL {
		t.Fatalf("unexpected meta %+v", meta)
	}

	if rec := h.do(http.MethodPost, "/api/share/track/"+link.Token, false, `{"platform":"LinkedIn"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("track: %d %s", rec.Code, rec.Body.String())
	}
	if rec := h.do(http.MethodPost, "/api/share/track/unknown", false, `{"platform":"email"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", rec.Code)
	}

	h.now = link.ExpiresAt
	if rec := h.do(http.MethodGet, "/api/share/meta/"+link.Token, false, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 once expired, got %d", rec.Code)
	}
}

func TestRevokeDisablesSharing(t *testing.T) {
	h := newHarness(t)
	r := h.createResume(t)
	link, _, _ := h.svc.EnsureShare(context.Background(), resumes.Actor{UserID: "user-a"}, r.ID)

	if rec := h.do(http.MethodDelete, "/api/share/"+r.ID, true, ""); rec.Code != http.StatusOK {
		t.Fatalf("revoke: %d %s", rec.Code, rec.Body.String())
	}
	if rec := h.do(http.MethodGet, "/api/share/meta/"+link.Token, false, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected revoked token to be gone, got %d", rec.Code)
	}
	if rec := h.do(http.MethodDelete, "/api/share/missing", true, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing resume, got %d", rec.Code)
	}
}
