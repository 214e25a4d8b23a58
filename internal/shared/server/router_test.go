package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server/middleware"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(rg *gin.RouterGroup, _ middleware.Guards) {
	rg.GET("/auth/ping", func(c *gin.Context) { c.String(http.StatusOK, RateGroupFor(c)) })
	rg.GET("/resumes/:id/pdf", func(c *gin.Context) { c.String(http.StatusOK, RateGroupFor(c)) })
	rg.GET("/resumes/:id", func(c *gin.Context) { c.String(http.StatusOK, RateGroupFor(c)) })
}

func newTestRouter(authPerMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterDeps{
		Config: config.Config{
			Env:        "dev",
			RateLimits: config.RateLimits{AuthPerMinute: authPerMinute, ExportPerMinute: 50, DefaultPerMinute: 50},
		},
		Handlers: []RouteRegistrar{pingHandler{}},
	})
}

func TestRateGroups(t *testing.T) {
	r := newTestRouter(50)
	cases := map[string]string{
		"/api/auth/ping":     RateGroupAuth,
		"/api/resumes/1/pdf": RateGroupExport,
		"/api/resumes/1":     RateGroupDefault,
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Body.String() != want {
			t.Fatalf("%s: expected %s, got %q", path, want, rec.Body.String())
		}
	}
}

func TestAuthGroupIsLimited(t *testing.T) {
	r := newTestRouter(2)
	var last int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/ping", nil))
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %d", last)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/resumes/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("default group should be unaffected, got %d", rec.Code)
	}
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	r := newTestRouter(50)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if Addr("9090") != ":9090" || Addr(":1") != ":1" || Addr("") != ":8080" {
		t.Fatalf("unexpected Addr normalization")
	}
}
