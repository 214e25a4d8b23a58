package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.Any("/x", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userId": UserIDFromContext(c),
			"email":  UserEmailFromContext(c),
			"name":   UserNameFromContext(c),
		})
	})
	return router
}

func doAuth(router *gin.Engine, method, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	captureLogs(t)
	router := newAuthRouter(Auth(newStubVerifier()))

	for _, header := range []string{"", "Bearer nope", "Basic good"} {
		resp := doAuth(router, http.MethodGet, header)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, resp.Code)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Code != "unauthorized" {
			t.Fatalf("expected unauthorized code, got %q", body.Error.Code)
		}
	}
}

func TestAuthSetsIdentity(t *testing.T) {
	router := newAuthRouter(Auth(newStubVerifier()))
	resp := doAuth(router, http.MethodGet, "Bearer good")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &body)
	if body["userId"] != "user-1" || body["email"] != "jane@example.com" || body["name"] != "Jane" {
		t.Fatalf("unexpected identity %v", body)
	}
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router := newAuthRouter(Auth(newStubVerifier()))
	resp := doAuth(router, http.MethodOptions, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected OPTIONS to pass, got %d", resp.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	captureLogs(t)
	router := newAuthRouter(OptionalAuth(newStubVerifier()))

	resp := doAuth(router, http.MethodGet, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("anonymous: expected 200, got %d", resp.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &body)
	if body["userId"] != "" {
		t.Fatalf("expected anonymous principal, got %q", body["userId"])
	}

	resp = doAuth(router, http.MethodGet, "Bearer good")
	_ = json.Unmarshal(resp.Body.Bytes(), &body)
	if body["userId"] != "user-1" {
		t.Fatalf("expected identity from optional token, got %v", body)
	}

	if resp := doAuth(router, http.MethodGet, "Bearer expired"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token: expected 401, got %d", resp.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	captureLogs(t)
	admins := stubAdmins{"user-1": true}
	router := newAuthRouter(Auth(newStubVerifier()), RequireAdmin(admins))
	if resp := doAuth(router, http.MethodGet, "Bearer good"); resp.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", resp.Code)
	}

	admins["user-1"] = false
	if resp := doAuth(router, http.MethodGet, "Bearer good"); resp.Code != http.StatusForbidden {
		t.Fatalf("demoted admin: expected 403, got %d", resp.Code)
	}

	verifier := newStubVerifier()
	broken := verifier.tokens["good"]
	broken.Subject = "broken"
	verifier.tokens["broken"] = broken
	router = newAuthRouter(Auth(verifier), RequireAdmin(admins))
	if resp := doAuth(router, http.MethodGet, "Bearer broken"); resp.Code != http.StatusInternalServerError {
		t.Fatalf("lookup failure: expected 500, got %d", resp.Code)
	}
}
