package users

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/telemetry"
)

func TestWriteErrorLogsUnexpectedFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&logs))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	writeError(c, errors.New("pq: connection refused to 10.0.0.5"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("internal detail leaked to client: %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "users.request_failed") || !strings.Contains(logs.String(), "connection refused to 10.0.0.5") {
		t.Fatalf("expected error detail in logs, got %s", logs.String())
	}
}

func TestWriteErrorMapsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/api/users/profile", nil)
	writeError(c, ErrEmailTaken)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
