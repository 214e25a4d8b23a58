package resumes

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/telemetry"
	"resume-builder/resume/access"
)

func TestWriteErrorLogsUnexpectedFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&logs))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/resumes/r1", nil)
	WriteError(c, fmt.Errorf("get resume: %w", errors.New("pq: connection refused to 10.0.0.5")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("internal detail leaked to client: %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "pq: connection refused to 10.0.0.5") || !strings.Contains(logs.String(), "resumes.request_failed") {
		t.Fatalf("expected error detail in logs, got %s", logs.String())
	}
}

func TestWriteErrorDoesNotLogClientErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&logs))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/api/resumes/r1", nil)
	WriteError(c, access.ErrForbidden)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if strings.Contains(logs.String(), "resumes.request_failed") {
		t.Fatalf("unexpected failure log: %s", logs.String())
	}
}
