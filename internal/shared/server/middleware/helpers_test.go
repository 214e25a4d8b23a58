package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/telemetry"
)

type stubVerifier struct {
	tokens map[string]auth.Claims
}

func (s stubVerifier) VerifyAccess(token string) (auth.Claims, error) {
	claims, ok := s.tokens[token]
	if !ok {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return claims, nil
}

func newStubVerifier() stubVerifier {
	claims := auth.Claims{Email: "jane@example.com", Name: "Jane", Kind: auth.KindAccess}
	claims.Subject = "user-1"
	return stubVerifier{tokens: map[string]auth.Claims{"good": claims}}
}

type stubAdmins map[string]bool

func (s stubAdmins) IsAdmin(_ context.Context, userID string) (bool, error) {
	if userID == "broken" {
		return false, errors.New("db down")
	}
	return s[userID], nil
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	t.Cleanup(restore)
	return &buf
}

func lastLogLine(t *testing.T, buf *bytes.Buffer, msg string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		var payload map[string]any
		if err := json.Unmarshal([]byte(lines[i]), &payload); err != nil {
			continue
		}
		if payload["msg"] == msg {
			return payload
		}
	}
	t.Fatalf("no %q log line in %q", msg, buf.String())
	return nil
}
