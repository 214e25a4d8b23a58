package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (auth.Claims, error)
}

// AdminChecker resolves the current admin flag of a user from storage.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Auth requires a valid bearer token and stores the identity in context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return authenticate(verifier, true)
}

// OptionalAuth stores the identity when a bearer token is present and lets
// anonymous requests through. A malformed or expired token is still rejected.
func OptionalAuth(verifier TokenVerifier) gin.HandlerFunc {
	return authenticate(verifier, false)
}

func authenticate(verifier TokenVerifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			if required {
				respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Not authorized, no token", nil)
				return
			}
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
		claims, err := verifier.VerifyAccess(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Not authorized, token failed", nil)
			return
		}
		c.Set(userIDKey, claims.Subject)
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		if claims.Name != "" {
			c.Set(userNameKey, claims.Name)
		}
		c.Next()
	}
}

// RequireAdmin must run after Auth. The flag is read from storage on every
// request so a revoked admin loses access before the token expires.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserIDFromContext(c)
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Not authorized, no token", nil)
			return
		}
		ok, err := checker.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			telemetry.Error("admin.check_failed", map[string]any{"user_id": userID, "error": err.Error()})
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Unexpected server error", nil)
			return
		}
		if !ok {
			respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "Access denied. Admin privileges required.", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userNameKey)
}
