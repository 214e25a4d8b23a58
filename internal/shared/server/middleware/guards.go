package middleware

import "github.com/gin-gonic/gin"

// Guards bundles the per-route middleware that feature handlers attach.
type Guards struct {
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	Admin        gin.HandlerFunc
}

// NewGuards builds the standard guard set.
func NewGuards(verifier TokenVerifier, admins AdminChecker) Guards {
	return Guards{
		Auth:         Auth(verifier),
		OptionalAuth: OptionalAuth(verifier),
		Admin:        RequireAdmin(admins),
	}
}
