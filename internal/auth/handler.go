package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/validation"
	"resume-builder/internal/users"
)

type Handler struct {
	Svc   *Service
	OAuth *OAuthFlow
	// UIRedirectURL receives the tokens after the browser flow completes.
	UIRedirectURL string
	// ExposeResetToken echoes reset tokens in responses for local development.
	ExposeResetToken bool
}

func NewHandler(svc *Service, oauth *OAuthFlow, uiRedirectURL string, exposeResetToken bool) *Handler {
	return &Handler{Svc: svc, OAuth: oauth, UIRedirectURL: uiRedirectURL, ExposeResetToken: exposeResetToken}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards middleware.Guards) {
	g := rg.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/google", h.google)
	g.GET("/google/start", h.googleStart)
	g.GET("/google/callback", h.googleCallback)
	g.POST("/refresh-token", h.refresh)
	g.POST("/logout", guards.Auth, h.logout)
	g.GET("/me", guards.Auth, h.me)
	g.POST("/forgot-password", h.forgotPassword)
	g.PUT("/reset-password/:token", h.resetPassword)
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
		return
	}
	session, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Created(c, session)
}

func (h *Handler) login(c *gin.Context) {
	var req LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
		return
	}
	session, err := h.Svc.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, session)
}

type googleRequest struct {
	IDToken string `json:"idToken"`
}

func (h *Handler) google(c *gin.Context) {
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
		return
	}
	session, err := h.Svc.GoogleSignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, session)
}

func (h *Handler) googleStart(c *gin.Context) {
	if !h.OAuth.Configured() {
		writeError(c, ErrGoogleNotConfigured)
		return
	}
	target, err := h.OAuth.Start(c.Writer, c.Request)
	if err != nil {
		telemetry.Error("auth.google_start_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Could not start Google sign-in", nil)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *Handler) googleCallback(c *gin.Context) {
	if !h.OAuth.Configured() {
		writeError(c, ErrGoogleNotConfigured)
		return
	}
	profile, err := h.OAuth.Finish(c.Writer, c.Request)
	if errors.Is(err, ErrInvalidState) {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid OAuth state", nil)
		return
	}
	if err != nil {
		telemetry.Warn("auth.google_callback_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Google sign-in failed", nil)
		return
	}
	session, err := h.Svc.SignInWithGoogle(c.Request.Context(), profile)
	if err != nil {
		writeError(c, err)
		return
	}
	target, err := CallbackURL(h.UIRedirectURL, session)
	if err != nil {
		respond.OK(c, session)
		return
	}
	c.Redirect(http.StatusFound, target)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Refresh token not provided", nil)
		return
	}
	access, err := h.Svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"accessToken": access})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.UserIDFromContext(c)); err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) me(c *gin.Context) {
	profile, err := h.Svc.Me(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, profile)
}

type forgotRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
		return
	}
	token, err := h.Svc.ForgotPassword(c.Request.Context(), req.Email)
	if errors.Is(err, users.ErrNotFound) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "No user with that email", nil)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	body := gin.H{"message": "Password reset email sent"}
	if h.ExposeResetToken {
		body["resetToken"] = token
	}
	respond.OK(c, body)
}

type resetRequest struct {
	Password string `json:"password"`
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
		return
	}
	session, err := h.Svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, session)
}

func writeError(c *gin.Context, err error) {
	var (
		verr     *validation.Error
		provider *ProviderError
	)
	switch {
	case errors.As(err, &verr):
		respond.Validation(c, err)
	case errors.As(err, &provider):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please login using "+provider.Provider, nil)
	case errors.Is(err, users.ErrEmailTaken):
		respond.Error(c, http.StatusConflict, respond.CodeConflict, "User already exists", nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, ErrInvalidRefreshToken):
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Invalid refresh token", nil)
	case errors.Is(err, ErrInvalidResetToken):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid or expired token", nil)
	case errors.Is(err, ErrGoogleNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, respond.CodeInternal, "Google sign-in is not configured", nil)
	case errors.Is(err, users.ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "User not found", nil)
	default:
		telemetry.Error("auth.request_failed", map[string]any{"error": err.Error(), "path": c.FullPath()})
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Unexpected server error", nil)
	}
}
