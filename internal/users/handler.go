package users

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/validation"
)

// SessionIssuer signs a fresh token pair for a user and records the refresh token.
type SessionIssuer interface {
	IssueSession(ctx context.Context, user User) (auth.Pair, error)
}

type Handler struct {
	Svc      *Service
	Sessions SessionIssuer
}

func NewHandler(svc *Service, sessions SessionIssuer) *Handler {
	return &Handler{Svc: svc, Sessions: sessions}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards middleware.Guards) {
	g := rg.Group("/users")
	g.GET("/:id/avatar", h.avatar)
	g.GET("/profile", guards.Auth, h.profile)
	g.PUT("/profile", guards.Auth, h.updateProfile)
	g.PUT("/password", guards.Auth, h.changePassword)
	g.POST("/profile-picture", guards.Auth, h.uploadPicture)
	g.DELETE("/account", guards.Auth, h.deleteAccount)
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, user.Profile())
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
		return
	}
	user, err := h.Svc.UpdateProfile(c.Request.Context(), middleware.UserIDFromContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, user.Profile())
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please provide current and new password", nil)
		return
	}
	user, err := h.Svc.ChangePassword(c.Request.Context(), middleware.UserIDFromContext(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(c, err)
		return
	}
	pair, err := h.Sessions.IssueSession(c.Request.Context(), user)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to issue tokens", nil)
		return
	}
	respond.OK(c, gin.H{
		"message":      "Password updated successfully",
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

func (h *Handler) uploadPicture(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxAvatarBytes+(1<<20))
	fileHeader, err := c.FormFile("profilePicture")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, "File too large. Maximum size is 5MB", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please upload an image", nil)
		return
	}
	if fileHeader.Size > MaxAvatarBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, "File too large. Maximum size is 5MB", nil)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please upload an image", nil)
		return
	}
	defer f.Close()

	var sniff [512]byte
	n, _ := io.ReadFull(f, sniff[:])
	contentType := http.DetectContentType(sniff[:n])
	if !allowedImageTypes[strings.ToLower(contentType)] {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Only JPEG, PNG, GIF and WebP images are allowed", nil)
		return
	}

	user, err := h.Svc.SetAvatar(c.Request.Context(), middleware.UserIDFromContext(c), io.MultiReader(bytes.NewReader(sniff[:n]), f))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"profilePicture": user.ProfilePicture})
}

func (h *Handler) avatar(c *gin.Context) {
	rc, err := h.Svc.OpenAvatar(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "public, max-age=300")
	c.DataFromReader(http.StatusOK, -1, "image/jpeg", rc, nil)
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.Svc.DeleteAccount(c.Request.Context(), middleware.UserIDFromContext(c)); err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"message": "Account deleted successfully"})
}

func writeError(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Validation(c, err)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "User not found", nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, respond.CodeConflict, "Email already in use", nil)
	case errors.Is(err, ErrNothingToUpdate):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please provide name or email to update", nil)
	case errors.Is(err, ErrSocialAccount):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Cannot change password for social login accounts", nil)
	case errors.Is(err, ErrWrongPassword):
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Current password is incorrect", nil)
	case errors.Is(err, ErrInvalidImage):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Could not read image", nil)
	default:
		telemetry.Error("users.request_failed", map[string]any{"error": err.Error(), "path": c.FullPath()})
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Unexpected server error", nil)
	}
}
