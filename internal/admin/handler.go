package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/validation"
	"resume-builder/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the admin area. Every route requires an admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards middleware.Guards) {
	g := rg.Group("/admin", guards.Auth, guards.Admin)
	g.GET("/stats", h.stats)
	g.GET("/users", h.listUsers)
	g.GET("/users/:id", h.getUser)
	g.PUT("/users/:id", h.updateUser)
	g.DELETE("/users/:id", h.deleteUser)
}

func (h *Handler) listUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))
	out, err := h.Svc.ListUsers(c.Request.Context(), page, limit, c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) stats(c *gin.Context) {
	out, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) getUser(c *gin.Context) {
	out, err := h.Svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) updateUser(c *gin.Context) {
	var req UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid request body", nil)
		return
	}
	user, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	telemetry.Info("admin.user_updated", map[string]any{
		"admin_id": middleware.UserIDFromContext(c),
		"user_id":  user.ID,
	})
	respond.OK(c, gin.H{"user": user.Profile()})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.DeleteUser(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	telemetry.Info("admin.user_deleted", map[string]any{
		"admin_id": middleware.UserIDFromContext(c),
		"user_id":  id,
	})
	respond.OK(c, gin.H{"message": "User and associated data deleted successfully"})
}

func writeError(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Validation(c, err)
	case errors.Is(err, users.ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "User not found", nil)
	case errors.Is(err, users.ErrEmailTaken):
		respond.Error(c, http.StatusConflict, respond.CodeConflict, "Email already in use", nil)
	case errors.Is(err, ErrSelfDelete):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Cannot delete your own account", nil)
	case errors.Is(err, ErrNothingToUpdate):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please provide name, email or isAdmin to update", nil)
	default:
		telemetry.Error("admin.request_failed", map[string]any{"error": err.Error(), "path": c.FullPath()})
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Unexpected server error", nil)
	}
}
