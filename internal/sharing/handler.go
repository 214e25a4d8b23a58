package sharing

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/resumes"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/resume/share"
)

// Handler serves the social sharing endpoints on top of the resume service.
type Handler struct {
	Resumes *resumes.Service
}

func NewHandler(svc *resumes.Service) *Handler {
	return &Handler{Resumes: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards middleware.Guards) {
	g := rg.Group("/share")
	g.GET("/meta/:token", h.meta)
	g.POST("/track/:token", h.track)
	g.GET("/:resumeId/links", guards.Auth, h.links)
	g.DELETE("/:resumeId", guards.Auth, h.revoke)
}

type linksResponse struct {
	ShareURL   string    `json:"shareUrl"`
	ShareToken string    `json:"shareToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Links      Links     `json:"links"`
}

func (h *Handler) links(c *gin.Context) {
	id := c.Param("resumeId")
	c.Set("resumeId", id)
	link, r, err := h.Resumes.EnsureShare(c.Request.Context(), resumes.ActorFromContext(c), id)
	if err != nil {
		resumes.WriteError(c, err)
		return
	}
	respond.OK(c, linksResponse{
		ShareURL:   link.URL,
		ShareToken: link.Token,
		ExpiresAt:  link.ExpiresAt,
		Links:      BuildLinks(r, link.URL),
	})
}

func (h *Handler) meta(c *gin.Context) {
	shared, err := h.Resumes.ResolveShare(c.Request.Context(), c.Param("token"))
	if errors.Is(err, resumes.ErrNotFound) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Resume not found or expired", nil)
		return
	}
	if err != nil {
		resumes.WriteError(c, err)
		return
	}
	token := ""
	if shared.ShareToken != nil {
		token = *shared.ShareToken
	}
	respond.OK(c, BuildMeta(shared.Resume, shared.Owner.Name, share.URL(h.Resumes.PublicAppURL, token)))
}

type trackRequest struct {
	Platform string `json:"platform"`
}

func (h *Handler) track(c *gin.Context) {
	var req trackRequest
	// An empty or malformed body still counts as a share of unknown origin.
	_ = c.ShouldBindJSON(&req)

	shared, err := h.Resumes.ResolveShare(c.Request.Context(), c.Param("token"))
	if errors.Is(err, resumes.ErrNotFound) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Resume not found", nil)
		return
	}
	if err != nil {
		resumes.WriteError(c, err)
		return
	}
	platform := NormalizePlatform(req.Platform)
	metrics.IncShareTracked(platform)
	telemetry.Info("share.tracked", map[string]any{
		"resume_id":  shared.ID,
		"platform":   platform,
		"request_id": middleware.RequestIDFromContext(c),
	})
	respond.NoContent(c)
}

func (h *Handler) revoke(c *gin.Context) {
	id := c.Param("resumeId")
	c.Set("resumeId", id)
	if err := h.Resumes.RevokeShare(c.Request.Context(), resumes.ActorFromContext(c), id); err != nil {
		resumes.WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"message": "Sharing disabled for this resume"})
}
