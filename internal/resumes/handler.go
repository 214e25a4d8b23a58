package resumes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/validation"
	"resume-builder/resume/access"
	"resume-builder/resume/model"
	"resume-builder/resume/render"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards middleware.Guards) {
	g := rg.Group("/resumes")
	g.GET("", guards.Auth, h.list)
	g.POST("", guards.Auth, h.create)
	g.POST("/upload", guards.Auth, h.upload)
	g.GET("/shared/:token", h.shared)
	g.GET("/:id", guards.OptionalAuth, h.get)
	g.PUT("/:id", guards.Auth, h.update)
	g.DELETE("/:id", guards.Auth, h.delete)
	g.GET("/:id/pdf", guards.OptionalAuth, h.export(render.FormatPDF))
	g.GET("/:id/docx", guards.OptionalAuth, h.export(render.FormatDOCX))
	g.GET("/:id/original", guards.OptionalAuth, h.original)
	g.PUT("/:id/template", guards.Auth, h.template)
	g.POST("/:id/share", guards.Auth, h.share)
}

// ActorFromContext builds the caller from the auth middleware's context keys.
func ActorFromContext(c *gin.Context) Actor {
	return Actor{
		UserID: middleware.UserIDFromContext(c),
		Name:   middleware.UserNameFromContext(c),
		Email:  middleware.UserEmailFromContext(c),
	}
}

func resumeID(c *gin.Context) string {
	id := c.Param("id")
	c.Set("resumeId", id)
	return id
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), ActorFromContext(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, list)
}

func (h *Handler) create(c *gin.Context) {
	var in model.Resume
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid resume body: "+err.Error(), nil)
		return
	}
	created, err := h.Svc.Create(c.Request.Context(), ActorFromContext(c), in)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.Created(c, created)
}

func (h *Handler) get(c *gin.Context) {
	r, err := h.Svc.Get(c.Request.Context(), ActorFromContext(c), resumeID(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, r)
}

func (h *Handler) update(c *gin.Context) {
	var patch model.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
		return
	}
	r, err := h.Svc.Update(c.Request.Context(), ActorFromContext(c), resumeID(c), patch)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, r)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), ActorFromContext(c), resumeID(c)); err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"message": "Resume deleted successfully"})
}

func (h *Handler) export(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := h.Svc.Export(c.Request.Context(), ActorFromContext(c), resumeID(c), format)
		if err != nil {
			WriteError(c, err)
			return
		}
		respond.Attachment(c, out.ContentType, out.Filename, out.Body)
	}
}

func (h *Handler) original(c *gin.Context) {
	rc, file, contentType, err := h.Svc.OpenOriginal(c.Request.Context(), ActorFromContext(c), resumeID(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	defer rc.Close()
	respond.Inline(c, contentType, file.Filename, rc)
}

type templateRequest struct {
	Template model.Template `json:"template"`
}

func (h *Handler) template(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
		return
	}
	r, err := h.Svc.SetTemplate(c.Request.Context(), ActorFromContext(c), resumeID(c), req.Template)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"template": r.Template})
}

func (h *Handler) share(c *gin.Context) {
	link, err := h.Svc.Share(c.Request.Context(), ActorFromContext(c), resumeID(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, link)
}

func (h *Handler) shared(c *gin.Context) {
	r, err := h.Svc.GetShared(c.Request.Context(), c.Param("token"))
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Resume not found or share link expired", nil)
		return
	}
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, r)
}

func (h *Handler) upload(c *gin.Context) {
	limit := h.Svc.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+(1<<20))
	fileHeader, err := c.FormFile("resume")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(c, ErrFileTooLarge)
			return
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please upload a resume file", nil)
		return
	}
	if fileHeader.Size > limit {
		WriteError(c, ErrFileTooLarge)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please upload a resume file", nil)
		return
	}
	defer f.Close()

	r, err := h.Svc.Upload(c.Request.Context(), ActorFromContext(c), UploadInput{
		Filename: fileHeader.Filename,
		Title:    c.PostForm("title"),
		Template: model.Template(strings.TrimSpace(c.PostForm("template"))),
		Body:     f,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.Created(c, r)
}

// WriteError maps resume errors onto the shared error envelope.
func WriteError(c *gin.Context, err error) {
	var verr *validation.Error
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &verr):
		respond.Validation(c, err)
	case errors.As(err, &syntaxErr):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid JSON body", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Resume not found", nil)
	case errors.Is(err, access.ErrForbidden):
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "Not authorized to access this resume", nil)
	case errors.Is(err, ErrUnsupportedFile):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, ErrUnsupportedFile.Error(), nil)
	case errors.Is(err, ErrFileTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, "File too large. Maximum size is 10MB", nil)
	case errors.Is(err, ErrNoOriginalFile):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "No original file for this resume", nil)
	case errors.Is(err, ErrUnknownFormat):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Unknown export format", nil)
	case errors.Is(err, render.ErrRender):
		telemetry.Error("resumes.render_failed", map[string]any{"error": err.Error(), "path": c.FullPath()})
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to generate document", nil)
	default:
		telemetry.Error("resumes.request_failed", map[string]any{"error": err.Error(), "path": c.FullPath()})
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Unexpected server error", nil)
	}
}
