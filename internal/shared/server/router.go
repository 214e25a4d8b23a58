package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "resume-builder/docs" // registers the OpenAPI document served at /swagger/doc.json
	"resume-builder/internal/services/health"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
)

const (
	RateGroupAuth    = "AUTH"
	RateGroupExport  = "EXPORT"
	RateGroupDefault = "DEFAULT"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup, guards middleware.Guards)
}

type RouterDeps struct {
	Config   config.Config
	Guards   middleware.Guards
	Health   *health.Service
	Handlers []RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	r.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logging(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				RateGroupAuth:    middleware.PerMinute(deps.Config.RateLimits.AuthPerMinute),
				RateGroupExport:  middleware.PerMinute(deps.Config.RateLimits.ExportPerMinute),
				RateGroupDefault: middleware.PerMinute(deps.Config.RateLimits.DefaultPerMinute),
			},
			DefaultGroup: RateGroupDefault,
			GroupFor:     RateGroupFor,
		}),
	)

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Route not found", nil)
	})
	r.GET("/metrics", metrics.Handler())
	r.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		st := deps.Health.Check(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api, deps.Guards)
		}
	}
	return r
}

// RateGroupFor buckets sign-in traffic and document exports separately from everything else.
func RateGroupFor(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	switch {
	case strings.HasPrefix(path, "/api/auth/"):
		return RateGroupAuth
	case strings.HasPrefix(path, "/api/resumes/") && (strings.HasSuffix(path, "/pdf") || strings.HasSuffix(path, "/docx")):
		return RateGroupExport
	default:
		return RateGroupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
