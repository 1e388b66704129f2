package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/actionsummary-backend/internal/http/handlers"
	httpMW "github.com/yungbote/actionsummary-backend/internal/http/middleware"
	"github.com/yungbote/actionsummary-backend/internal/observability"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AuthMiddleware *httpMW.AuthMiddleware

	ActionSummaryHandler *httpH.ActionSummaryHandler
	ContentHandler       *httpH.ContentHandler
	HealthHandler        *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "actionsummary-api"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.RequestIdentity())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Instrument(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Action summaries
		if h := cfg.ActionSummaryHandler; h != nil {
			protected.GET("/content/:id/action-summary", h.Get)
			protected.POST("/content/:id/action-summary", h.Create)
			protected.PATCH("/content/:id/action-summary", h.UpdateConfig)
			protected.DELETE("/content/:id/action-summary", h.DeleteRun)
			protected.PUT("/content/:id/action-summary/active", h.SelectActive)
		}

		// Content
		if h := cfg.ContentHandler; h != nil {
			protected.DELETE("/content/:id", h.DeleteContent)
			protected.DELETE("/collections/:id/content", h.DeleteCollectionContent)
		}
	}

	return r
}
