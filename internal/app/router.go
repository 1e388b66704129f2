package app

import (
	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/actionsummary-backend/internal/http"
	"github.com/yungbote/actionsummary-backend/internal/observability"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

func routerConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) apphttp.RouterConfig {
	return apphttp.RouterConfig{
		Log:                  log,
		Metrics:              metrics,
		ServiceName:          cfg.ServiceName,
		AuthMiddleware:       middleware.Auth,
		ActionSummaryHandler: handlers.ActionSummary,
		ContentHandler:       handlers.Content,
		HealthHandler:        handlers.Health,
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return apphttp.NewRouter(routerConfig(log, cfg, metrics, handlers, middleware))
}
