package app

import (
	httpH "github.com/yungbote/actionsummary-backend/internal/http/handlers"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type Handlers struct {
	ActionSummary *httpH.ActionSummaryHandler
	Content       *httpH.ContentHandler
	Health        *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, services Services, db httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		ActionSummary: httpH.NewActionSummaryHandler(log, services.ActionSummary),
		Content:       httpH.NewContentHandler(log, services.ActionSummary),
		Health:        httpH.NewHealthHandler(db),
	}
}
