package app

import (
	"fmt"

	asmod "github.com/yungbote/actionsummary-backend/internal/modules/actionsummary"
	"github.com/yungbote/actionsummary-backend/internal/modules/actionsummary/steps"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
	"github.com/yungbote/actionsummary-backend/internal/services"
)

type Services struct {
	Auth          services.AuthService
	ActionSummary services.ActionSummaryService
	Notifier      services.ActionSummaryNotifier
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	template, err := steps.LoadDefaultTemplate(cfg.TemplatePath)
	if err != nil {
		return Services{}, fmt.Errorf("load default analysis template: %w", err)
	}

	deps := asmod.UsecasesDeps{
		Log:                log,
		CleanupConcurrency: cfg.CleanupMaxConcurrency,
		DefaultTemplate:    template,
	}
	// Assigned conditionally so a disabled provider stays a nil interface.
	if clients.Bucket != nil {
		deps.Objects = clients.Bucket
	}
	if clients.Search != nil {
		deps.Search = clients.Search
	}

	notifier := services.NewActionSummaryNotifier(log, clients.Bus)
	summary := services.NewActionSummaryService(services.ActionSummaryServiceDeps{
		Log:      log,
		Content:  reposet.Content,
		Worker:   clients.Worker,
		Usecases: asmod.New(deps),
		Access:   services.NewOrgAccessPolicy(),
		Notifier: notifier,
	})

	return Services{
		Auth:          services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		ActionSummary: summary,
		Notifier:      notifier,
	}, nil
}
