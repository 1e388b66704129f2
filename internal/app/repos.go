package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/actionsummary-backend/internal/data/repos"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type Repos struct {
	Content repos.ContentItemRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Content: repos.NewContentItemRepo(db, log),
	}
}
