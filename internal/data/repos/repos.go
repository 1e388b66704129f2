package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/actionsummary-backend/internal/data/repos/media"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type ContentItemRepo = media.ContentItemRepo

var (
	ErrContentNotFound  = media.ErrNotFound
	ErrContentConflict  = media.ErrConflict
	ErrContentRetryable = media.ErrRetryable
)

func NewContentItemRepo(db *gorm.DB, log *logger.Logger) ContentItemRepo {
	return media.NewContentItemRepo(db, log)
}
