package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/actionsummary-backend/internal/domain/media"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&media.ContentItem{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() != DriverPostgres {
		return nil
	}
	// content_item: collection listings skip deleted rows
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_content_item_collection_live
		ON content_item(collection_id)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_content_item_collection_live: %w", err)
	}
	return nil
}
