package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/actionsummary-backend/internal/domain/media"
)

func SeedContentItem(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, collectionID *uuid.UUID, actionSummary string) *types.ContentItem {
	tb.Helper()
	item := &types.ContentItem{
		ID:             uuid.New(),
		OrganizationID: orgID,
		CollectionID:   collectionID,
		OwnerUserID:    uuid.New(),
		Title:          "clip.mp4",
		StorageKey:     "uploads/clip.mp4",
		StorageURL:     "gs://videos/uploads/clip.mp4",
		UploadMetadata: datatypes.JSON([]byte(`{"segment_length": 12}`)),
	}
	if actionSummary != "" {
		item.ActionSummary = datatypes.JSON([]byte(actionSummary))
	}
	if err := tx.WithContext(ctx).Create(item).Error; err != nil {
		tb.Fatalf("seed content item: %v", err)
	}
	return item
}
