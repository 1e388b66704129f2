package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentItem is an uploaded video. ActionSummary holds the action-summary
// document as stored; it is only interpreted after normalization.
type ContentItem struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	CollectionID   *uuid.UUID `gorm:"type:uuid;index" json:"collection_id,omitempty"`
	OwnerUserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_user_id"`

	Title      string `gorm:"column:title" json:"title"`
	StorageKey string `gorm:"column:storage_key" json:"storage_key"`
	StorageURL string `gorm:"column:storage_url" json:"storage_url"`

	OrganizationName string `gorm:"column:organization_name" json:"organization_name,omitempty"`
	CollectionName   string `gorm:"column:collection_name" json:"collection_name,omitempty"`

	// Processing options captured at upload time.
	UploadMetadata datatypes.JSON `gorm:"column:upload_metadata;type:jsonb" json:"upload_metadata,omitempty"`
	ActionSummary  datatypes.JSON `gorm:"column:action_summary;type:jsonb" json:"action_summary,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentItem) TableName() string { return "content_item" }

func (c *ContentItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CollectionIDString is "" for items outside any collection.
func (c *ContentItem) CollectionIDString() string {
	if c == nil || c.CollectionID == nil || *c.CollectionID == uuid.Nil {
		return ""
	}
	return c.CollectionID.String()
}
