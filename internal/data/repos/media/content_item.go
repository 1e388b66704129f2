package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/actionsummary-backend/internal/domain/media"
	"github.com/yungbote/actionsummary-backend/internal/platform/dbctx"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type ContentItemRepo interface {
	Create(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentItem, error)
	GetByCollectionID(dbc dbctx.Context, collectionID uuid.UUID) ([]*types.ContentItem, error)
	// ListAfter pages through live rows in id order, starting after afterID.
	ListAfter(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.ContentItem, error)
	UpdateActionSummary(dbc dbctx.Context, id uuid.UUID, doc datatypes.JSON) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	repoLog := baseLog.With("repo", "ContentItemRepo")
	return &contentItemRepo{db: db, log: repoLog}
}

func (r *contentItemRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *contentItemRepo) Create(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error) {
	if len(items) == 0 {
		return []*types.ContentItem{}, nil
	}
	if err := r.tx(dbc).Create(&items).Error; err != nil {
		return nil, classify(err)
	}
	return items, nil
}

// GetByID returns nil without error when the row does not exist.
func (r *contentItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error) {
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *contentItemRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentItem, error) {
	var results []*types.ContentItem
	if len(ids) == 0 {
		return results, nil
	}
	if err := r.tx(dbc).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, classify(err)
	}
	return results, nil
}

func (r *contentItemRepo) GetByCollectionID(dbc dbctx.Context, collectionID uuid.UUID) ([]*types.ContentItem, error) {
	var results []*types.ContentItem
	if err := r.tx(dbc).
		Where("collection_id = ?", collectionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, classify(err)
	}
	return results, nil
}

func (r *contentItemRepo) ListAfter(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.ContentItem, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.tx(dbc).Order("id ASC").Limit(limit)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	var results []*types.ContentItem
	if err := q.Find(&results).Error; err != nil {
		return nil, classify(err)
	}
	return results, nil
}

func (r *contentItemRepo) UpdateActionSummary(dbc dbctx.Context, id uuid.UUID, doc datatypes.JSON) error {
	res := r.tx(dbc).
		Model(&types.ContentItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"action_summary": doc,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contentItemRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.tx(dbc).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.ContentItem{}).Error; err != nil {
		return classify(err)
	}
	return nil
}
