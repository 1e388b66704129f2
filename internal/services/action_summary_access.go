package services

import (
	"github.com/google/uuid"

	types "github.com/yungbote/actionsummary-backend/internal/domain/media"
	"github.com/yungbote/actionsummary-backend/internal/platform/ctxutil"
)

const RoleAdmin = "admin"

// ContentAccessPolicy decides whether the caller may read and modify an item.
// Denied items are reported as not found.
type ContentAccessPolicy interface {
	CanAccess(rd *ctxutil.RequestData, item *types.ContentItem) bool
}

type orgAccessPolicy struct{}

// NewOrgAccessPolicy admits admins, members of the item's organization and
// the item's owner.
func NewOrgAccessPolicy() ContentAccessPolicy { return orgAccessPolicy{} }

func (orgAccessPolicy) CanAccess(rd *ctxutil.RequestData, item *types.ContentItem) bool {
	if rd == nil || item == nil {
		return false
	}
	if rd.HasRole(RoleAdmin) {
		return true
	}
	if rd.OrganizationID != "" && rd.OrganizationID == item.OrganizationID.String() {
		return true
	}
	return rd.UserID != uuid.Nil && rd.UserID == item.OwnerUserID
}
