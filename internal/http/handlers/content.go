package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/actionsummary-backend/internal/http/response"
	"github.com/yungbote/actionsummary-backend/internal/platform/apierr"
	"github.com/yungbote/actionsummary-backend/internal/platform/dbctx"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
	"github.com/yungbote/actionsummary-backend/internal/services"
)

// ContentHandler deletes whole content items along with everything their
// action summaries reference.
type ContentHandler struct {
	log     *logger.Logger
	summary services.ActionSummaryService
}

func NewContentHandler(log *logger.Logger, summary services.ActionSummaryService) *ContentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ContentHandler{log: log.With("handler", "ContentHandler"), summary: summary}
}

// DELETE /api/content/:id
func (h *ContentHandler) DeleteContent(c *gin.Context) {
	contentID, ok := contentIDParam(c)
	if !ok {
		return
	}
	res, err := h.summary.DeleteContent(dbctx.Context{Ctx: c.Request.Context()}, contentID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deletedContentId": contentID, "cleanup": res.Cleanup})
}

// DELETE /api/collections/:id/content
func (h *ContentHandler) DeleteCollectionContent(c *gin.Context) {
	collectionID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation, errors.New("invalid collection id"))
		return
	}
	res, err := h.summary.DeleteCollection(dbctx.Context{Ctx: c.Request.Context()}, collectionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	ids := res.DeletedContentIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	h.log.Info("collection content deleted", "collection_id", collectionID, "count", len(ids))
	response.RespondOK(c, gin.H{"deletedContentIds": ids, "cleanup": res.Cleanup})
}
