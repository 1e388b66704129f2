package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domain "github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
	"github.com/yungbote/actionsummary-backend/internal/http/response"
	"github.com/yungbote/actionsummary-backend/internal/platform/apierr"
	"github.com/yungbote/actionsummary-backend/internal/platform/dbctx"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
	"github.com/yungbote/actionsummary-backend/internal/services"
)

type ActionSummaryHandler struct {
	log     *logger.Logger
	summary services.ActionSummaryService
}

type ActionSummaryHandlerDeps struct {
	Log     *logger.Logger
	Summary services.ActionSummaryService
}

func NewActionSummaryHandler(log *logger.Logger, summary services.ActionSummaryService) *ActionSummaryHandler {
	return NewActionSummaryHandlerWithDeps(ActionSummaryHandlerDeps{Log: log, Summary: summary})
}

func NewActionSummaryHandlerWithDeps(deps ActionSummaryHandlerDeps) *ActionSummaryHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &ActionSummaryHandler{
		log:     log.With("handler", "ActionSummaryHandler"),
		summary: deps.Summary,
	}
}

type createActionSummaryRequest struct {
	AnalysisTemplate domain.AnalysisTemplate `json:"analysisTemplate"`
	Config           map[string]any          `json:"config"`
	Name             string                  `json:"name"`
}

type updateActionSummaryRequest struct {
	Config map[string]any `json:"config"`
}

type selectActionSummaryRunRequest struct {
	RunID string `json:"runId"`
}

type deleteActionSummaryRunRequest struct {
	RunID           string `json:"runId"`
	ID              string `json:"id"`
	ActionSummaryID string `json:"actionSummaryId"`
}

// GET /api/content/:id/action-summary
func (h *ActionSummaryHandler) Get(c *gin.Context) {
	contentID, ok := contentIDParam(c)
	if !ok {
		return
	}
	meta, err := h.summary.Get(dbctx.Context{Ctx: c.Request.Context()}, contentID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"actionSummary": meta})
}

// POST /api/content/:id/action-summary
func (h *ActionSummaryHandler) Create(c *gin.Context) {
	contentID, ok := contentIDParam(c)
	if !ok {
		return
	}
	var req createActionSummaryRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	res, err := h.summary.Create(dbctx.Context{Ctx: c.Request.Context()}, contentID, services.CreateActionSummaryInput{
		Name:             req.Name,
		AnalysisTemplate: req.AnalysisTemplate,
		Config:           req.Config,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"actionSummary": res.Meta, "run": res.Run})
}

// PATCH /api/content/:id/action-summary
func (h *ActionSummaryHandler) UpdateConfig(c *gin.Context) {
	contentID, ok := contentIDParam(c)
	if !ok {
		return
	}
	var req updateActionSummaryRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	if len(req.Config) == 0 {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation, errors.New("config is required"))
		return
	}
	meta, err := h.summary.UpdateConfig(dbctx.Context{Ctx: c.Request.Context()}, contentID, req.Config)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"actionSummary": meta})
}

// PUT /api/content/:id/action-summary/active
func (h *ActionSummaryHandler) SelectActive(c *gin.Context) {
	contentID, ok := contentIDParam(c)
	if !ok {
		return
	}
	var req selectActionSummaryRunRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	meta, err := h.summary.SelectActive(dbctx.Context{Ctx: c.Request.Context()}, contentID, req.RunID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"actionSummary": meta})
}

// DELETE /api/content/:id/action-summary
//
// The run is taken from ?runId=, then the body, then the active run.
func (h *ActionSummaryHandler) DeleteRun(c *gin.Context) {
	contentID, ok := contentIDParam(c)
	if !ok {
		return
	}
	runID := strings.TrimSpace(c.Query("runId"))
	if runID == "" {
		var req deleteActionSummaryRunRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
			return
		}
		runID = firstNonEmpty(req.RunID, req.ID, req.ActionSummaryID)
	}
	res, err := h.summary.DeleteRun(dbctx.Context{Ctx: c.Request.Context()}, contentID, runID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if res.Cleanup.Failed() > 0 {
		h.log.Warn("action summary run deleted with cleanup failures",
			"content_id", contentID,
			"run_id", res.DeletedRunID,
			"failed", res.Cleanup.Failed(),
		)
	}
	response.RespondOK(c, gin.H{"actionSummary": res.Meta, "deletedRunId": res.DeletedRunID})
}

func contentIDParam(c *gin.Context) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	if raw == "" {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation, errors.New("content id is required"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation, errors.New("invalid content id"))
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON decodes the request body into dst. An empty body leaves
// dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil {
		return nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
