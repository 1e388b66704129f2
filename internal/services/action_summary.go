package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/actionsummary-backend/internal/data/repos"
	domain "github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
	types "github.com/yungbote/actionsummary-backend/internal/domain/media"
	asmod "github.com/yungbote/actionsummary-backend/internal/modules/actionsummary"
	"github.com/yungbote/actionsummary-backend/internal/observability"
	"github.com/yungbote/actionsummary-backend/internal/platform/analysisworker"
	"github.com/yungbote/actionsummary-backend/internal/platform/apierr"
	"github.com/yungbote/actionsummary-backend/internal/platform/ctxutil"
	"github.com/yungbote/actionsummary-backend/internal/platform/dbctx"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

// ActionSummaryWorker runs the external analysis job synchronously.
type ActionSummaryWorker interface {
	RunActionSummary(ctx context.Context, req analysisworker.ActionSummaryRequest) (*analysisworker.ActionSummaryResponse, error)
}

type CreateActionSummaryInput struct {
	Name             string
	AnalysisTemplate domain.AnalysisTemplate
	Config           map[string]any
}

type CreateActionSummaryResult struct {
	Meta domain.Meta
	Run  domain.Run
}

type DeleteActionSummaryRunResult struct {
	Meta         domain.Meta
	DeletedRunID string
	Cleanup      asmod.CleanupReport
}

type DeleteContentResult struct {
	DeletedContentIDs []uuid.UUID
	Cleanup           asmod.CleanupReport
}

type ActionSummaryService interface {
	Get(dbc dbctx.Context, contentID uuid.UUID) (*domain.Meta, error)
	Create(dbc dbctx.Context, contentID uuid.UUID, in CreateActionSummaryInput) (*CreateActionSummaryResult, error)
	UpdateConfig(dbc dbctx.Context, contentID uuid.UUID, override map[string]any) (*domain.Meta, error)
	SelectActive(dbc dbctx.Context, contentID uuid.UUID, runID string) (*domain.Meta, error)
	// DeleteRun removes runID, or the active run when runID is empty.
	DeleteRun(dbc dbctx.Context, contentID uuid.UUID, runID string) (*DeleteActionSummaryRunResult, error)
	DeleteContent(dbc dbctx.Context, contentID uuid.UUID) (*DeleteContentResult, error)
	DeleteCollection(dbc dbctx.Context, collectionID uuid.UUID) (*DeleteContentResult, error)
}

type ActionSummaryServiceDeps struct {
	Log      *logger.Logger
	Content  repos.ContentItemRepo
	Worker   ActionSummaryWorker
	Usecases asmod.Usecases
	Access   ContentAccessPolicy
	Notifier ActionSummaryNotifier

	Now   func() time.Time
	NewID func() string
}

type actionSummaryService struct {
	log      *logger.Logger
	content  repos.ContentItemRepo
	worker   ActionSummaryWorker
	uc       asmod.Usecases
	access   ContentAccessPolicy
	notifier ActionSummaryNotifier
	now      func() time.Time
	newID    func() string
}

func NewActionSummaryService(deps ActionSummaryServiceDeps) ActionSummaryService {
	if deps.Access == nil {
		deps.Access = NewOrgAccessPolicy()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.NewString() }
	}
	return &actionSummaryService{
		log:      deps.Log.With("service", "ActionSummaryService"),
		content:  deps.Content,
		worker:   deps.Worker,
		uc:       deps.Usecases,
		access:   deps.Access,
		notifier: deps.Notifier,
		now:      deps.Now,
		newID:    deps.NewID,
	}
}

func (s *actionSummaryService) Get(dbc dbctx.Context, contentID uuid.UUID) (*domain.Meta, error) {
	item, err := s.load(dbc, contentID)
	if err != nil {
		return nil, err
	}
	meta, changed := s.uc.Normalize([]byte(item.ActionSummary))
	if changed {
		if err := s.persist(dbc, item, &meta); err != nil {
			s.log.Warn("persist normalized action summary failed", "content_id", item.ID, "error", err)
		}
	}
	return &meta, nil
}

func (s *actionSummaryService) Create(dbc dbctx.Context, contentID uuid.UUID, in CreateActionSummaryInput) (*CreateActionSummaryResult, error) {
	item, err := s.load(dbc, contentID)
	if err != nil {
		return nil, err
	}
	meta, _ := s.uc.Normalize([]byte(item.ActionSummary))

	source := videoSource(&meta, item)
	if source == "" {
		return nil, apierr.Validation("content %s has no stored video to analyze", item.ID)
	}

	// Submitted work finishes even if the caller goes away.
	wdbc := dbctx.Context{Ctx: context.WithoutCancel(ctxutil.Default(dbc.Ctx)), Tx: dbc.Tx}

	cfg := s.uc.ResolveConfig(&meta, uploadConfig(item), in.Config)
	template := s.uc.Template(in.AnalysisTemplate, &meta)
	requestRef := s.uc.ManifestReference(&meta)
	filters := &domain.Filters{
		OrganizationID: item.OrganizationID.String(),
		CollectionID:   item.CollectionIDString(),
		ContentID:      item.ID.String(),
	}

	requestedAt := s.timestamp()
	meta.Status = domain.StatusProcessing
	meta.Error = ""
	meta.RequestedAt = requestedAt
	if err := s.persist(wdbc, item, &meta); err != nil {
		return nil, err
	}
	s.notify(wdbc.Ctx, item, &meta)

	req := s.workerRequest(dbc.Ctx, item, source, requestRef, cfg, template)
	s.log.Info("submitting action summary",
		"content_id", item.ID,
		"video", source,
		"manifest", requestRef,
		"skip_preprocess", cfg.SkipPreprocess,
	)
	spanCtx, span := observability.StartSpan(wdbc.Ctx, "actionsummary.worker.run",
		observability.AttrContentID.String(item.ID.String()),
		observability.AttrOrganizationID.String(item.OrganizationID.String()),
		observability.AttrSkipPreprocess.Bool(cfg.SkipPreprocess),
	)
	started := s.now()
	resp, werr := s.worker.RunActionSummary(spanCtx, req)
	if werr != nil {
		failure := s.recordFailure(wdbc, item, &meta, werr, s.now().Sub(started))
		observability.EndSpan(span, failure.Code, werr)
		return nil, failure
	}
	observability.EndSpan(span, "completed", nil)
	observability.Current().ObserveRun("completed", s.now().Sub(started))

	completedAt := s.timestamp()
	manifestRef := firstNonBlank(artifactString(resp.StorageArtifacts, "manifest"), resp.ManifestPath, requestRef)
	run := domain.Run{
		ID:                 s.newID(),
		Name:               runName(in.Name, len(meta.Runs)+1),
		Analysis:           resp.Analysis,
		Result:             resp.Result,
		AnalysisOutputPath: resp.AnalysisOutputPath,
		StorageArtifacts:   resp.StorageArtifacts,
		SearchUploads:      resp.SearchUploads,
		AnalysisTemplate:   echoedTemplate(resp.AnalysisTemplate, template),
		Config:             &cfg,
		Filters:            filters,
		ManifestPath:       manifestRef,
		VideoURL:           source,
		StorageURL:         item.StorageURL,
		Metadata:           resp.Metadata,
		CreatedAt:          completedAt,
		RequestedAt:        requestedAt,
		CompletedAt:        completedAt,
	}
	if asmod.IsHTTPURL(manifestRef) {
		run.ManifestURL = manifestRef
	}

	meta.Config = &cfg
	meta.AnalysisTemplate = run.AnalysisTemplate
	meta.Filters = filters
	s.uc.AppendRun(&meta, run)
	meta.Status = domain.StatusCompleted
	meta.Error = ""
	if err := s.persist(wdbc, item, &meta); err != nil {
		s.log.Error("persist completed action summary failed", "content_id", item.ID, "run_id", run.ID, "error", err)
		return nil, err
	}
	s.notify(wdbc.Ctx, item, &meta)
	return &CreateActionSummaryResult{Meta: meta, Run: run}, nil
}

func (s *actionSummaryService) UpdateConfig(dbc dbctx.Context, contentID uuid.UUID, override map[string]any) (*domain.Meta, error) {
	if len(override) == 0 {
		return nil, apierr.Validation("config is required")
	}
	if _, n := s.uc.SanitizeConfig(override); n == 0 {
		return nil, apierr.Validation("config contains no valid fields")
	}
	item, err := s.load(dbc, contentID)
	if err != nil {
		return nil, err
	}
	meta, _ := s.uc.Normalize([]byte(item.ActionSummary))
	cfg := s.uc.ResolveConfig(&meta, uploadConfig(item), override)
	meta.Config = &cfg
	if err := s.persist(dbc, item, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *actionSummaryService) SelectActive(dbc dbctx.Context, contentID uuid.UUID, runID string) (*domain.Meta, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, apierr.Validation("runId is required")
	}
	item, err := s.load(dbc, contentID)
	if err != nil {
		return nil, err
	}
	meta, _ := s.uc.Normalize([]byte(item.ActionSummary))
	if !s.uc.SelectRun(&meta, runID) {
		return nil, apierr.NotFound("action summary run %s not found", runID)
	}
	if err := s.persist(dbc, item, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *actionSummaryService) DeleteRun(dbc dbctx.Context, contentID uuid.UUID, runID string) (*DeleteActionSummaryRunResult, error) {
	item, err := s.load(dbc, contentID)
	if err != nil {
		return nil, err
	}
	meta, _ := s.uc.Normalize([]byte(item.ActionSummary))

	target := strings.TrimSpace(runID)
	if target == "" && meta.ActiveRunID != nil {
		target = *meta.ActiveRunID
	}
	idx := meta.RunIndex(target)
	if idx < 0 {
		if target == "" {
			return nil, apierr.NotFound("content %s has no action summary runs", item.ID)
		}
		return nil, apierr.NotFound("action summary run %s not found", target)
	}

	removed := meta.Runs[idx]
	survivors := make([]domain.Run, 0, len(meta.Runs)-1)
	survivors = append(survivors, meta.Runs[:idx]...)
	survivors = append(survivors, meta.Runs[idx+1:]...)
	plan := s.uc.PlanRunCleanup(removed, survivors, item.ID.String(), item.StorageURL, len(survivors) == 0)

	wdbc := dbctx.Context{Ctx: context.WithoutCancel(ctxutil.Default(dbc.Ctx)), Tx: dbc.Tx}
	report := s.uc.Cleanup(wdbc.Ctx, plan)

	s.uc.RemoveRun(&meta, removed.ID)
	if err := s.persist(wdbc, item, &meta); err != nil {
		return nil, err
	}
	s.notify(wdbc.Ctx, item, &meta)
	s.log.Info("action summary run deleted",
		"content_id", item.ID,
		"run_id", removed.ID,
		"remaining", len(meta.Runs),
		"cleanup_failed", report.Failed(),
	)
	return &DeleteActionSummaryRunResult{Meta: meta, DeletedRunID: removed.ID, Cleanup: report}, nil
}

func (s *actionSummaryService) DeleteContent(dbc dbctx.Context, contentID uuid.UUID) (*DeleteContentResult, error) {
	item, err := s.load(dbc, contentID)
	if err != nil {
		return nil, err
	}
	return s.deleteItems(dbc, []*types.ContentItem{item})
}

func (s *actionSummaryService) DeleteCollection(dbc dbctx.Context, collectionID uuid.UUID) (*DeleteContentResult, error) {
	rows, err := s.content.GetByCollectionID(dbc, collectionID)
	if err != nil {
		return nil, apierr.From(err)
	}
	rd := ctxutil.GetRequestData(dbc.Ctx)
	items := make([]*types.ContentItem, 0, len(rows))
	for _, row := range rows {
		if s.access.CanAccess(rd, row) {
			items = append(items, row)
		}
	}
	if len(items) == 0 && len(rows) > 0 {
		return nil, apierr.NotFound("collection %s not found", collectionID)
	}
	return s.deleteItems(dbc, items)
}

// deleteItems cleans up everything the items reference, then removes the rows.
func (s *actionSummaryService) deleteItems(dbc dbctx.Context, items []*types.ContentItem) (*DeleteContentResult, error) {
	plans := make([]asmod.CleanupPlan, 0, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		meta, _ := s.uc.Normalize([]byte(item.ActionSummary))
		plans = append(plans, s.uc.PlanResourceCleanup(item.ID.String(), item.StorageURL, &meta))
		ids = append(ids, item.ID)
	}

	wdbc := dbctx.Context{Ctx: context.WithoutCancel(ctxutil.Default(dbc.Ctx)), Tx: dbc.Tx}
	report := s.uc.Cleanup(wdbc.Ctx, s.uc.MergeCleanupPlans(plans...))
	if err := s.content.FullDeleteByIDs(wdbc, ids); err != nil {
		return nil, apierr.From(err)
	}
	s.log.Info("content deleted", "count", len(ids), "cleanup_attempted", report.Attempted, "cleanup_failed", report.Failed())
	return &DeleteContentResult{DeletedContentIDs: ids, Cleanup: report}, nil
}

func (s *actionSummaryService) load(dbc dbctx.Context, contentID uuid.UUID) (*types.ContentItem, error) {
	if contentID == uuid.Nil {
		return nil, apierr.Validation("content id is required")
	}
	item, err := s.content.GetByID(dbc, contentID)
	if err != nil {
		return nil, apierr.From(err)
	}
	if item == nil || !s.access.CanAccess(ctxutil.GetRequestData(dbc.Ctx), item) {
		return nil, apierr.NotFound("content %s not found", contentID)
	}
	return item, nil
}

func (s *actionSummaryService) persist(dbc dbctx.Context, item *types.ContentItem, meta *domain.Meta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return apierr.From(fmt.Errorf("encode action summary: %w", err))
	}
	if err := s.content.UpdateActionSummary(dbc, item.ID, datatypes.JSON(raw)); err != nil {
		if errors.Is(err, repos.ErrContentNotFound) {
			return apierr.NotFound("content %s not found", item.ID)
		}
		return apierr.From(err)
	}
	item.ActionSummary = datatypes.JSON(raw)
	return nil
}

// recordFailure stores FAILED with the worker's message and classifies werr.
func (s *actionSummaryService) recordFailure(dbc dbctx.Context, item *types.ContentItem, meta *domain.Meta, werr error, elapsed time.Duration) *apierr.Error {
	var (
		httpErr *analysisworker.HTTPError
		result  *apierr.Error
		message string
	)
	switch {
	case errors.As(werr, &httpErr):
		message = httpErr.Message
		result = apierr.UpstreamRejected(httpErr.StatusCode, errors.New(message))
	default:
		message = werr.Error()
		result = apierr.UpstreamUnavailable(werr)
	}
	observability.Current().ObserveRun(result.Code, elapsed)
	meta.Status = domain.StatusFailed
	meta.Error = message
	s.log.Warn("action summary worker failed", "content_id", item.ID, "status", result.Status, "error", werr)
	if err := s.persist(dbc, item, meta); err != nil {
		s.log.Error("persist failed action summary status failed", "content_id", item.ID, "error", err)
	}
	s.notify(dbc.Ctx, item, meta)
	return result
}

func (s *actionSummaryService) workerRequest(ctx context.Context, item *types.ContentItem, source, manifestRef string, cfg domain.Config, template domain.AnalysisTemplate) analysisworker.ActionSummaryRequest {
	req := analysisworker.ActionSummaryRequest{
		VideoPath:            source,
		OutputDirectory:      cfg.OutputDirectory,
		SegmentLength:        cfg.SegmentLength,
		FPS:                  cfg.FPS,
		MaxWorkers:           cfg.MaxWorkers,
		RunAsync:             cfg.RunAsync,
		OverwriteOutput:      cfg.OverwriteOutput,
		ReprocessSegments:    cfg.ReprocessSegments,
		GenerateTranscripts:  cfg.GenerateTranscripts,
		TrimToNearestSecond:  cfg.TrimToNearestSecond,
		AllowPartialSegments: cfg.AllowPartialSegments,
		PublishToObjectStore: cfg.PublishToObjectStore,
		SkipPreprocess:       cfg.SkipPreprocess,
		LensPrompt:           cfg.LensPrompt,
		Organization:         item.OrganizationID.String(),
		Collection:           item.CollectionIDString(),
		User:                 item.OwnerUserID.String(),
		VideoID:              item.ID.String(),
		OrganizationName:     optionalName(item.OrganizationName),
		CollectionName:       optionalName(item.CollectionName),
		AnalysisTemplate:     template.Wire(),
	}
	if manifestRef != "" {
		req.ManifestPath = manifestRef
	}
	if asmod.IsHTTPURL(source) {
		req.VideoURL = source
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil {
		if rd.UserID != uuid.Nil {
			req.User = rd.UserID.String()
		}
		req.UserName = optionalName(rd.UserName)
	}
	return req
}

func (s *actionSummaryService) notify(ctx context.Context, item *types.ContentItem, meta *domain.Meta) {
	if s.notifier != nil {
		s.notifier.StatusChanged(ctx, item, meta)
	}
}

func (s *actionSummaryService) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// videoSource prefers the active run's source over the item's stored video.
func videoSource(meta *domain.Meta, item *types.ContentItem) string {
	var candidates []string
	if run := meta.ActiveRun(); run != nil {
		candidates = append(candidates, run.VideoURL, run.StorageURL)
	}
	candidates = append(candidates, item.StorageURL)
	return firstNonBlank(candidates...)
}

// uploadConfig reads processing options captured at upload time. A nested
// "actionSummaryConfig" object takes precedence over top-level keys.
func uploadConfig(item *types.ContentItem) map[string]any {
	if len(item.UploadMetadata) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(item.UploadMetadata, &m); err != nil {
		return nil
	}
	if nested, ok := m["actionSummaryConfig"].(map[string]any); ok {
		return nested
	}
	return m
}

func artifactString(artifacts map[string]any, key string) string {
	if v, ok := artifacts[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// echoedTemplate keeps the worker's copy of the template when it parses.
func echoedTemplate(raw json.RawMessage, fallback domain.AnalysisTemplate) domain.AnalysisTemplate {
	if len(raw) == 0 {
		return fallback
	}
	var tpl domain.AnalysisTemplate
	if err := json.Unmarshal(raw, &tpl); err != nil || len(tpl) == 0 {
		return fallback
	}
	return tpl
}

func runName(name string, n int) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fmt.Sprintf("Run %d", n)
}

func optionalName(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
