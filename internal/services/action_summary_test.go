package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/actionsummary-backend/internal/data/repos"
	domain "github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
	types "github.com/yungbote/actionsummary-backend/internal/domain/media"
	asmod "github.com/yungbote/actionsummary-backend/internal/modules/actionsummary"
	"github.com/yungbote/actionsummary-backend/internal/platform/analysisworker"
	"github.com/yungbote/actionsummary-backend/internal/platform/apierr"
	"github.com/yungbote/actionsummary-backend/internal/platform/ctxutil"
	"github.com/yungbote/actionsummary-backend/internal/platform/dbctx"
	"github.com/yungbote/actionsummary-backend/internal/platform/gcp"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type memContentRepo struct {
	mu     sync.Mutex
	items  map[uuid.UUID]*types.ContentItem
	writes []string
}

func newMemContentRepo(items ...*types.ContentItem) *memContentRepo {
	r := &memContentRepo{items: map[uuid.UUID]*types.ContentItem{}}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *memContentRepo) Create(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.items[it.ID] = it
	}
	return items, nil
}

func (r *memContentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (r *memContentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentItem, error) {
	var out []*types.ContentItem
	for _, id := range ids {
		if it, _ := r.GetByID(dbc, id); it != nil {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memContentRepo) GetByCollectionID(dbc dbctx.Context, collectionID uuid.UUID) ([]*types.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ContentItem
	for _, it := range r.items {
		if it.CollectionID != nil && *it.CollectionID == collectionID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memContentRepo) ListAfter(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.ContentItem, error) {
	return nil, nil
}

func (r *memContentRepo) UpdateActionSummary(dbc dbctx.Context, id uuid.UUID, doc datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return repos.ErrContentNotFound
	}
	it.ActionSummary = doc
	r.writes = append(r.writes, string(doc))
	return nil
}

func (r *memContentRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.items, id)
	}
	return nil
}

func (r *memContentRepo) stored(t *testing.T, id uuid.UUID) domain.Meta {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var meta domain.Meta
	if err := json.Unmarshal(r.items[id].ActionSummary, &meta); err != nil {
		t.Fatalf("decode stored meta: %v", err)
	}
	return meta
}

type fakeWorker struct {
	calls []analysisworker.ActionSummaryRequest
	resp  *analysisworker.ActionSummaryResponse
	err   error
	ctxOK bool
}

func (w *fakeWorker) RunActionSummary(ctx context.Context, req analysisworker.ActionSummaryRequest) (*analysisworker.ActionSummaryResponse, error) {
	w.calls = append(w.calls, req)
	w.ctxOK = ctx.Err() == nil
	return w.resp, w.err
}

type fakeNotifier struct {
	statuses []domain.Status
}

func (n *fakeNotifier) StatusChanged(ctx context.Context, item *types.ContentItem, meta *domain.Meta) {
	n.statuses = append(n.statuses, meta.Status)
}

type recordingObjects struct {
	mu      sync.Mutex
	deleted []string
}

func (o *recordingObjects) ParseObjectURL(raw string) (gcp.ObjectRef, bool) {
	if !strings.HasPrefix(raw, "gs://") {
		return gcp.ObjectRef{}, false
	}
	bucket, key, _ := strings.Cut(strings.TrimPrefix(raw, "gs://"), "/")
	return gcp.ObjectRef{Bucket: bucket, Key: key}, key != ""
}

func (o *recordingObjects) DeleteObject(ctx context.Context, ref gcp.ObjectRef) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleted = append(o.deleted, ref.String())
	return nil
}

type recordingSearch struct {
	mu      sync.Mutex
	ids     []string
	filters []map[string]any
}

func (s *recordingSearch) DeleteDocuments(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, ids...)
	return nil
}

func (s *recordingSearch) DeleteByFilter(ctx context.Context, filter map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filter)
	return nil
}

type serviceFixture struct {
	svc      ActionSummaryService
	repo     *memContentRepo
	worker   *fakeWorker
	notifier *fakeNotifier
	objects  *recordingObjects
	search   *recordingSearch
	item     *types.ContentItem
	dbc      dbctx.Context
}

func newServiceFixture(t *testing.T, actionSummary string) *serviceFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Sync)

	orgID := uuid.New()
	item := &types.ContentItem{
		ID:             uuid.New(),
		OrganizationID: orgID,
		OwnerUserID:    uuid.New(),
		Title:          "clip.mp4",
		StorageURL:     "gs://videos/uploads/clip.mp4",
		UploadMetadata: datatypes.JSON([]byte(`{"segment_length": 12, "fps": 30}`)),
	}
	if actionSummary != "" {
		item.ActionSummary = datatypes.JSON([]byte(actionSummary))
	}

	f := &serviceFixture{
		repo:     newMemContentRepo(item),
		worker:   &fakeWorker{},
		notifier: &fakeNotifier{},
		objects:  &recordingObjects{},
		search:   &recordingSearch{},
		item:     item,
	}
	uc := asmod.New(asmod.UsecasesDeps{
		Log:             log,
		Objects:         f.objects,
		Search:          f.search,
		DefaultTemplate: domain.AnalysisTemplate{{Field: "summary", Description: "what happens"}},
	})
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.svc = NewActionSummaryService(ActionSummaryServiceDeps{
		Log:      log,
		Content:  f.repo,
		Worker:   f.worker,
		Usecases: uc,
		Notifier: f.notifier,
		Now:      func() time.Time { return fixed },
		NewID:    func() string { return "run-new" },
	})

	rd := &ctxutil.RequestData{UserID: uuid.New(), UserName: "Dana", OrganizationID: orgID.String()}
	f.dbc = dbctx.Context{Ctx: ctxutil.WithRequestData(context.Background(), rd)}
	return f
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d", status)
	}
	if got := apierr.From(err).Status; got != status {
		t.Fatalf("status: want=%d got=%d (err=%v)", status, got, err)
	}
}

func TestCreateCompletesRun(t *testing.T) {
	f := newServiceFixture(t, "")
	manifest := "https://cdn.example.com/artifacts/manifest.json"
	f.worker.resp = &analysisworker.ActionSummaryResponse{
		Result:           json.RawMessage(`{"summary":"ok"}`),
		ManifestPath:     "/tmp/out/manifest.json",
		StorageArtifacts: map[string]any{"manifest": manifest},
		SearchUploads:    []any{"doc-1"},
	}

	res, err := f.svc.Create(f.dbc, f.item.ID, CreateActionSummaryInput{Config: map[string]any{"fps": "2"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Run.ID != "run-new" || res.Run.Name != "Run 1" {
		t.Fatalf("run: got id=%q name=%q", res.Run.ID, res.Run.Name)
	}
	if res.Run.ManifestPath != manifest || res.Run.ManifestURL != manifest {
		t.Fatalf("manifest: path=%q url=%q", res.Run.ManifestPath, res.Run.ManifestURL)
	}
	if res.Meta.Status != domain.StatusCompleted {
		t.Fatalf("status: want=%s got=%s", domain.StatusCompleted, res.Meta.Status)
	}
	if res.Meta.ManifestURL == nil || *res.Meta.ManifestURL != manifest {
		t.Fatalf("meta manifestUrl: got=%v", res.Meta.ManifestURL)
	}

	if len(f.worker.calls) != 1 {
		t.Fatalf("worker calls: want=1 got=%d", len(f.worker.calls))
	}
	req := f.worker.calls[0]
	if req.SegmentLength != 12 || req.FPS != 2 {
		t.Fatalf("request config: segment_length=%d fps=%v", req.SegmentLength, req.FPS)
	}
	if req.VideoPath != f.item.StorageURL {
		t.Fatalf("video_path: want=%q got=%q", f.item.StorageURL, req.VideoPath)
	}
	if req.UserName == nil || *req.UserName != "Dana" {
		t.Fatalf("user_name: got=%v", req.UserName)
	}
	if len(req.AnalysisTemplate) != 1 || req.AnalysisTemplate[0]["summary"] == "" {
		t.Fatalf("analysis_template: got=%v", req.AnalysisTemplate)
	}

	if len(f.repo.writes) != 2 {
		t.Fatalf("writes: want=2 got=%d", len(f.repo.writes))
	}
	var first domain.Meta
	_ = json.Unmarshal([]byte(f.repo.writes[0]), &first)
	if first.Status != domain.StatusProcessing || first.RequestedAt == "" {
		t.Fatalf("first write: status=%s requestedAt=%q", first.Status, first.RequestedAt)
	}
	stored := f.repo.stored(t, f.item.ID)
	if len(stored.Runs) != 1 || stored.ActiveRunID == nil || *stored.ActiveRunID != "run-new" {
		t.Fatalf("stored runs: %+v", stored.Runs)
	}
	if got := f.notifier.statuses; len(got) != 2 || got[0] != domain.StatusProcessing || got[1] != domain.StatusCompleted {
		t.Fatalf("notifications: got=%v", got)
	}
}

func TestCreateWithoutVideoSource(t *testing.T) {
	f := newServiceFixture(t, `{"status":"COMPLETED","runs":[{"id":"a"}],"activeRunId":"a"}`)
	f.repo.items[f.item.ID].StorageURL = ""

	_, err := f.svc.Create(f.dbc, f.item.ID, CreateActionSummaryInput{})
	wantStatus(t, err, http.StatusBadRequest)
	if len(f.worker.calls) != 0 {
		t.Fatalf("worker contacted without a video source")
	}
	if len(f.repo.writes) != 0 {
		t.Fatalf("writes: want=0 got=%d", len(f.repo.writes))
	}
}

func TestCreatePrefersActiveRunSource(t *testing.T) {
	f := newServiceFixture(t, `{"runs":[{"id":"a","videoUrl":"https://videos.example.com/v.mp4","manifestPath":"/data/manifest.json"}],"activeRunId":"a"}`)
	f.worker.resp = &analysisworker.ActionSummaryResponse{}

	res, err := f.svc.Create(f.dbc, f.item.ID, CreateActionSummaryInput{Name: "second"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	req := f.worker.calls[0]
	if req.VideoPath != "https://videos.example.com/v.mp4" || req.VideoURL != req.VideoPath {
		t.Fatalf("video: path=%q url=%q", req.VideoPath, req.VideoURL)
	}
	if !req.SkipPreprocess || req.ManifestPath != "/data/manifest.json" {
		t.Fatalf("manifest reuse: skip=%v manifest=%q", req.SkipPreprocess, req.ManifestPath)
	}
	if res.Run.ManifestPath != "/data/manifest.json" || res.Run.ManifestURL != "" {
		t.Fatalf("run manifest: path=%q url=%q", res.Run.ManifestPath, res.Run.ManifestURL)
	}
	if len(res.Meta.Runs) != 2 || res.Run.Name != "second" {
		t.Fatalf("runs: want=2 got=%d name=%q", len(res.Meta.Runs), res.Run.Name)
	}
}

func TestCreateWorkerUnreachable(t *testing.T) {
	f := newServiceFixture(t, "")
	f.worker.err = &analysisworker.TransportError{Endpoints: []string{"http://w"}, Err: errors.New("connection refused")}

	_, err := f.svc.Create(f.dbc, f.item.ID, CreateActionSummaryInput{})
	wantStatus(t, err, http.StatusBadGateway)
	stored := f.repo.stored(t, f.item.ID)
	if stored.Status != domain.StatusFailed || !strings.Contains(stored.Error, "connection refused") {
		t.Fatalf("stored: status=%s error=%q", stored.Status, stored.Error)
	}
	if len(stored.Runs) != 0 {
		t.Fatalf("runs: want=0 got=%d", len(stored.Runs))
	}
}

func TestCreateWorkerRejected(t *testing.T) {
	f := newServiceFixture(t, "")
	f.worker.err = &analysisworker.HTTPError{StatusCode: http.StatusUnprocessableEntity, Message: "video_path is required"}

	_, err := f.svc.Create(f.dbc, f.item.ID, CreateActionSummaryInput{})
	wantStatus(t, err, http.StatusUnprocessableEntity)
	stored := f.repo.stored(t, f.item.ID)
	if stored.Status != domain.StatusFailed || stored.Error != "video_path is required" {
		t.Fatalf("stored: status=%s error=%q", stored.Status, stored.Error)
	}
}

func TestCreateIgnoresCallerCancellation(t *testing.T) {
	f := newServiceFixture(t, "")
	f.worker.resp = &analysisworker.ActionSummaryResponse{}
	ctx, cancel := context.WithCancel(f.dbc.Ctx)
	cancel()

	if _, err := f.svc.Create(dbctx.Context{Ctx: ctx}, f.item.ID, CreateActionSummaryInput{}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !f.worker.ctxOK {
		t.Fatalf("worker saw a cancelled context")
	}
}

func TestUpdateConfig(t *testing.T) {
	f := newServiceFixture(t, `{"status":"COMPLETED","config":{"segment_length":10,"fps":1,"max_workers":3,"run_async":false,"overwrite_output":true,"reprocess_segments":false,"generate_transcripts":true,"trim_to_nearest_second":false,"allow_partial_segments":true,"publish_to_object_store":true,"skip_preprocess":false,"output_directory":null,"lens_prompt":null},"runs":[{"id":"a"}],"activeRunId":"a"}`)

	meta, err := f.svc.UpdateConfig(f.dbc, f.item.ID, map[string]any{"segment_length": "20"})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if meta.Config.SegmentLength != 20 {
		t.Fatalf("segment_length: want=20 got=%d", meta.Config.SegmentLength)
	}
	if meta.Config.MaxWorkers == nil || *meta.Config.MaxWorkers != 3 || meta.Config.RunAsync {
		t.Fatalf("other fields changed: %+v", meta.Config)
	}
	if meta.Status != domain.StatusCompleted || len(meta.Runs) != 1 {
		t.Fatalf("status/runs changed: %s/%d", meta.Status, len(meta.Runs))
	}

	_, err = f.svc.UpdateConfig(f.dbc, f.item.ID, nil)
	wantStatus(t, err, http.StatusBadRequest)
	_, err = f.svc.UpdateConfig(f.dbc, f.item.ID, map[string]any{"segment_length": "abc"})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestSelectActive(t *testing.T) {
	f := newServiceFixture(t, `{"runs":[{"id":"a","manifestPath":"gs://artifacts/a.json"},{"id":"b"}],"activeRunId":"b"}`)
	meta, err := f.svc.SelectActive(f.dbc, f.item.ID, "a")
	if err != nil {
		t.Fatalf("SelectActive: %v", err)
	}
	if *meta.ActiveRunID != "a" || meta.ManifestPath == nil || *meta.ManifestPath != "gs://artifacts/a.json" {
		t.Fatalf("active: id=%v manifest=%v", meta.ActiveRunID, meta.ManifestPath)
	}
	_, err = f.svc.SelectActive(f.dbc, f.item.ID, "zzz")
	wantStatus(t, err, http.StatusNotFound)
}

func TestDeleteOnlyRun(t *testing.T) {
	f := newServiceFixture(t, `{"status":"COMPLETED","runs":[{"id":"a","analysisOutputPath":"gs://artifacts/a/out.json","videoUrl":"gs://videos/uploads/clip.mp4","searchUploads":["doc-1"]}],"activeRunId":"a"}`)

	res, err := f.svc.DeleteRun(f.dbc, f.item.ID, "")
	if err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if res.DeletedRunID != "a" {
		t.Fatalf("deletedRunId: want=%q got=%q", "a", res.DeletedRunID)
	}
	if res.Meta.Status != domain.StatusQueued || res.Meta.ActiveRunID != nil || res.Meta.ManifestPath != nil {
		t.Fatalf("meta: %+v", res.Meta)
	}
	if len(f.objects.deleted) != 1 || f.objects.deleted[0] != "gs://artifacts/a/out.json" {
		t.Fatalf("deleted objects: got=%v", f.objects.deleted)
	}
	if len(f.search.ids) != 1 || len(f.search.filters) != 1 || f.search.filters[0]["contentId"] != f.item.ID.String() {
		t.Fatalf("search cleanup: ids=%v filters=%v", f.search.ids, f.search.filters)
	}
	if res.Meta.AnalysisTemplate != nil || res.Meta.Filters != nil {
		t.Fatalf("derived fields: template=%v filters=%v", res.Meta.AnalysisTemplate, res.Meta.Filters)
	}
}

func TestDeleteLastRunKeepsStoredVideo(t *testing.T) {
	f := newServiceFixture(t, "")
	f.worker.resp = &analysisworker.ActionSummaryResponse{
		Result:             json.RawMessage(`{"summary":"ok"}`),
		AnalysisOutputPath: "gs://artifacts/run-new/out.json",
		StorageArtifacts:   map[string]any{"video": f.item.StorageURL},
		Metadata:           map[string]any{"videoUrl": f.item.StorageURL},
	}
	if _, err := f.svc.Create(f.dbc, f.item.ID, CreateActionSummaryInput{}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := f.svc.DeleteRun(f.dbc, f.item.ID, "")
	if err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	for _, ref := range f.objects.deleted {
		if ref == f.item.StorageURL {
			t.Fatalf("deleted objects: stored video %s removed (all=%v)", ref, f.objects.deleted)
		}
	}
	if len(f.objects.deleted) != 1 || f.objects.deleted[0] != "gs://artifacts/run-new/out.json" {
		t.Fatalf("deleted objects: want=[gs://artifacts/run-new/out.json] got=%v", f.objects.deleted)
	}
	if res.Meta.AnalysisTemplate != nil || res.Meta.Filters != nil || len(res.Meta.Runs) != 0 {
		t.Fatalf("meta after last delete: %+v", res.Meta)
	}
}

func TestDeleteRunNotFound(t *testing.T) {
	f := newServiceFixture(t, `{"runs":[{"id":"a"}],"activeRunId":"a"}`)
	_, err := f.svc.DeleteRun(f.dbc, f.item.ID, "zzz")
	wantStatus(t, err, http.StatusNotFound)
	if len(f.repo.writes) != 0 {
		t.Fatalf("writes: want=0 got=%d", len(f.repo.writes))
	}
}

func TestOtherOrganizationSeesNotFound(t *testing.T) {
	f := newServiceFixture(t, "")
	rd := &ctxutil.RequestData{UserID: uuid.New(), OrganizationID: uuid.NewString()}
	dbc := dbctx.Context{Ctx: ctxutil.WithRequestData(context.Background(), rd)}
	_, err := f.svc.Get(dbc, f.item.ID)
	wantStatus(t, err, http.StatusNotFound)
}

func TestGetPersistsOnlyWhenChanged(t *testing.T) {
	f := newServiceFixture(t, `{"result":{"summary":"legacy"}}`)
	meta, err := f.svc.Get(f.dbc, f.item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(meta.Runs) != 1 {
		t.Fatalf("runs: want=1 got=%d", len(meta.Runs))
	}
	if len(f.repo.writes) != 1 {
		t.Fatalf("writes after migration: want=1 got=%d", len(f.repo.writes))
	}
	if _, err := f.svc.Get(f.dbc, f.item.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(f.repo.writes) != 1 {
		t.Fatalf("writes after second read: want=1 got=%d", len(f.repo.writes))
	}
}

func TestDeleteContentCleansEverything(t *testing.T) {
	f := newServiceFixture(t, `{"runs":[{"id":"a","analysisOutputPath":"gs://artifacts/a/out.json"}],"activeRunId":"a"}`)
	res, err := f.svc.DeleteContent(f.dbc, f.item.ID)
	if err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}
	if len(res.DeletedContentIDs) != 1 || res.DeletedContentIDs[0] != f.item.ID {
		t.Fatalf("deleted ids: got=%v", res.DeletedContentIDs)
	}
	joined := strings.Join(f.objects.deleted, ",")
	if !strings.Contains(joined, "gs://videos/uploads/clip.mp4") || !strings.Contains(joined, "gs://artifacts/a/out.json") {
		t.Fatalf("deleted objects: got=%v", f.objects.deleted)
	}
	if _, ok := f.repo.items[f.item.ID]; ok {
		t.Fatalf("row not deleted")
	}
}

func TestDeleteCollection(t *testing.T) {
	f := newServiceFixture(t, "")
	collectionID := uuid.New()
	f.repo.items[f.item.ID].CollectionID = &collectionID
	foreign := &types.ContentItem{ID: uuid.New(), OrganizationID: uuid.New(), CollectionID: &collectionID}
	f.repo.items[foreign.ID] = foreign

	res, err := f.svc.DeleteCollection(f.dbc, collectionID)
	if err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if len(res.DeletedContentIDs) != 1 || res.DeletedContentIDs[0] != f.item.ID {
		t.Fatalf("deleted ids: got=%v", res.DeletedContentIDs)
	}
	if _, ok := f.repo.items[foreign.ID]; !ok {
		t.Fatalf("item from another organization was deleted")
	}
}
