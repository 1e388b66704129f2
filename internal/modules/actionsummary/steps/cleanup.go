package steps

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
	"github.com/yungbote/actionsummary-backend/internal/observability"
	"github.com/yungbote/actionsummary-backend/internal/platform/gcp"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

// ObjectStore is the slice of the bucket service cleanup needs.
type ObjectStore interface {
	ParseObjectURL(raw string) (gcp.ObjectRef, bool)
	DeleteObject(ctx context.Context, ref gcp.ObjectRef) error
}

// SearchIndex removes documents the worker uploaded for a run.
type SearchIndex interface {
	DeleteDocuments(ctx context.Context, ids []string) error
	DeleteByFilter(ctx context.Context, filter map[string]any) error
}

// CleanupPlan is the de-duplicated set of external resources to delete.
type CleanupPlan struct {
	Objects     []gcp.ObjectRef
	DocumentIDs []string
	ContentIDs  []string
}

func (p CleanupPlan) Empty() bool {
	return len(p.Objects) == 0 && len(p.DocumentIDs) == 0 && len(p.ContentIDs) == 0
}

type CleanupTarget string

const (
	CleanupTargetObject   CleanupTarget = "object"
	CleanupTargetDocument CleanupTarget = "search_documents"
	CleanupTargetFilter   CleanupTarget = "search_filter"
)

type CleanupFailure struct {
	Target   CleanupTarget `json:"target"`
	Resource string        `json:"resource"`
	Error    string        `json:"error"`
}

// CleanupReport aggregates independent deletion outcomes.
type CleanupReport struct {
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
	Skipped   int              `json:"skipped"`
	Failures  []CleanupFailure `json:"failures,omitempty"`
}

func (r CleanupReport) Failed() int { return len(r.Failures) }

// Merge adds other's outcomes to r.
func (r CleanupReport) Merge(other CleanupReport) CleanupReport {
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Skipped += other.Skipped
	r.Failures = append(r.Failures, other.Failures...)
	return r
}

type Cleaner struct {
	log            *logger.Logger
	objects        ObjectStore
	search         SearchIndex
	maxConcurrency int
}

// NewCleaner accepts nil collaborators; their deletions are reported as skipped.
func NewCleaner(log *logger.Logger, objects ObjectStore, search SearchIndex, maxConcurrency int) *Cleaner {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Cleaner{
		log:            log.With("service", "ActionSummaryCleanup"),
		objects:        objects,
		search:         search,
		maxConcurrency: maxConcurrency,
	}
}

// PlanRun collects what removing run from a document leaves orphaned. The
// item's stored video and the run's source video are held wherever they
// appear in the tree, as are references still held by survivors. When
// lastRun is set every index document for contentID is removed as well.
func (c *Cleaner) PlanRun(run actionsummary.Run, survivors []actionsummary.Run, contentID, itemStorageURL string, lastRun bool) CleanupPlan {
	held := newRefSet()
	for _, src := range []string{itemStorageURL, run.VideoURL, run.StorageURL} {
		c.scan(strings.TrimSpace(src), held)
	}
	heldDocs := map[string]bool{}
	for _, s := range survivors {
		c.scan(toTree(s), held)
		for _, id := range documentIDs(s.SearchUploads) {
			heldDocs[id] = true
		}
	}

	scanned := run
	scanned.VideoURL = ""
	scanned.StorageURL = ""
	refs := newRefSet()
	c.scan(toTree(scanned), refs)

	plan := CleanupPlan{}
	for _, ref := range refs.sorted() {
		if !held.has(ref) {
			plan.Objects = append(plan.Objects, ref)
		}
	}
	for _, id := range documentIDs(run.SearchUploads) {
		if !heldDocs[id] {
			plan.DocumentIDs = append(plan.DocumentIDs, id)
		}
	}
	if lastRun && strings.TrimSpace(contentID) != "" {
		plan.ContentIDs = []string{contentID}
	}
	return plan
}

// PlanResource collects everything a whole resource references: the full
// document tree plus the record's own stored video.
func (c *Cleaner) PlanResource(contentID, storageURL string, meta *actionsummary.Meta) CleanupPlan {
	refs := newRefSet()
	if meta != nil {
		c.scan(toTree(meta), refs)
	}
	c.scan(storageURL, refs)

	plan := CleanupPlan{Objects: refs.sorted()}
	if meta != nil {
		seen := map[string]bool{}
		add := func(ids []string) {
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					plan.DocumentIDs = append(plan.DocumentIDs, id)
				}
			}
		}
		add(documentIDs(meta.SearchUploads))
		for _, r := range meta.Runs {
			add(documentIDs(r.SearchUploads))
		}
	}
	if strings.TrimSpace(contentID) != "" {
		plan.ContentIDs = []string{contentID}
	}
	return plan
}

// MergePlans unions plans without duplicates.
func MergePlans(plans ...CleanupPlan) CleanupPlan {
	out := CleanupPlan{}
	objs := newRefSet()
	docs := map[string]bool{}
	contents := map[string]bool{}
	for _, p := range plans {
		for _, ref := range p.Objects {
			objs.add(ref)
		}
		for _, id := range p.DocumentIDs {
			if !docs[id] {
				docs[id] = true
				out.DocumentIDs = append(out.DocumentIDs, id)
			}
		}
		for _, id := range p.ContentIDs {
			if !contents[id] {
				contents[id] = true
				out.ContentIDs = append(out.ContentIDs, id)
			}
		}
	}
	out.Objects = objs.sorted()
	return out
}

// Execute attempts every deletion in plan independently. Failures are logged
// and reported, never returned.
func (c *Cleaner) Execute(ctx context.Context, plan CleanupPlan) (report CleanupReport) {
	ctx, span := observability.StartSpan(ctx, "actionsummary.cleanup.execute",
		observability.AttrCleanupObjects.Int(len(plan.Objects)),
		observability.AttrCleanupDocuments.Int(len(plan.DocumentIDs)),
	)
	defer func() {
		span.SetAttributes(
			observability.AttrCleanupAttempted.Int(report.Attempted),
			observability.AttrCleanupFailed.Int(report.Failed()),
			observability.AttrCleanupSkipped.Int(report.Skipped),
		)
		if len(plan.ContentIDs) > 0 {
			span.SetAttributes(observability.AttrContentID.StringSlice(plan.ContentIDs))
		}
		outcome := "succeeded"
		if report.Failed() > 0 {
			outcome = "partial"
		}
		span.SetAttributes(observability.AttrOutcome.String(outcome))
		span.End()
	}()

	type task struct {
		target   CleanupTarget
		resource string
		run      func(context.Context) error
	}
	var tasks []task
	tally := map[CleanupTarget]*[3]int{}
	count := func(target CleanupTarget, slot int) {
		if tally[target] == nil {
			tally[target] = &[3]int{}
		}
		tally[target][slot]++
	}

	for _, ref := range plan.Objects {
		if c.objects == nil {
			report.Skipped++
			count(CleanupTargetObject, 2)
			continue
		}
		tasks = append(tasks, task{
			target:   CleanupTargetObject,
			resource: ref.String(),
			run:      func(ctx context.Context) error { return c.objects.DeleteObject(ctx, ref) },
		})
	}
	if len(plan.DocumentIDs) > 0 {
		if c.search == nil {
			report.Skipped++
			count(CleanupTargetDocument, 2)
		} else {
			ids := append([]string(nil), plan.DocumentIDs...)
			tasks = append(tasks, task{
				target:   CleanupTargetDocument,
				resource: strings.Join(ids, ","),
				run:      func(ctx context.Context) error { return c.search.DeleteDocuments(ctx, ids) },
			})
		}
	}
	for _, contentID := range plan.ContentIDs {
		if c.search == nil {
			report.Skipped++
			count(CleanupTargetFilter, 2)
			continue
		}
		filter := map[string]any{"contentId": contentID}
		tasks = append(tasks, task{
			target:   CleanupTargetFilter,
			resource: "contentId=" + contentID,
			run:      func(ctx context.Context) error { return c.search.DeleteByFilter(ctx, filter) },
		})
	}

	outcomes := make([]error, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i := range tasks {
		g.Go(func() error {
			outcomes[i] = tasks[i].run(gctx)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range outcomes {
		report.Attempted++
		if err == nil {
			report.Succeeded++
			count(tasks[i].target, 0)
			continue
		}
		count(tasks[i].target, 1)
		report.Failures = append(report.Failures, CleanupFailure{
			Target:   tasks[i].target,
			Resource: tasks[i].resource,
			Error:    err.Error(),
		})
		c.log.Warn("cleanup deletion failed", "target", tasks[i].target, "resource", tasks[i].resource, "error", err)
	}
	if m := observability.Current(); m != nil {
		for target, n := range tally {
			m.ObserveCleanup(string(target), n[0], n[1], n[2])
		}
		m.ObserveCleanupReport()
	}
	if report.Attempted > 0 || report.Skipped > 0 {
		c.log.Info("cleanup finished",
			"attempted", report.Attempted,
			"succeeded", report.Succeeded,
			"failed", report.Failed(),
			"skipped", report.Skipped,
		)
	}
	return report
}

// scan walks a decoded JSON tree and records every string that names an
// object in a configured bucket.
func (c *Cleaner) scan(node any, into *refSet) {
	if c.objects == nil {
		return
	}
	switch v := node.(type) {
	case string:
		if ref, ok := c.objects.ParseObjectURL(v); ok {
			into.add(ref)
		}
	case map[string]any:
		for _, child := range v {
			c.scan(child, into)
		}
	case []any:
		for _, child := range v {
			c.scan(child, into)
		}
	}
}

// documentIDs reads search-upload entries: plain ids or records with an id.
func documentIDs(uploads []any) []string {
	var out []string
	seen := map[string]bool{}
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, u := range uploads {
		switch v := u.(type) {
		case string:
			add(v)
		case map[string]any:
			for _, k := range []string{"id", "document_id", "documentId"} {
				if s, ok := v[k].(string); ok && s != "" {
					add(s)
					break
				}
			}
		}
	}
	return out
}

func toTree(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

type refSet struct {
	refs map[gcp.ObjectRef]bool
}

func newRefSet() *refSet { return &refSet{refs: map[gcp.ObjectRef]bool{}} }

func (s *refSet) add(ref gcp.ObjectRef) {
	s.refs[ref] = true
}

func (s *refSet) has(ref gcp.ObjectRef) bool {
	return s.refs[ref]
}

func (s *refSet) sorted() []gcp.ObjectRef {
	out := make([]gcp.ObjectRef, 0, len(s.refs))
	for ref := range s.refs {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
