package actionsummary

import (
	"context"

	domain "github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
	"github.com/yungbote/actionsummary-backend/internal/modules/actionsummary/steps"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	Log *logger.Logger

	Objects steps.ObjectStore
	Search  steps.SearchIndex

	CleanupConcurrency int
	// DefaultTemplate is used when neither the request nor the document has one.
	DefaultTemplate domain.AnalysisTemplate
}

type Usecases struct {
	deps    UsecasesDeps
	cleaner *steps.Cleaner
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return Usecases{
		deps:    deps,
		cleaner: steps.NewCleaner(deps.Log, deps.Objects, deps.Search, deps.CleanupConcurrency),
	}
}

type (
	ObjectStore   = steps.ObjectStore
	SearchIndex   = steps.SearchIndex
	CleanupPlan   = steps.CleanupPlan
	CleanupReport = steps.CleanupReport
)

func (u Usecases) Normalize(raw any) (domain.Meta, bool) { return steps.Normalize(raw) }

func (u Usecases) ResolveConfig(existing *domain.Meta, upload, override map[string]any) domain.Config {
	return steps.ResolveConfig(existing, upload, override)
}

func (u Usecases) SanitizeConfig(source map[string]any) (map[string]any, int) {
	return steps.Sanitize(source)
}

// Template picks the analysis template for a new run.
func (u Usecases) Template(requested domain.AnalysisTemplate, meta *domain.Meta) domain.AnalysisTemplate {
	if len(requested) > 0 {
		return requested
	}
	if meta != nil && len(meta.AnalysisTemplate) > 0 {
		return meta.AnalysisTemplate
	}
	return u.deps.DefaultTemplate
}

func (u Usecases) ManifestReference(meta *domain.Meta) string { return steps.ManifestReference(meta) }

func (u Usecases) AppendRun(meta *domain.Meta, run domain.Run) { steps.AppendRun(meta, run) }

func (u Usecases) SelectRun(meta *domain.Meta, runID string) bool { return steps.SelectRun(meta, runID) }

func (u Usecases) RemoveRun(meta *domain.Meta, runID string) (domain.Run, bool) {
	return steps.RemoveRun(meta, runID)
}

func (u Usecases) RefreshDerived(meta *domain.Meta) { steps.RefreshDerived(meta) }

func (u Usecases) PlanRunCleanup(run domain.Run, survivors []domain.Run, contentID, itemStorageURL string, lastRun bool) CleanupPlan {
	return u.cleaner.PlanRun(run, survivors, contentID, itemStorageURL, lastRun)
}

func (u Usecases) PlanResourceCleanup(contentID, storageURL string, meta *domain.Meta) CleanupPlan {
	return u.cleaner.PlanResource(contentID, storageURL, meta)
}

func (u Usecases) MergeCleanupPlans(plans ...CleanupPlan) CleanupPlan { return steps.MergePlans(plans...) }

func (u Usecases) Cleanup(ctx context.Context, plan CleanupPlan) CleanupReport {
	if plan.Empty() {
		return CleanupReport{}
	}
	return u.cleaner.Execute(ctx, plan)
}

func IsHTTPURL(s string) bool { return steps.IsHTTPURL(s) }

func RunTimestamp(run *domain.Run) string { return steps.RunTimestamp(run) }
