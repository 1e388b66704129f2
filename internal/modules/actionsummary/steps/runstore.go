package steps

import (
	"github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
)

// AppendRun adds run (replacing one with the same id), makes it active and
// re-derives the document fields. Status is left to the caller.
func AppendRun(meta *actionsummary.Meta, run actionsummary.Run) {
	if i := meta.RunIndex(run.ID); i >= 0 {
		meta.Runs[i] = run
	} else {
		meta.Runs = append(meta.Runs, run)
	}
	id := run.ID
	meta.ActiveRunID = &id
	RefreshDerived(meta)
}

// SelectRun points the document at an existing run. It reports false and
// leaves meta untouched when no run has that id.
func SelectRun(meta *actionsummary.Meta, runID string) bool {
	if meta.RunIndex(runID) < 0 {
		return false
	}
	id := runID
	meta.ActiveRunID = &id
	RefreshDerived(meta)
	return true
}

// RemoveRun deletes the run with runID. If it was active the last remaining
// run takes over. Status becomes COMPLETED while runs remain, else QUEUED.
func RemoveRun(meta *actionsummary.Meta, runID string) (actionsummary.Run, bool) {
	i := meta.RunIndex(runID)
	if i < 0 {
		return actionsummary.Run{}, false
	}
	removed := meta.Runs[i]
	runs := make([]actionsummary.Run, 0, len(meta.Runs)-1)
	runs = append(runs, meta.Runs[:i]...)
	runs = append(runs, meta.Runs[i+1:]...)
	meta.Runs = runs

	RefreshDerived(meta)
	meta.Error = ""
	if len(meta.Runs) > 0 {
		meta.Status = actionsummary.StatusCompleted
	} else {
		meta.Status = actionsummary.StatusQueued
	}
	return removed, true
}

// RefreshDerived recomputes the active pointer and every field mirrored from
// the active run.
func RefreshDerived(meta *actionsummary.Meta) {
	if meta.Runs == nil {
		meta.Runs = []actionsummary.Run{}
	}
	if len(meta.Runs) == 0 {
		meta.ActiveRunID = nil
		meta.LastRunAt = nil
		meta.ManifestPath = nil
		meta.ManifestURL = nil
		meta.Analysis = nil
		meta.Result = nil
		meta.AnalysisOutputPath = ""
		meta.StorageArtifacts = nil
		meta.SearchUploads = nil
		meta.AnalysisTemplate = nil
		meta.Filters = nil
		return
	}
	active := meta.ActiveRun()
	if active == nil {
		active = &meta.Runs[len(meta.Runs)-1]
		id := active.ID
		meta.ActiveRunID = &id
	}
	meta.LastRunAt = optional(RunTimestamp(active))
	meta.ManifestPath = optional(active.ManifestPath)
	meta.ManifestURL = optional(active.ManifestURL)
	meta.Analysis = active.Analysis
	meta.Result = active.Result
	meta.AnalysisOutputPath = active.AnalysisOutputPath
	meta.StorageArtifacts = active.StorageArtifacts
	meta.SearchUploads = active.SearchUploads
	if active.AnalysisTemplate != nil {
		meta.AnalysisTemplate = active.AnalysisTemplate
	}
	if active.Filters != nil {
		meta.Filters = active.Filters
	}
}
