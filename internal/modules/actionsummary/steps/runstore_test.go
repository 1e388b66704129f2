package steps

import (
	"testing"

	"github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
)

func metaWithRuns(ids ...string) actionsummary.Meta {
	meta := actionsummary.Meta{SchemaVersion: actionsummary.SchemaVersion, Status: actionsummary.StatusCompleted}
	for i, id := range ids {
		AppendRun(&meta, actionsummary.Run{
			ID:           id,
			ManifestPath: "gs://artifacts/" + id + "/manifest.json",
			CompletedAt:  "2025-01-0" + string(rune('1'+i)) + "T00:00:00Z",
		})
	}
	return meta
}

func TestAppendRunActivates(t *testing.T) {
	meta := metaWithRuns("a", "b")
	if meta.ActiveRunID == nil || *meta.ActiveRunID != "b" {
		t.Fatalf("activeRunId: want=%q got=%v", "b", meta.ActiveRunID)
	}
	if meta.ManifestPath == nil || *meta.ManifestPath != "gs://artifacts/b/manifest.json" {
		t.Fatalf("manifestPath: got=%v", meta.ManifestPath)
	}
	if meta.LastRunAt == nil || *meta.LastRunAt != "2025-01-02T00:00:00Z" {
		t.Fatalf("lastRunAt: got=%v", meta.LastRunAt)
	}
}

func TestSelectRun(t *testing.T) {
	meta := metaWithRuns("a", "b")
	if SelectRun(&meta, "missing") {
		t.Fatalf("SelectRun(missing): want=false")
	}
	if *meta.ActiveRunID != "b" {
		t.Fatalf("activeRunId changed on miss: %q", *meta.ActiveRunID)
	}
	if !SelectRun(&meta, "a") {
		t.Fatalf("SelectRun(a): want=true")
	}
	if *meta.ManifestPath != "gs://artifacts/a/manifest.json" {
		t.Fatalf("manifestPath: got=%q", *meta.ManifestPath)
	}
}

func TestRemoveOnlyRunResetsToQueued(t *testing.T) {
	meta := metaWithRuns("a")
	meta.AnalysisTemplate = actionsummary.AnalysisTemplate{{Field: "summary", Description: "what happens"}}
	meta.Filters = &actionsummary.Filters{ContentID: "content-1"}
	if _, ok := RemoveRun(&meta, "a"); !ok {
		t.Fatalf("RemoveRun: want=true")
	}
	if meta.AnalysisTemplate != nil || meta.Filters != nil {
		t.Fatalf("template/filters not cleared: template=%v filters=%v", meta.AnalysisTemplate, meta.Filters)
	}
	if meta.Status != actionsummary.StatusQueued {
		t.Fatalf("status: want=%s got=%s", actionsummary.StatusQueued, meta.Status)
	}
	if meta.ActiveRunID != nil || meta.LastRunAt != nil || meta.ManifestPath != nil || meta.ManifestURL != nil {
		t.Fatalf("derived fields not cleared: %+v", meta)
	}
	if len(meta.Runs) != 0 {
		t.Fatalf("runs: want=0 got=%d", len(meta.Runs))
	}
}

func TestRemoveNonActiveKeepsActive(t *testing.T) {
	meta := metaWithRuns("a", "b", "c")
	SelectRun(&meta, "b")
	if _, ok := RemoveRun(&meta, "a"); !ok {
		t.Fatalf("RemoveRun: want=true")
	}
	if *meta.ActiveRunID != "b" {
		t.Fatalf("activeRunId: want=%q got=%q", "b", *meta.ActiveRunID)
	}
	if meta.Status != actionsummary.StatusCompleted {
		t.Fatalf("status: want=%s got=%s", actionsummary.StatusCompleted, meta.Status)
	}
}

func TestRemoveActiveFallsBackToLast(t *testing.T) {
	meta := metaWithRuns("a", "b", "c")
	SelectRun(&meta, "b")
	meta.Status = actionsummary.StatusFailed
	meta.Error = "previous attempt failed"
	if _, ok := RemoveRun(&meta, "b"); !ok {
		t.Fatalf("RemoveRun: want=true")
	}
	if *meta.ActiveRunID != "c" {
		t.Fatalf("activeRunId: want=%q got=%q", "c", *meta.ActiveRunID)
	}
	if meta.Error != "" || meta.Status != actionsummary.StatusCompleted {
		t.Fatalf("status/error: got=%s/%q", meta.Status, meta.Error)
	}
}

func TestRemoveMissingRun(t *testing.T) {
	meta := metaWithRuns("a")
	if _, ok := RemoveRun(&meta, "zzz"); ok {
		t.Fatalf("RemoveRun(zzz): want=false")
	}
	if len(meta.Runs) != 1 {
		t.Fatalf("runs: want=1 got=%d", len(meta.Runs))
	}
}

func TestRunStoreOutputIsNormalized(t *testing.T) {
	meta := metaWithRuns("a", "b")
	RemoveRun(&meta, "b")
	if _, changed := Normalize(meta); changed {
		t.Fatalf("Normalize after RemoveRun reported changed")
	}
}
