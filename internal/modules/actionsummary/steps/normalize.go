package steps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
)

// runIDNamespace seeds the ids given to stored runs that never had one.
var runIDNamespace = uuid.MustParse("0b7f8a4e-5d1c-4c55-9a8e-2f3d6c1b7e90")

// legacyKeys are the top-level fields of documents written before runs existed.
var legacyKeys = []string{"result", "analysis", "analysisOutputPath", "storageArtifacts", "searchUploads"}

// Normalize converts a stored action-summary document of any known shape into
// a canonical Meta. changed reports whether the stored form differs from the
// canonical one in a way worth persisting. Normalize is pure and idempotent.
func Normalize(raw any) (actionsummary.Meta, bool) {
	obj, changed := toObject(raw)
	meta := actionsummary.Meta{SchemaVersion: actionsummary.SchemaVersion, Runs: []actionsummary.Run{}}
	if obj == nil {
		meta.Status = actionsummary.StatusQueued
		return meta, changed
	}

	n := &normalizer{}
	n.changed = changed
	n.mark(resolveAliases(obj, documentAliases))

	meta.RequestedAt = n.str(obj, "requestedAt")
	meta.Config = n.config(obj)
	meta.AnalysisTemplate = n.template(obj)
	meta.Filters = n.filters(obj)
	meta.Analysis = n.rawJSON(obj, "analysis")
	meta.Result = n.rawJSON(obj, "result")
	meta.AnalysisOutputPath = n.str(obj, "analysisOutputPath")
	meta.StorageArtifacts = n.object(obj, "storageArtifacts")
	meta.SearchUploads = n.list(obj, "searchUploads")

	meta.Runs = n.runs(obj)
	if len(meta.Runs) == 0 && hasLegacyData(obj) {
		meta.Runs = []actionsummary.Run{legacyRun(&meta, obj)}
		n.mark(true)
	}

	activeID := n.str(obj, "activeRunId")
	lastRunAt := n.str(obj, "lastRunAt")
	manifestPath := n.str(obj, "manifestPath")
	manifestURL := n.str(obj, "manifestUrl")

	if len(meta.Runs) == 0 {
		if activeID != "" || lastRunAt != "" || manifestPath != "" || manifestURL != "" {
			n.mark(true)
		}
	} else {
		if meta.RunIndex(activeID) < 0 {
			activeID = meta.Runs[len(meta.Runs)-1].ID
			n.mark(true)
		}
		meta.ActiveRunID = &activeID
		active := meta.ActiveRun()
		meta.LastRunAt = optional(firstNonEmpty(lastRunAt, RunTimestamp(active)))
		meta.ManifestPath = optional(firstNonEmpty(manifestPath, active.ManifestPath))
		meta.ManifestURL = optional(firstNonEmpty(manifestURL, active.ManifestURL))
		backfillFromRun(&meta, active)
	}

	meta.Status, meta.Error = n.status(obj, len(meta.Runs) > 0)
	return meta, n.changed
}

// RunTimestamp is the most specific time recorded on run.
func RunTimestamp(run *actionsummary.Run) string {
	if run == nil {
		return ""
	}
	return firstNonEmpty(run.CompletedAt, run.CreatedAt, run.RequestedAt)
}

type normalizer struct {
	changed bool
}

func (n *normalizer) mark(v bool) {
	if v {
		n.changed = true
	}
}

func (n *normalizer) str(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		n.mark(true)
		return ""
	}
	return s
}

func (n *normalizer) object(obj map[string]any, key string) map[string]any {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		n.mark(true)
		return nil
	}
	return m
}

func (n *normalizer) list(obj map[string]any, key string) []any {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		n.mark(true)
		return nil
	}
	return l
}

func (n *normalizer) rawJSON(obj map[string]any, key string) json.RawMessage {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		n.mark(true)
		return nil
	}
	return b
}

func (n *normalizer) config(obj map[string]any) *actionsummary.Config {
	m := n.object(obj, "config")
	if m == nil {
		return nil
	}
	cfg, differs := coerceStoredConfig(m)
	n.mark(differs)
	return &cfg
}

func (n *normalizer) template(obj map[string]any) actionsummary.AnalysisTemplate {
	v, ok := obj["analysisTemplate"]
	if !ok || v == nil {
		return nil
	}
	b, isRaw := v.(json.RawMessage)
	if !isRaw {
		var err error
		if b, err = json.Marshal(v); err != nil {
			n.mark(true)
			return nil
		}
	}
	var tpl actionsummary.AnalysisTemplate
	if err := json.Unmarshal(b, &tpl); err != nil {
		n.mark(true)
		return nil
	}
	canonical, _ := json.Marshal(tpl)
	n.mark(!jsonEqualBytes(b, canonical))
	if len(tpl) == 0 {
		return nil
	}
	return tpl
}

func (n *normalizer) filters(obj map[string]any) *actionsummary.Filters {
	m := n.object(obj, "filters")
	if m == nil {
		return nil
	}
	n.mark(resolveAliases(m, filterAliases))
	f := &actionsummary.Filters{
		OrganizationID: n.str(m, "organizationId"),
		CollectionID:   n.str(m, "collectionId"),
		ContentID:      n.str(m, "contentId"),
	}
	if f.IsZero() {
		return nil
	}
	return f
}

func (n *normalizer) runs(obj map[string]any) []actionsummary.Run {
	v, ok := obj["runs"]
	if !ok || v == nil {
		return []actionsummary.Run{}
	}
	items, ok := v.([]any)
	if !ok {
		n.mark(true)
		return []actionsummary.Run{}
	}
	out := make([]actionsummary.Run, 0, len(items))
	seen := map[string]bool{}
	for i, item := range items {
		ro, ok := item.(map[string]any)
		if !ok {
			n.mark(true)
			continue
		}
		run := n.run(ro, i)
		if seen[run.ID] {
			n.mark(true)
			continue
		}
		seen[run.ID] = true
		out = append(out, run)
	}
	return out
}

func (n *normalizer) run(obj map[string]any, pos int) actionsummary.Run {
	n.mark(resolveAliases(obj, documentAliases))
	rawID := n.str(obj, "id")
	id := strings.TrimSpace(rawID)
	n.mark(id != rawID)
	if id == "" {
		id = derivedRunID(obj, pos)
		n.mark(true)
	}
	return actionsummary.Run{
		ID:                 id,
		Name:               n.str(obj, "name"),
		Analysis:           n.rawJSON(obj, "analysis"),
		Result:             n.rawJSON(obj, "result"),
		AnalysisOutputPath: n.str(obj, "analysisOutputPath"),
		StorageArtifacts:   n.object(obj, "storageArtifacts"),
		SearchUploads:      n.list(obj, "searchUploads"),
		AnalysisTemplate:   n.template(obj),
		Config:             n.config(obj),
		Filters:            n.filters(obj),
		ManifestPath:       n.str(obj, "manifestPath"),
		ManifestURL:        n.str(obj, "manifestUrl"),
		VideoURL:           n.str(obj, "videoUrl"),
		StorageURL:         n.str(obj, "storageUrl"),
		Metadata:           n.object(obj, "metadata"),
		CreatedAt:          n.str(obj, "createdAt"),
		RequestedAt:        n.str(obj, "requestedAt"),
		CompletedAt:        n.str(obj, "completedAt"),
	}
}

// status keeps a recognised status; anything else is derived from whether
// runs exist. An error message survives only on FAILED.
func (n *normalizer) status(obj map[string]any, hasRuns bool) (actionsummary.Status, string) {
	derived := actionsummary.StatusQueued
	if hasRuns {
		derived = actionsummary.StatusCompleted
	}
	raw := n.str(obj, "status")
	st := actionsummary.Status(raw)
	if raw == "" {
		st = derived
	} else if !st.Valid() {
		n.mark(true)
		st = derived
	}
	msg := n.str(obj, "error")
	if msg != "" && st != actionsummary.StatusFailed {
		n.mark(true)
		msg = ""
	}
	return st, msg
}

func hasLegacyData(obj map[string]any) bool {
	for _, k := range legacyKeys {
		if !isEmptyValue(obj[k]) {
			return true
		}
	}
	return false
}

// legacyRun builds the single implicit run of a pre-runs document from the
// already normalized top-level fields.
func legacyRun(meta *actionsummary.Meta, obj map[string]any) actionsummary.Run {
	manifestPath, _ := obj["manifestPath"].(string)
	manifestURL, _ := obj["manifestUrl"].(string)
	lastRunAt, _ := obj["lastRunAt"].(string)
	completedAt, _ := obj["completedAt"].(string)
	createdAt, _ := obj["createdAt"].(string)
	return actionsummary.Run{
		ID:                 derivedRunID(obj, 0),
		Analysis:           meta.Analysis,
		Result:             meta.Result,
		AnalysisOutputPath: meta.AnalysisOutputPath,
		StorageArtifacts:   meta.StorageArtifacts,
		SearchUploads:      meta.SearchUploads,
		AnalysisTemplate:   meta.AnalysisTemplate,
		Config:             meta.Config,
		Filters:            meta.Filters,
		ManifestPath:       manifestPath,
		ManifestURL:        manifestURL,
		CreatedAt:          firstNonEmpty(createdAt, meta.RequestedAt),
		RequestedAt:        meta.RequestedAt,
		CompletedAt:        firstNonEmpty(completedAt, lastRunAt),
	}
}

// backfillFromRun fills empty document fields from the active run.
func backfillFromRun(meta *actionsummary.Meta, run *actionsummary.Run) {
	if run == nil {
		return
	}
	if len(meta.AnalysisTemplate) == 0 {
		meta.AnalysisTemplate = run.AnalysisTemplate
	}
	if meta.Config == nil {
		meta.Config = run.Config
	}
	if meta.Filters.IsZero() {
		meta.Filters = run.Filters
	}
	if len(meta.Analysis) == 0 {
		meta.Analysis = run.Analysis
	}
	if len(meta.Result) == 0 {
		meta.Result = run.Result
	}
	if meta.AnalysisOutputPath == "" {
		meta.AnalysisOutputPath = run.AnalysisOutputPath
	}
	if len(meta.StorageArtifacts) == 0 {
		meta.StorageArtifacts = run.StorageArtifacts
	}
	if len(meta.SearchUploads) == 0 {
		meta.SearchUploads = run.SearchUploads
	}
}

// derivedRunID is stable for the same run content at the same position.
func derivedRunID(obj map[string]any, pos int) string {
	b, _ := json.Marshal(obj)
	var canonical any
	if json.Unmarshal(b, &canonical) == nil {
		b, _ = json.Marshal(canonical)
	}
	return uuid.NewSHA1(runIDNamespace, []byte(fmt.Sprintf("%d:%s", pos, b))).String()
}

func toObject(raw any) (map[string]any, bool) {
	var b []byte
	switch v := raw.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return cloneMap(v), false
	case actionsummary.Meta:
		b, _ = json.Marshal(v)
	case *actionsummary.Meta:
		if v == nil {
			return nil, false
		}
		b, _ = json.Marshal(v)
	case json.RawMessage:
		b = v
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		var err error
		if b, err = json.Marshal(v); err != nil {
			return nil, true
		}
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		return nil, true
	}
	keepTemplateOrder(obj, b)
	return obj, false
}

var templateKeys = []string{"analysisTemplate", "analysis_template"}

// keepTemplateOrder replaces decoded templates, top-level and per run, with
// their raw bytes. Decoding into a map loses the author's field order.
func keepTemplateOrder(obj map[string]any, b []byte) {
	var top map[string]json.RawMessage
	if json.Unmarshal(b, &top) != nil {
		return
	}
	swapRawTemplates(obj, top)

	runs, ok := obj["runs"].([]any)
	if !ok {
		return
	}
	var rawRuns []json.RawMessage
	if json.Unmarshal(top["runs"], &rawRuns) != nil || len(rawRuns) != len(runs) {
		return
	}
	for i, r := range runs {
		ro, ok := r.(map[string]any)
		if !ok {
			continue
		}
		var fields map[string]json.RawMessage
		if json.Unmarshal(rawRuns[i], &fields) == nil {
			swapRawTemplates(ro, fields)
		}
	}
}

func swapRawTemplates(obj map[string]any, raw map[string]json.RawMessage) {
	for _, key := range templateKeys {
		if v, ok := obj[key]; ok && v != nil && len(raw[key]) > 0 {
			obj[key] = raw[key]
		}
	}
}

// cloneMap deep-copies a decoded JSON object so normalization never mutates
// its input.
func cloneMap(m map[string]any) map[string]any {
	b, err := json.Marshal(m)
	if err != nil {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	return out
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

func jsonEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return jsonEqualBytes(ab, bb)
}

func jsonEqualBytes(a, b []byte) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IsHTTPURL reports whether s is an absolute http(s) URL.
func IsHTTPURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
