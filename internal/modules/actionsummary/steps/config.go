package steps

import (
	"github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
)

// ResolveConfig merges, later layers winning: defaults, upload-time options
// (fps excluded), the saved config and the caller's override. The result is
// always fully populated.
func ResolveConfig(existing *actionsummary.Meta, upload, override map[string]any) actionsummary.Config {
	cfg := actionsummary.DefaultConfig()

	uploadValues, _ := Sanitize(upload)
	delete(uploadValues, "fps")
	applySanitized(&cfg, uploadValues)

	if saved := savedConfig(existing); saved != nil {
		savedValues, _ := Sanitize(configMap(*saved))
		applySanitized(&cfg, savedValues)
	}

	overrideValues, _ := Sanitize(override)
	applySanitized(&cfg, overrideValues)

	if ref := manifestReference(existing); ref != "" && !IsHTTPURL(ref) {
		cfg.SkipPreprocess = true
	}
	return cfg
}

func savedConfig(meta *actionsummary.Meta) *actionsummary.Config {
	if meta == nil {
		return nil
	}
	if meta.Config != nil {
		return meta.Config
	}
	if run := meta.ActiveRun(); run != nil {
		return run.Config
	}
	return nil
}

// manifestReference is the manifest a new run can reuse: the document's
// derived value, else the active run's.
func manifestReference(meta *actionsummary.Meta) string {
	if meta == nil {
		return ""
	}
	if meta.ManifestPath != nil && *meta.ManifestPath != "" {
		return *meta.ManifestPath
	}
	if meta.ManifestURL != nil && *meta.ManifestURL != "" {
		return *meta.ManifestURL
	}
	if run := meta.ActiveRun(); run != nil {
		if run.ManifestPath != "" {
			return run.ManifestPath
		}
		return run.ManifestURL
	}
	return ""
}

// ManifestReference exposes the reusable manifest reference for a document.
func ManifestReference(meta *actionsummary.Meta) string { return manifestReference(meta) }

// coerceStoredConfig re-reads a persisted config object. The second return
// reports whether the stored form differed from the canonical encoding.
func coerceStoredConfig(raw map[string]any) (actionsummary.Config, bool) {
	cfg := actionsummary.DefaultConfig()
	values, _ := Sanitize(raw)
	applySanitized(&cfg, values)
	return cfg, !jsonEqual(raw, configMap(cfg))
}
