package steps

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
)

type fieldKind int

const (
	kindPositiveInt fieldKind = iota
	kindPositiveFloat
	kindBool
	kindString
)

type configField struct {
	key      string
	aliases  []string
	kind     fieldKind
	nullable bool
}

// configFields lists every processing option with its accepted spellings.
// The first key present in a source wins.
var configFields = []configField{
	{key: "segment_length", aliases: []string{"segmentLength"}, kind: kindPositiveInt},
	{key: "fps", kind: kindPositiveFloat},
	{key: "max_workers", aliases: []string{"maxWorkers"}, kind: kindPositiveInt, nullable: true},
	{key: "run_async", aliases: []string{"runAsync"}, kind: kindBool},
	{key: "overwrite_output", aliases: []string{"overwriteOutput"}, kind: kindBool},
	{key: "reprocess_segments", aliases: []string{"reprocessSegments"}, kind: kindBool},
	{key: "generate_transcripts", aliases: []string{"generateTranscripts"}, kind: kindBool},
	{key: "trim_to_nearest_second", aliases: []string{"trimToNearestSecond"}, kind: kindBool},
	{key: "allow_partial_segments", aliases: []string{"allowPartialSegments"}, kind: kindBool},
	{key: "publish_to_object_store", aliases: []string{"publishToObjectStore", "upload_to_azure", "uploadToAzure"}, kind: kindBool},
	{key: "skip_preprocess", aliases: []string{"skipPreprocess"}, kind: kindBool},
	{key: "output_directory", aliases: []string{"outputDirectory"}, kind: kindString, nullable: true},
	{key: "lens_prompt", aliases: []string{"lensPrompt"}, kind: kindString, nullable: true},
}

// Sanitize returns the subset of source that coerces to a valid value, keyed
// by canonical name, and its size. An explicit null is kept for nullable
// fields and means "clear".
func Sanitize(source map[string]any) (map[string]any, int) {
	out := map[string]any{}
	for _, f := range configFields {
		raw, ok := lookupField(source, f)
		if !ok {
			continue
		}
		if raw == nil {
			if f.nullable {
				out[f.key] = nil
			}
			continue
		}
		if v, ok := coerceValue(f.kind, raw); ok {
			out[f.key] = v
		}
	}
	return out, len(out)
}

func lookupField(source map[string]any, f configField) (any, bool) {
	if source == nil {
		return nil, false
	}
	if v, ok := source[f.key]; ok {
		return v, true
	}
	for _, a := range f.aliases {
		if v, ok := source[a]; ok {
			return v, true
		}
	}
	return nil, false
}

func coerceValue(kind fieldKind, raw any) (any, bool) {
	switch kind {
	case kindPositiveInt:
		n, ok := toFloat(raw)
		if !ok {
			return nil, false
		}
		i := int(math.Trunc(n))
		if i <= 0 {
			return nil, false
		}
		return i, true
	case kindPositiveFloat:
		n, ok := toFloat(raw)
		if !ok || n <= 0 {
			return nil, false
		}
		return n, true
	case kindBool:
		return toBool(raw)
	case kindString:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, true
		}
		return s, true
	}
	return nil, false
}

func toFloat(raw any) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case int32:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toBool(raw any) (any, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off":
			return false, true
		}
		return nil, false
	}
	n, ok := toFloat(raw)
	if !ok {
		return nil, false
	}
	switch n {
	case 1:
		return true, true
	case 0:
		return false, true
	}
	return nil, false
}

// applySanitized writes sanitized values onto cfg. Keys must come from Sanitize.
func applySanitized(cfg *actionsummary.Config, values map[string]any) {
	for key, v := range values {
		switch key {
		case "segment_length":
			cfg.SegmentLength = v.(int)
		case "fps":
			cfg.FPS = v.(float64)
		case "max_workers":
			if v == nil {
				cfg.MaxWorkers = nil
			} else {
				n := v.(int)
				cfg.MaxWorkers = &n
			}
		case "run_async":
			cfg.RunAsync = v.(bool)
		case "overwrite_output":
			cfg.OverwriteOutput = v.(bool)
		case "reprocess_segments":
			cfg.ReprocessSegments = v.(bool)
		case "generate_transcripts":
			cfg.GenerateTranscripts = v.(bool)
		case "trim_to_nearest_second":
			cfg.TrimToNearestSecond = v.(bool)
		case "allow_partial_segments":
			cfg.AllowPartialSegments = v.(bool)
		case "publish_to_object_store":
			cfg.PublishToObjectStore = v.(bool)
		case "skip_preprocess":
			cfg.SkipPreprocess = v.(bool)
		case "output_directory":
			cfg.OutputDirectory = optionalString(v)
		case "lens_prompt":
			cfg.LensPrompt = optionalString(v)
		}
	}
}

func optionalString(v any) *string {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	return &s
}

// configMap renders cfg in its canonical JSON object form.
func configMap(cfg actionsummary.Config) map[string]any {
	raw, _ := json.Marshal(cfg)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out
}
