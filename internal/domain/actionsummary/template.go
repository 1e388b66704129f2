package actionsummary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TemplateField is one field the analysis should fill, with its instructions.
type TemplateField struct {
	Field       string `yaml:"field"`
	Description string `yaml:"description"`
}

// AnalysisTemplate is an ordered list of fields. On the wire it is a list of
// single-key objects: [{"summary": "..."}, {"actions": "..."}].
type AnalysisTemplate []TemplateField

func (t AnalysisTemplate) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.Wire())
}

// UnmarshalJSON accepts the list form (objects may carry several keys, read
// in document order) or a bare object. Non-string descriptions are rejected.
func (t *AnalysisTemplate) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*t = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	out := AnalysisTemplate{}
	switch tok {
	case json.Delim('['):
		for dec.More() {
			if err := readTemplateObject(dec, &out); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
	case json.Delim('{'):
		if err := readTemplatePairs(dec, &out); err != nil {
			return err
		}
	default:
		return fmt.Errorf("analysis template: expected list or object")
	}
	*t = out
	return nil
}

func readTemplateObject(dec *json.Decoder, out *AnalysisTemplate) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("analysis template: expected object entries")
	}
	return readTemplatePairs(dec, out)
}

// readTemplatePairs consumes key/value pairs up to and including the closing brace.
func readTemplatePairs(dec *json.Decoder, out *AnalysisTemplate) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var desc string
		if err := dec.Decode(&desc); err != nil {
			return fmt.Errorf("analysis template: field %q: %w", key, err)
		}
		if key = strings.TrimSpace(key); key != "" {
			*out = append(*out, TemplateField{Field: key, Description: desc})
		}
	}
	_, err := dec.Token()
	return err
}

// Wire renders the worker's list-of-objects form.
func (t AnalysisTemplate) Wire() []map[string]string {
	if t == nil {
		return nil
	}
	out := make([]map[string]string, 0, len(t))
	for _, f := range t {
		out = append(out, map[string]string{f.Field: f.Description})
	}
	return out
}
