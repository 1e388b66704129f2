package steps

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
)

const templatePathEnv = "ACTION_SUMMARY_TEMPLATE_PATH"

//go:embed default_template.yaml
var defaultTemplateFS embed.FS

type yamlTemplateSpec struct {
	Template string                        `yaml:"template"`
	Version  int                           `yaml:"version"`
	Fields   []actionsummary.TemplateField `yaml:"fields"`
}

// LoadDefaultTemplate reads the analysis template used when neither the
// request nor the document carries one. path overrides the embedded file.
func LoadDefaultTemplate(path string) (actionsummary.AnalysisTemplate, error) {
	data, err := readTemplateSpec(path)
	if err != nil {
		return nil, err
	}
	var spec yamlTemplateSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse analysis template: %w", err)
	}
	out := make(actionsummary.AnalysisTemplate, 0, len(spec.Fields))
	seen := map[string]bool{}
	for _, f := range spec.Fields {
		name := strings.TrimSpace(f.Field)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("analysis template: duplicate field %q", name)
		}
		seen[name] = true
		out = append(out, actionsummary.TemplateField{Field: name, Description: strings.TrimSpace(f.Description)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("analysis template: no fields")
	}
	return out, nil
}

// TemplatePathFromEnv returns the configured template override, if any.
func TemplatePathFromEnv() string {
	return strings.TrimSpace(os.Getenv(templatePathEnv))
}

func readTemplateSpec(path string) ([]byte, error) {
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read analysis template %s: %w", path, err)
		}
		return data, nil
	}
	return defaultTemplateFS.ReadFile("default_template.yaml")
}
