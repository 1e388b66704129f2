package actionsummary

import "encoding/json"

// SchemaVersion is stamped on every normalized Meta.
const SchemaVersion = 2

type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Filters scopes a run's search documents to their owning resource.
type Filters struct {
	OrganizationID string `json:"organizationId,omitempty"`
	CollectionID   string `json:"collectionId,omitempty"`
	ContentID      string `json:"contentId,omitempty"`
}

func (f *Filters) IsZero() bool {
	return f == nil || (f.OrganizationID == "" && f.CollectionID == "" && f.ContentID == "")
}

// Run is one recorded attempt of the action-summary analysis.
type Run struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name,omitempty"`
	Analysis           json.RawMessage  `json:"analysis,omitempty"`
	Result             json.RawMessage  `json:"result,omitempty"`
	AnalysisOutputPath string           `json:"analysisOutputPath,omitempty"`
	StorageArtifacts   map[string]any   `json:"storageArtifacts,omitempty"`
	SearchUploads      []any            `json:"searchUploads,omitempty"`
	AnalysisTemplate   AnalysisTemplate `json:"analysisTemplate,omitempty"`
	Config             *Config          `json:"config,omitempty"`
	Filters            *Filters         `json:"filters,omitempty"`
	ManifestPath       string           `json:"manifestPath,omitempty"`
	ManifestURL        string           `json:"manifestUrl,omitempty"`
	VideoURL           string           `json:"videoUrl,omitempty"`
	StorageURL         string           `json:"storageUrl,omitempty"`
	Metadata           map[string]any   `json:"metadata,omitempty"`
	CreatedAt          string           `json:"createdAt,omitempty"`
	RequestedAt        string           `json:"requestedAt,omitempty"`
	CompletedAt        string           `json:"completedAt,omitempty"`
}

// Meta is the per-resource action-summary document.
//
// When Runs is non-empty ActiveRunID names one of them; when Runs is empty
// ActiveRunID, LastRunAt, ManifestPath and ManifestURL are null. The
// analysis/result/artifact fields mirror the active run and double as the
// single-run layout older documents were written in.
type Meta struct {
	SchemaVersion    int              `json:"schemaVersion"`
	Status           Status           `json:"status"`
	Error            string           `json:"error,omitempty"`
	RequestedAt      string           `json:"requestedAt,omitempty"`
	Config           *Config          `json:"config,omitempty"`
	AnalysisTemplate AnalysisTemplate `json:"analysisTemplate,omitempty"`
	Filters          *Filters         `json:"filters,omitempty"`

	Runs         []Run   `json:"runs"`
	ActiveRunID  *string `json:"activeRunId"`
	LastRunAt    *string `json:"lastRunAt"`
	ManifestPath *string `json:"manifestPath"`
	ManifestURL  *string `json:"manifestUrl"`

	Analysis           json.RawMessage `json:"analysis,omitempty"`
	Result             json.RawMessage `json:"result,omitempty"`
	AnalysisOutputPath string          `json:"analysisOutputPath,omitempty"`
	StorageArtifacts   map[string]any  `json:"storageArtifacts,omitempty"`
	SearchUploads      []any           `json:"searchUploads,omitempty"`
}

// RunIndex returns the position of the run with id, or -1.
func (m *Meta) RunIndex(id string) int {
	if m == nil || id == "" {
		return -1
	}
	for i := range m.Runs {
		if m.Runs[i].ID == id {
			return i
		}
	}
	return -1
}

// ActiveRun returns the run ActiveRunID points at, if any.
func (m *Meta) ActiveRun() *Run {
	if m == nil || m.ActiveRunID == nil {
		return nil
	}
	if i := m.RunIndex(*m.ActiveRunID); i >= 0 {
		return &m.Runs[i]
	}
	return nil
}

// Clone deep-copies m through its JSON form.
func (m Meta) Clone() Meta {
	raw, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out Meta
	if err := json.Unmarshal(raw, &out); err != nil {
		return m
	}
	return out
}
