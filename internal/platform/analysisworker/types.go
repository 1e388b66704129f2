package analysisworker

import "encoding/json"

// ActionSummaryRequest is the body of POST /analysis/action-summary.
// Field names follow the worker's API.
type ActionSummaryRequest struct {
	VideoPath    string `json:"video_path,omitempty"`
	ManifestPath string `json:"manifest_path,omitempty"`

	OutputDirectory      *string `json:"output_directory,omitempty"`
	SegmentLength        int     `json:"segment_length"`
	FPS                  float64 `json:"fps"`
	MaxWorkers           *int    `json:"max_workers,omitempty"`
	RunAsync             bool    `json:"run_async"`
	OverwriteOutput      bool    `json:"overwrite_output"`
	ReprocessSegments    bool    `json:"reprocess_segments"`
	GenerateTranscripts  bool    `json:"generate_transcripts"`
	TrimToNearestSecond  bool    `json:"trim_to_nearest_second"`
	AllowPartialSegments bool    `json:"allow_partial_segments"`
	PublishToObjectStore bool    `json:"upload_to_azure"`
	SkipPreprocess       bool    `json:"skip_preprocess"`
	LensPrompt           *string `json:"lens_prompt,omitempty"`

	Organization     string  `json:"organization,omitempty"`
	Collection       string  `json:"collection,omitempty"`
	User             string  `json:"user,omitempty"`
	VideoID          string  `json:"video_id,omitempty"`
	OrganizationName *string `json:"organization_name,omitempty"`
	CollectionName   *string `json:"collection_name,omitempty"`
	UserName         *string `json:"user_name,omitempty"`
	VideoURL         string  `json:"video_url,omitempty"`

	AnalysisTemplate []map[string]string `json:"analysis_template,omitempty"`
}

// ActionSummaryResponse is the worker's success payload. Payload members
// are kept raw; the engine stores them without interpreting them.
type ActionSummaryResponse struct {
	Analysis           json.RawMessage `json:"analysis,omitempty"`
	Result             json.RawMessage `json:"result,omitempty"`
	ManifestPath       string          `json:"manifest_path,omitempty"`
	AnalysisOutputPath string          `json:"analysis_output_path,omitempty"`
	StorageArtifacts   map[string]any  `json:"storage_artifacts,omitempty"`
	SearchUploads      []any           `json:"search_uploads,omitempty"`
	Metadata           map[string]any  `json:"metadata,omitempty"`
	AnalysisTemplate   json.RawMessage `json:"analysis_template,omitempty"`
}
