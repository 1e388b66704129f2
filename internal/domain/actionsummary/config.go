package actionsummary

// Config is the fully resolved set of processing options sent to the worker.
type Config struct {
	SegmentLength        int     `json:"segment_length"`
	FPS                  float64 `json:"fps"`
	MaxWorkers           *int    `json:"max_workers"`
	RunAsync             bool    `json:"run_async"`
	OverwriteOutput      bool    `json:"overwrite_output"`
	ReprocessSegments    bool    `json:"reprocess_segments"`
	GenerateTranscripts  bool    `json:"generate_transcripts"`
	TrimToNearestSecond  bool    `json:"trim_to_nearest_second"`
	AllowPartialSegments bool    `json:"allow_partial_segments"`
	PublishToObjectStore bool    `json:"publish_to_object_store"`
	SkipPreprocess       bool    `json:"skip_preprocess"`
	OutputDirectory      *string `json:"output_directory"`
	LensPrompt           *string `json:"lens_prompt"`
}

func DefaultConfig() Config {
	return Config{
		SegmentLength:        10,
		FPS:                  1,
		RunAsync:             true,
		OverwriteOutput:      true,
		ReprocessSegments:    false,
		GenerateTranscripts:  true,
		TrimToNearestSecond:  false,
		AllowPartialSegments: true,
		PublishToObjectStore: true,
		SkipPreprocess:       false,
	}
}
