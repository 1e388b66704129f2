package qdrant

import (
	"errors"
	"testing"
)

func TestResolveConfigFromEnvValid(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "action_summaries")
	t.Setenv("QDRANT_NAMESPACE_PREFIX", "")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.URL != "http://qdrant:6333" {
		t.Fatalf("URL: want=%q got=%q", "http://qdrant:6333", cfg.URL)
	}
	if cfg.Collection != "action_summaries" {
		t.Fatalf("Collection: want=%q got=%q", "action_summaries", cfg.Collection)
	}
	if cfg.NamespacePrefix != "as" {
		t.Fatalf("NamespacePrefix default: want=%q got=%q", "as", cfg.NamespacePrefix)
	}
}

func TestResolveConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name       string
		url        string
		collection string
		want       ConfigErrorCode
	}{
		{name: "missing url", collection: "c", want: ConfigErrorMissingURL},
		{name: "invalid url", url: "qdrant:6333", collection: "c", want: ConfigErrorInvalidURL},
		{name: "missing collection", url: "http://qdrant:6333", want: ConfigErrorMissingCollection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.url)
			t.Setenv("QDRANT_COLLECTION", tc.collection)

			_, err := ResolveConfigFromEnv()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
			}
			if cfgErr.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, cfgErr.Code)
			}
		})
	}
}
