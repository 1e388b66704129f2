package app

import (
	"strings"
	"time"

	"github.com/yungbote/actionsummary-backend/internal/data/db"
	"github.com/yungbote/actionsummary-backend/internal/modules/actionsummary/steps"
	"github.com/yungbote/actionsummary-backend/internal/observability"
	"github.com/yungbote/actionsummary-backend/internal/platform/analysisworker"
	"github.com/yungbote/actionsummary-backend/internal/platform/envutil"
	"github.com/yungbote/actionsummary-backend/internal/platform/gcp"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type Config struct {
	HTTPAddr      string
	ShutdownGrace time.Duration
	ServiceName   string
	Environment   string
	Version       string
	MetricsAddr   string
	Otel          observability.OtelConfig

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	DB db.Config

	ObjectStorageEnabled      bool
	ObjectStorageMode         string
	StorageEmulatorHost       string
	StorageModeCompatFallback bool
	ObjectStorage             gcp.ObjectStorageConfig

	SearchProvider           string
	SearchProviderModeSource string
	PineconeAPIKey           string
	PineconeAPIVersion       string
	PineconeBaseURL          string
	QdrantURL                string
	QdrantAPIKey             string
	QdrantCollection         string
	QdrantNamespacePrefix    string

	Worker analysisworker.Options

	TemplatePath          string
	CleanupMaxConcurrency int
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:      envutil.String("HTTP_ADDR", ":8080"),
		ShutdownGrace: envutil.Seconds("HTTP_SHUTDOWN_GRACE_SECONDS", 30*time.Second),
		ServiceName:   envutil.String("SERVICE_NAME", "actionsummary-api"),
		Environment:   envutil.String("APP_ENV", "development"),
		Version:       envutil.String("APP_VERSION", ""),
		MetricsAddr:   envutil.String("METRICS_ADDR", ""),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL: envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),

		DB: db.ConfigFromEnv(),

		StorageEmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
		ObjectStorage: gcp.ObjectStorageConfig{
			VideoBucket:       envutil.String("VIDEO_GCS_BUCKET_NAME", ""),
			VideoCDNDomain:    envutil.String("VIDEO_CDN_DOMAIN", ""),
			ArtifactBucket:    envutil.String("ARTIFACT_GCS_BUCKET_NAME", ""),
			ArtifactCDNDomain: envutil.String("ARTIFACT_CDN_DOMAIN", ""),
			PublicBaseURL:     strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""), "/"),
		},

		PineconeAPIKey:        envutil.String("PINECONE_API_KEY", ""),
		PineconeAPIVersion:    envutil.String("PINECONE_API_VERSION", ""),
		PineconeBaseURL:       envutil.String("PINECONE_BASE_URL", ""),
		QdrantURL:             envutil.String("QDRANT_URL", ""),
		QdrantAPIKey:          envutil.String("QDRANT_API_KEY", ""),
		QdrantCollection:      envutil.String("QDRANT_COLLECTION", ""),
		QdrantNamespacePrefix: envutil.String("QDRANT_NAMESPACE_PREFIX", "as"),

		Worker: analysisworker.Options{
			Endpoint:      envutil.String("ACTION_SUMMARY_WORKER_URL", analysisworker.DefaultEndpoint),
			FallbackHosts: envutil.List("ACTION_SUMMARY_WORKER_FALLBACK_HOSTS"),
			APIKey:        envutil.String("ACTION_SUMMARY_WORKER_API_KEY", ""),
			Timeout:       envutil.Seconds("ACTION_SUMMARY_WORKER_TIMEOUT_SECONDS", 0),
		},

		TemplatePath:          steps.TemplatePathFromEnv(),
		CleanupMaxConcurrency: envutil.Int("CLEANUP_MAX_CONCURRENCY", 4),
	}

	cfg.Otel = observability.OtelConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false),
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Headers:     envutil.Pairs("OTEL_EXPORTER_OTLP_HEADERS"),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
	}

	cfg.ObjectStorageMode = strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", ""))
	if cfg.ObjectStorageMode == "" {
		if cfg.StorageEmulatorHost != "" {
			cfg.ObjectStorageMode = string(gcp.ObjectStorageModeGCSEmulator)
			cfg.StorageModeCompatFallback = true
		} else {
			cfg.ObjectStorageMode = string(gcp.ObjectStorageModeGCS)
		}
	}
	cfg.ObjectStorageEnabled = envutil.Bool("OBJECT_STORAGE_ENABLED", cfg.ObjectStorage.VideoBucket != "")

	cfg.SearchProvider, cfg.SearchProviderModeSource = resolveSearchProviderName(
		envutil.String("SEARCH_INDEX_PROVIDER", ""),
		gcp.ObjectStorageMode(cfg.ObjectStorageMode),
	)

	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set; using insecure development secret")
		cfg.JWTSecretKey = "defaultsecret"
	}
	return cfg
}
