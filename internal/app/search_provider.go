package app

import (
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"
	"time"

	"github.com/yungbote/actionsummary-backend/internal/platform/gcp"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
	"github.com/yungbote/actionsummary-backend/internal/platform/pinecone"
	"github.com/yungbote/actionsummary-backend/internal/platform/qdrant"
)

type SearchProvider string

const (
	SearchProviderPinecone SearchProvider = "pinecone"
	SearchProviderQdrant   SearchProvider = "qdrant"
	SearchProviderNone     SearchProvider = "none"
)

var (
	newPineconeClient      = pinecone.New
	newPineconeSearchIndex = pinecone.NewSearchIndex
	newQdrantSearchIndex   = qdrant.NewSearchIndex
)

type SearchProviderBootstrapErrorCode string

const (
	SearchProviderBootstrapErrorInvalidProvider    SearchProviderBootstrapErrorCode = "invalid_provider"
	SearchProviderBootstrapErrorMissingQdrantURL   SearchProviderBootstrapErrorCode = "missing_qdrant_url"
	SearchProviderBootstrapErrorInvalidQdrantURL   SearchProviderBootstrapErrorCode = "invalid_qdrant_url"
	SearchProviderBootstrapErrorMissingQdrantColl  SearchProviderBootstrapErrorCode = "missing_qdrant_collection"
	SearchProviderBootstrapErrorQdrantConfigFailed SearchProviderBootstrapErrorCode = "qdrant_config_failed"
	SearchProviderBootstrapErrorConnectFailed      SearchProviderBootstrapErrorCode = "connect_failed"
	SearchProviderBootstrapErrorProviderInitFailed SearchProviderBootstrapErrorCode = "provider_init_failed"
)

type SearchProviderBootstrapError struct {
	Code              SearchProviderBootstrapErrorCode
	Provider          string
	ObjectStorageMode string
	Cause             error
}

func (e *SearchProviderBootstrapError) Error() string {
	if e == nil {
		return "search provider bootstrap failed"
	}
	return fmt.Sprintf(
		"search provider bootstrap failed (code=%s provider=%q object_storage_mode=%q): %v",
		e.Code,
		e.Provider,
		e.ObjectStorageMode,
		e.Cause,
	)
}

func (e *SearchProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveSearchProviderName picks the provider and reports where the choice
// came from. Without an explicit value the object storage mode decides:
// the emulator stack pairs with qdrant, real GCS with pinecone.
func resolveSearchProviderName(raw string, mode gcp.ObjectStorageMode) (string, string) {
	if v := strings.ToLower(strings.TrimSpace(raw)); v != "" {
		return v, "explicit"
	}
	if mode == gcp.ObjectStorageModeGCSEmulator {
		return string(SearchProviderQdrant), "object_storage_mode_default"
	}
	return string(SearchProviderPinecone), "object_storage_mode_default"
}

// resolveSearchIndex returns a nil index without error when search cleanup is
// disabled; the cleanup coordinator then marks those tasks skipped.
func resolveSearchIndex(log *logger.Logger, cfg Config) (pinecone.SearchIndex, error) {
	mode := strings.TrimSpace(strings.ToLower(cfg.ObjectStorageMode))
	provider := strings.TrimSpace(strings.ToLower(cfg.SearchProvider))
	modeSource := strings.TrimSpace(cfg.SearchProviderModeSource)
	if modeSource == "" {
		modeSource = "object_storage_mode_default"
	}

	fail := func(err error) (pinecone.SearchIndex, error) {
		classified := classifySearchProviderBootstrapError(provider, mode, err)
		log.Error(
			"Search provider bootstrap failed",
			"provider", provider,
			"object_storage_mode", mode,
			"provider_mode_source", modeSource,
			"error_code", searchProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}

	switch SearchProvider(provider) {
	case SearchProviderNone:
		log.Warn("Search index disabled; indexed summaries will not be cleaned up", "provider_mode_source", modeSource)
		return nil, nil

	case SearchProviderQdrant:
		log.Info(
			"Selecting search provider",
			"provider", provider,
			"object_storage_mode", mode,
			"provider_mode_source", modeSource,
			"qdrant_url", cfg.QdrantURL,
			"qdrant_collection", cfg.QdrantCollection,
			"qdrant_namespace_prefix", cfg.QdrantNamespacePrefix,
		)
		idx, err := newQdrantSearchIndex(log, qdrant.Config{
			URL:             strings.TrimSpace(cfg.QdrantURL),
			APIKey:          strings.TrimSpace(cfg.QdrantAPIKey),
			Collection:      strings.TrimSpace(cfg.QdrantCollection),
			NamespacePrefix: strings.TrimSpace(cfg.QdrantNamespacePrefix),
		})
		if err != nil {
			return fail(err)
		}
		return instrumentSearchIndex(provider, idx), nil

	case SearchProviderPinecone:
		log.Info(
			"Selecting search provider",
			"provider", provider,
			"object_storage_mode", mode,
			"provider_mode_source", modeSource,
		)
		if strings.TrimSpace(cfg.PineconeAPIKey) == "" {
			log.Warn("PINECONE_API_KEY not set; search index cleanup disabled")
			return nil, nil
		}
		pc, err := newPineconeClient(log, pinecone.Config{
			APIKey:     strings.TrimSpace(cfg.PineconeAPIKey),
			APIVersion: strings.TrimSpace(cfg.PineconeAPIVersion),
			BaseURL:    strings.TrimSpace(cfg.PineconeBaseURL),
			Timeout:    30 * time.Second,
		})
		if err != nil {
			return fail(err)
		}
		idx, err := newPineconeSearchIndex(log, pc)
		if err != nil {
			return fail(err)
		}
		return instrumentSearchIndex(provider, idx), nil

	default:
		err := &SearchProviderBootstrapError{
			Code:              SearchProviderBootstrapErrorInvalidProvider,
			Provider:          provider,
			ObjectStorageMode: mode,
			Cause:             fmt.Errorf("unsupported search provider %q", provider),
		}
		log.Error(
			"Search provider selection failed",
			"provider", provider,
			"object_storage_mode", mode,
			"provider_mode_source", modeSource,
			"error_code", err.Code,
			"error", err,
		)
		return nil, err
	}
}

func classifySearchProviderBootstrapError(provider, objectStorageMode string, err error) error {
	wrap := func(code SearchProviderBootstrapErrorCode) error {
		return &SearchProviderBootstrapError{
			Code:              code,
			Provider:          provider,
			ObjectStorageMode: objectStorageMode,
			Cause:             err,
		}
	}

	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return wrap(SearchProviderBootstrapErrorConnectFailed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(SearchProviderBootstrapErrorConnectFailed)
	}
	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "ready check failed") || strings.Contains(errLower, "connection refused") {
		return wrap(SearchProviderBootstrapErrorConnectFailed)
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(SearchProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(SearchProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(SearchProviderBootstrapErrorMissingQdrantColl)
		default:
			return wrap(SearchProviderBootstrapErrorQdrantConfigFailed)
		}
	}
	return wrap(SearchProviderBootstrapErrorProviderInitFailed)
}

func searchProviderBootstrapErrorCode(err error) SearchProviderBootstrapErrorCode {
	var bootstrapErr *SearchProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return SearchProviderBootstrapErrorConnectFailed
}
