package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type bucketConfig struct {
	name      string
	cdnDomain string
}

// ObjectRef addresses one object in one of the configured buckets.
type ObjectRef struct {
	Bucket string
	Key    string
}

func (r ObjectRef) String() string { return "gs://" + r.Bucket + "/" + r.Key }

type BucketService interface {
	// DeleteObject removes ref; an object that is already gone is not an error.
	DeleteObject(ctx context.Context, ref ObjectRef) error
	// ParseObjectURL recognises gs:// URIs and every public URL form this
	// service hands out, limited to the configured buckets.
	ParseObjectURL(raw string) (ObjectRef, bool)
	Close() error
}

type bucketService struct {
	log            *logger.Logger
	storageClient  *storage.Client
	videoBucket    bucketConfig
	artifactBucket bucketConfig
	publicBaseURL  string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	storageCfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewBucketServiceWithConfig(log, storageCfg)
}

func NewBucketServiceWithConfig(log *logger.Logger, storageCfg ObjectStorageConfig) (BucketService, error) {
	if err := ValidateObjectStorageConfig(storageCfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")

	publicBaseURL := storageCfg.PublicBaseURL
	publicBaseSource := "object_storage_public_base_url"
	if publicBaseURL == "" && storageCfg.IsEmulatorMode() {
		publicBaseURL = strings.TrimRight(storageCfg.EmulatorHost, "/")
		publicBaseSource = "storage_emulator_host"
	} else if publicBaseURL == "" {
		publicBaseSource = "gcs_default"
	}

	stClient, err := newStorageClientForMode(context.Background(), storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"emulator_host", storageCfg.EmulatorHost,
		"public_base_source", publicBaseSource,
		"public_base_url", publicBaseURL,
		"video_bucket", storageCfg.VideoBucket,
		"artifact_bucket", storageCfg.ArtifactBucket,
	)

	return &bucketService{
		log:            serviceLog,
		storageClient:  stClient,
		videoBucket:    bucketConfig{name: storageCfg.VideoBucket, cdnDomain: storageCfg.VideoCDNDomain},
		artifactBucket: bucketConfig{name: storageCfg.ArtifactBucket, cdnDomain: storageCfg.ArtifactCDNDomain},
		publicBaseURL:  publicBaseURL,
	}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg ObjectStorageConfig) (*storage.Client, error) {
	switch storageCfg.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Mode: string(storageCfg.Mode)}
	}
}

func (bs *bucketService) buckets() []bucketConfig {
	return []bucketConfig{bs.videoBucket, bs.artifactBucket}
}

func (bs *bucketService) knownBucket(name string) bool {
	if name == "" {
		return false
	}
	for _, b := range bs.buckets() {
		if b.name == name {
			return true
		}
	}
	return false
}

func (bs *bucketService) DeleteObject(ctx context.Context, ref ObjectRef) error {
	if !bs.knownBucket(ref.Bucket) {
		return fmt.Errorf("refusing to delete from unconfigured bucket %q", ref.Bucket)
	}
	if strings.TrimSpace(ref.Key) == "" {
		return fmt.Errorf("empty object key for bucket %q", ref.Bucket)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := bs.storageClient.Bucket(ref.Bucket).Object(ref.Key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		bs.log.Debug("object already deleted", "object", ref.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", ref.Key, ref.Bucket, err)
	}
	return nil
}

func (bs *bucketService) Close() error {
	if bs == nil || bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}

func (bs *bucketService) ParseObjectURL(raw string) (ObjectRef, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ObjectRef{}, false
	}
	ref, ok := parseObjectURL(raw, bs)
	if !ok || !bs.knownBucket(ref.Bucket) || ref.Key == "" {
		return ObjectRef{}, false
	}
	return ref, true
}

func parseObjectURL(raw string, bs *bucketService) (ObjectRef, bool) {
	if strings.HasPrefix(raw, "gs://") {
		bucket, key, _ := strings.Cut(strings.TrimPrefix(raw, "gs://"), "/")
		return ObjectRef{Bucket: bucket, Key: key}, true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ObjectRef{}, false
	}
	host := strings.ToLower(u.Host)
	path := strings.TrimLeft(u.EscapedPath(), "/")

	// JSON API media form: <base>/storage/v1/b/<bucket>/o/<escaped key>
	if i := strings.Index(path, "storage/v1/b/"); i >= 0 {
		rest := path[i+len("storage/v1/b/"):]
		bucket, escKey, found := strings.Cut(rest, "/o/")
		if !found {
			return ObjectRef{}, false
		}
		return unescapedRef(bucket, escKey)
	}

	for _, b := range bs.buckets() {
		if b.cdnDomain != "" && host == strings.ToLower(b.cdnDomain) {
			return unescapedRef(b.name, path)
		}
	}

	switch {
	case host == "storage.googleapis.com" || host == "storage.cloud.google.com":
		bucket, escKey, _ := strings.Cut(path, "/")
		return unescapedRef(bucket, escKey)
	case strings.HasSuffix(host, ".storage.googleapis.com"):
		return unescapedRef(strings.TrimSuffix(host, ".storage.googleapis.com"), path)
	}

	if base := strings.TrimRight(bs.publicBaseURL, "/"); base != "" {
		if bu, err := url.Parse(base); err == nil && strings.EqualFold(bu.Host, u.Host) {
			rest := strings.TrimLeft(strings.TrimPrefix(path, strings.Trim(bu.EscapedPath(), "/")), "/")
			bucket, escKey, _ := strings.Cut(rest, "/")
			return unescapedRef(bucket, escKey)
		}
	}
	return ObjectRef{}, false
}

func unescapedRef(bucket, escKey string) (ObjectRef, bool) {
	key, err := url.PathUnescape(escKey)
	if err != nil {
		return ObjectRef{}, false
	}
	b, err := url.PathUnescape(bucket)
	if err != nil {
		return ObjectRef{}, false
	}
	return ObjectRef{Bucket: b, Key: key}, true
}
