package pinecone

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

// SearchIndex is the write side of the document index the analysis worker
// publishes action summaries into. Both providers implement it.
type SearchIndex interface {
	DeleteDocuments(ctx context.Context, ids []string) error
	// DeleteByFilter removes every document whose metadata matches all
	// key/value pairs in filter.
	DeleteByFilter(ctx context.Context, filter map[string]any) error
}

type searchIndex struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
	namespace string
}

func NewSearchIndex(log *logger.Logger, pc Client) (SearchIndex, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX_NAME"))
	if indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}
	nsPrefix := strings.TrimSpace(os.Getenv("PINECONE_NAMESPACE_PREFIX"))
	if nsPrefix == "" {
		nsPrefix = "as"
	}
	ns := strings.TrimSpace(os.Getenv("PINECONE_NAMESPACE"))
	if ns == "" {
		ns = "action-summary"
	}

	host := strings.TrimSpace(os.Getenv("PINECONE_INDEX_HOST"))
	if host == "" {
		desc, err := pc.DescribeIndex(context.Background(), indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &searchIndex{
		log:       log.With("service", "PineconeSearchIndex"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		namespace: nsPrefix + ":" + ns,
	}, nil
}

func (s *searchIndex) DeleteDocuments(ctx context.Context, ids []string) error {
	clean := dedupeIDs(ids)
	if len(clean) == 0 {
		return nil
	}
	// Pinecone caps delete-by-id at 1000 ids per call.
	for start := 0; start < len(clean); start += 1000 {
		end := start + 1000
		if end > len(clean) {
			end = len(clean)
		}
		if err := s.pc.DeleteVectors(ctx, s.indexHost, DeleteRequest{Namespace: s.namespace, IDs: clean[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

func (s *searchIndex) DeleteByFilter(ctx context.Context, filter map[string]any) error {
	if len(filter) == 0 {
		return fmt.Errorf("refusing to delete with an empty filter")
	}
	translated := make(map[string]any, len(filter))
	for k, v := range filter {
		if _, isOp := v.(map[string]any); isOp {
			translated[k] = v
			continue
		}
		translated[k] = map[string]any{"$eq": v}
	}
	return s.pc.DeleteVectors(ctx, s.indexHost, DeleteRequest{Namespace: s.namespace, Filter: translated})
}

func dedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
