package app

import (
	"context"
	"time"

	"github.com/yungbote/actionsummary-backend/internal/observability"
	"github.com/yungbote/actionsummary-backend/internal/platform/pinecone"
)

type instrumentedSearchIndex struct {
	provider string
	inner    pinecone.SearchIndex
	metrics  *observability.Metrics
}

func instrumentSearchIndex(provider string, inner pinecone.SearchIndex) pinecone.SearchIndex {
	if inner == nil {
		return nil
	}
	return &instrumentedSearchIndex{
		provider: provider,
		inner:    inner,
		metrics:  observability.Current(),
	}
}

func (s *instrumentedSearchIndex) DeleteDocuments(ctx context.Context, ids []string) error {
	start := time.Now()
	err := s.inner.DeleteDocuments(ctx, ids)
	s.observe("delete_documents", err, time.Since(start))
	return err
}

func (s *instrumentedSearchIndex) DeleteByFilter(ctx context.Context, filter map[string]any) error {
	start := time.Now()
	err := s.inner.DeleteByFilter(ctx, filter)
	s.observe("delete_by_filter", err, time.Since(start))
	return err
}

func (s *instrumentedSearchIndex) observe(operation string, err error, dur time.Duration) {
	if s == nil || s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveSearchOperation(s.provider, operation, status, dur)
}
