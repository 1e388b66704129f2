package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

func TestDeleteDocumentsRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestSearchIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method: want=%s got=%s", http.MethodPost, r.Method)
		}
		if r.URL.Path != "/collections/action_summaries/points/delete" {
			t.Fatalf("path: want=%q got=%q", "/collections/action_summaries/points/delete", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	if err := s.DeleteDocuments(context.Background(), []string{"doc-1", "doc-1", " ", "doc-2"}); err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
	}
	points, ok := captured["points"].([]any)
	if !ok || len(points) != 2 {
		t.Fatalf("points: want 2 deduped ids got=%v", captured["points"])
	}
	if points[0] != PointID("as:action-summary", "doc-1") {
		t.Fatalf("point id mismatch: got=%v", points[0])
	}
}

func TestDeleteByFilterScopesToNamespace(t *testing.T) {
	var captured map[string]any
	s := newTestSearchIndex(t, func(r *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, nil), nil
	})

	if err := s.DeleteByFilter(context.Background(), map[string]any{"contentId": "c-1"}); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}
	filter, _ := captured["filter"].(map[string]any)
	must, _ := filter["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("must: want 2 conditions got=%v", filter)
	}
	ns, _ := must[0].(map[string]any)
	if ns["key"] != payloadNamespaceKey {
		t.Fatalf("first condition must pin namespace, got=%v", ns)
	}

	err := s.DeleteByFilter(context.Background(), map[string]any{})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("empty filter: want validation OperationError got=%v", err)
	}
}

func TestDeleteDocumentsSurfacesStatusErrors(t *testing.T) {
	s := newTestSearchIndex(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewBufferString(`{"status":{"error":"boom"}}`)),
		}, nil
	})
	err := s.DeleteDocuments(context.Background(), []string{"doc-1"})
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.StatusCode != http.StatusInternalServerError || opErr.Code != OperationErrorRequestFailed {
		t.Fatalf("error: want status=500 code=%q got status=%d code=%q", OperationErrorRequestFailed, opErr.StatusCode, opErr.Code)
	}
}

func TestClassifyHTTPCallErrorTransport(t *testing.T) {
	err := classifyHTTPCallError("delete", "transport", fmt.Errorf("boom"))
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorTransportFailed {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTransportFailed, opErr.Code)
	}
	err = classifyHTTPCallError("delete", "timeout", context.DeadlineExceeded)
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorTimeout {
		t.Fatalf("deadline: want code=%q got=%v", OperationErrorTimeout, err)
	}
}

func newTestSearchIndex(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *searchIndex {
	t.Helper()
	return &searchIndex{
		log:     newTestLogger(t),
		cfg:     Config{Collection: "action_summaries"},
		baseURL: "http://qdrant.local",
		ns:      "as:action-summary",
		http:    &http.Client{Transport: roundTripFunc(roundTrip)},
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"result": result, "status": "ok", "time": 0.001})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
