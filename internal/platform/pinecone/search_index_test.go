package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestSearchIndex(t *testing.T, rt roundTripFunc) *searchIndex {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	c, err := newClient(log, Config{APIKey: "k"}, rt)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	return &searchIndex{log: log, pc: c, indexHost: "idx.svc.pinecone.io", namespace: "as:action-summary"}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestDeleteDocumentsDedupesAndTargetsNamespace(t *testing.T) {
	var captured DeleteRequest
	calls := 0
	s := newTestSearchIndex(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if r.URL.String() != "https://idx.svc.pinecone.io/vectors/delete" {
			t.Fatalf("url: want=%q got=%q", "https://idx.svc.pinecone.io/vectors/delete", r.URL.String())
		}
		if r.Header.Get("Api-Key") != "k" {
			t.Fatalf("missing Api-Key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return jsonResponse(http.StatusOK, "{}"), nil
	})

	if err := s.DeleteDocuments(context.Background(), []string{"doc-1", " doc-1 ", "", "doc-2"}); err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
	if captured.Namespace != "as:action-summary" {
		t.Fatalf("namespace: want=%q got=%q", "as:action-summary", captured.Namespace)
	}
	if len(captured.IDs) != 2 || captured.IDs[0] != "doc-1" || captured.IDs[1] != "doc-2" {
		t.Fatalf("ids: want=[doc-1 doc-2] got=%v", captured.IDs)
	}

	if err := s.DeleteDocuments(context.Background(), nil); err != nil || calls != 1 {
		t.Fatalf("empty delete should not call pinecone: err=%v calls=%d", err, calls)
	}
}

func TestDeleteByFilterWrapsScalarsInEq(t *testing.T) {
	var captured map[string]any
	s := newTestSearchIndex(t, func(r *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return jsonResponse(http.StatusOK, ""), nil
	})

	if err := s.DeleteByFilter(context.Background(), map[string]any{"contentId": "c-1"}); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}
	filter, _ := captured["filter"].(map[string]any)
	cond, _ := filter["contentId"].(map[string]any)
	if cond["$eq"] != "c-1" {
		t.Fatalf("filter: want contentId $eq c-1 got=%v", captured["filter"])
	}
	if err := s.DeleteByFilter(context.Background(), nil); err == nil {
		t.Fatalf("DeleteByFilter(nil): expected error")
	}
}

func TestDeleteSurfacesHTTPError(t *testing.T) {
	s := newTestSearchIndex(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"message":"denied"}`), nil
	})
	err := s.DeleteDocuments(context.Background(), []string{"doc-1"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T (%v)", err, err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Fatalf("status: want=%d got=%d", http.StatusForbidden, httpErr.StatusCode)
	}
}
