package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/actionsummary-backend/internal/platform/apierr"
)

func TestRespondAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"classified", apierr.NotFound("content %s not found", "c-1"), http.StatusNotFound, apierr.CodeNotFound},
		{"wrapped", fmt.Errorf("create: %w", apierr.UpstreamRejected(422, errors.New("bad video"))), 422, apierr.CodeUpstreamRejected},
		{"plain", errors.New("boom"), http.StatusInternalServerError, apierr.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondAPIError(c, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d", tc.wantStatus, rec.Code)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if env.Error.Code != tc.wantCode {
				t.Fatalf("code: want=%s got=%s", tc.wantCode, env.Error.Code)
			}
			if env.Error.Message == "" {
				t.Fatalf("message: want non-empty")
			}
		})
	}
}
