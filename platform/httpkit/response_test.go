package httpkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"casaviva_backend/platform/apperr"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return c, rec
}

func TestHandleErrorNil(t *testing.T) {
	c, _ := newTestContext(t)
	if HandleError(c, nil) {
		t.Fatal("nil error reported as handled")
	}
}

func TestHandleErrorStatusFromKind(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "typed error",
			err:        apperr.NotFound("lead not found"),
			wantStatus: http.StatusNotFound,
			wantBody:   "lead not found",
		},
		{
			name:       "wrapped typed error",
			err:        fmt.Errorf("qualify lead: %w", apperr.Conflict("stage already set")),
			wantStatus: http.StatusConflict,
			wantBody:   "stage already set",
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("unexpected input"),
			wantStatus: http.StatusBadRequest,
			wantBody:   "unexpected input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext(t)
			if !HandleError(c, tt.err) {
				t.Fatal("error not handled")
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.wantBody {
				t.Errorf("error message = %q, want %q", body.Error, tt.wantBody)
			}
		})
	}
}
