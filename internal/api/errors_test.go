package api

import (
	"alumconnect/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"Validation", fmt.Errorf("%w: status must be accepted or rejected", models.ErrValidation), http.StatusBadRequest, "validation failed: status must be accepted or rejected"},
		{"Duplicate", models.ErrDuplicateEdge, http.StatusBadRequest, models.ErrDuplicateEdge.Error()},
		{"UserExists", models.ErrUserExists, http.StatusBadRequest, models.ErrUserExists.Error()},
		{"NotFound", fmt.Errorf("profile x: %w", models.ErrNotFound), http.StatusNotFound, "profile x: not found"},
		{"Unauthorized", models.ErrUnauthorized, http.StatusUnauthorized, models.ErrUnauthorized.Error()},
		{"Forbidden", models.ErrForbidden, http.StatusForbidden, models.ErrForbidden.Error()},
		{"NotPending", models.ErrNotPending, http.StatusConflict, models.ErrNotPending.Error()},
		{"Upstream", fmt.Errorf("%w: disk on fire", models.ErrUpstream), http.StatusInternalServerError, "internal error"},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body models.APIError
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error != tt.wantBody {
				t.Errorf("error = %q, want %q", body.Error, tt.wantBody)
			}
		})
	}
}
