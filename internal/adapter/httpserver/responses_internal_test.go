package httpserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNoCandidates, http.StatusUnprocessableEntity, "NO_CANDIDATES"},
		{domain.ErrInvalidRating, http.StatusUnprocessableEntity, "INVALID_RATING"},
		{domain.ErrInvalidArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
		{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{domain.ErrUpstreamTimeout, http.StatusServiceUnavailable, "UPSTREAM_TIMEOUT"},
		{domain.ErrUpstreamRateLimit, http.StatusServiceUnavailable, "UPSTREAM_RATE_LIMIT"},
		{domain.ErrSchemaInvalid, http.StatusServiceUnavailable, "SCHEMA_INVALID"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("wrap: %w", tc.err), nil)
		assert.Equal(t, tc.status, rec.Code, tc.code)
		assert.Contains(t, rec.Body.String(), tc.code)
	}
}

func TestWriteError_WrappedErrorsStillMap(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("score: %w", fmt.Errorf("candidate 0 (Ada): %w", domain.ErrInvalidRating))
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), err, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
