package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

func TestRespondErrorStatus(t *testing.T) {
	errStock := errors.New("stock")
	cases := map[string]struct {
		err  error
		want int
	}{
		"not found":       {fmt.Errorf("load: %w", shared.ErrNotFound), http.StatusNotFound},
		"idempotency":     {shared.ErrIdempotencyConflict, http.StatusConflict},
		"conflict":        {Classify(errStock, ErrConflict, errStock), http.StatusConflict},
		"validation":      {ErrValidation, http.StatusBadRequest},
		"period":          {shared.ErrInvalidPeriod, http.StatusBadRequest},
		"unauthenticated": {shared.ErrUnauthenticated, http.StatusUnauthorized},
		"credentials":     {shared.ErrInvalidCredentials, http.StatusUnauthorized},
		"unknown":         {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			require.Equal(t, tc.want, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var body ProblemDetail
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.want, body.Status)
		})
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: password authentication failed"))

	var body ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Empty(t, body.Detail)
}

func TestClassifyLeavesUnmatchedErrors(t *testing.T) {
	target := errors.New("target")
	other := errors.New("other")

	assert.Same(t, other, Classify(other, ErrValidation, target))

	wrapped := Classify(fmt.Errorf("ctx: %w", target), ErrValidation, target)
	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.ErrorIs(t, wrapped, target)
}
