package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	apperrors "improbable-love/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestAppError_WrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperrors.NewNetworkError("request failed", cause)

	assert.Equal(t, "request failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NETWORK_ERROR", err.Code)
}

func TestTypeOf_FindsWrappedAppError(t *testing.T) {
	inner := apperrors.NewMalformedOutputError("bad json", nil)
	wrapped := fmt.Errorf("analyze: %w", inner)

	assert.Equal(t, apperrors.ErrorTypeMalformedOutput, apperrors.TypeOf(wrapped))
	assert.True(t, apperrors.IsType(wrapped, apperrors.ErrorTypeMalformedOutput))
	assert.False(t, apperrors.IsBadRequestError(wrapped))
	assert.Equal(t, apperrors.ErrorType(""), apperrors.TypeOf(errors.New("plain")))
	assert.False(t, apperrors.IsType(nil, apperrors.ErrorTypeBadRequest))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.NewBadRequestError("missing input", nil), http.StatusBadRequest},
		{apperrors.NewGenerationError("upstream down", nil), http.StatusInternalServerError},
		{apperrors.NewMalformedOutputError("bad json", nil), http.StatusInternalServerError},
		{apperrors.NewLookupError("api error", nil), http.StatusBadGateway},
		{errors.New("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, apperrors.HTTPStatus(tt.err), tt.err.Error())
	}
}
