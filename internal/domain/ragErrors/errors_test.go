package ragErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageError_UnwrapsToKind(t *testing.T) {
	cause := errors.New("xref table missing")
	err := Wrap(StageExtract, "report.pdf", Kind(ErrFormat, cause))

	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "report.pdf")
	assert.Contains(t, err.Error(), "xref table missing")

	var se *StageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, StageExtract, se.Stage)
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(StageStore, "doc", nil))
}

func TestKind_DoesNotDoubleWrap(t *testing.T) {
	err := Kind(ErrEmbedding, fmt.Errorf("batch 2: %w", ErrEmbedding))
	assert.Equal(t, "batch 2: embedding provider failed", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Wrap(StageExtract, "a.xyz", ErrFormat), http.StatusBadRequest},
		{ErrEncoding, http.StatusBadRequest},
		{ErrNoTables, http.StatusUnprocessableEntity},
		{ErrOCREngineUnavailable, http.StatusServiceUnavailable},
		{Kind(ErrGeneration, errors.New("timeout")), http.StatusBadGateway},
		{ErrEmbedding, http.StatusBadGateway},
		{ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestRetryableAndCode(t *testing.T) {
	assert.True(t, Retryable(Kind(ErrEmbedding, errors.New("429"))))
	assert.False(t, Retryable(ErrFormat))
	assert.Equal(t, "ENCODING_ERROR", Code(Wrap(StageExtract, "x.txt", ErrEncoding)))
	assert.Equal(t, "", Code(nil))
}
