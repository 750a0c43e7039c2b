package ragErrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrFormat               = errors.New("unsupported or unreadable document")
	ErrEncoding             = errors.New("text could not be decoded with any supported encoding")
	ErrOCREngineUnavailable = errors.New("ocr engine is not installed")
	ErrNoTables             = errors.New("database contains no tables")
	ErrEmbedding            = errors.New("embedding provider failed")
	ErrGeneration           = errors.New("generation provider failed")
	ErrNotFound             = errors.New("document not found")
	ErrIndex                = errors.New("vector index failed")
)

type Stage string

const (
	StageExtract    Stage = "extract"
	StageChunk      Stage = "chunk"
	StageEmbed      Stage = "embed"
	StageStore      Stage = "store"
	StageRetrieve   Stage = "retrieve"
	StageGenerate   Stage = "generate"
	StageDelete     Stage = "delete"
)

// StageError localizes a failure to a pipeline stage and the file or document it was working on.
type StageError struct {
	Stage   Stage
	Subject string
	Err     error
}

func (e *StageError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Stage, e.Subject, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err.
func Wrap(stage Stage, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Subject: subject, Err: err}
}

// Kind joins a sentinel to a cause so both errors.Is(err, kind) and the original message survive.
func Kind(kind error, cause error) error {
	if cause == nil {
		return kind
	}
	if errors.Is(cause, kind) {
		return cause
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoTables):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrFormat), errors.Is(err, ErrEncoding):
		return http.StatusBadRequest
	case errors.Is(err, ErrOCREngineUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrEmbedding), errors.Is(err, ErrGeneration), errors.Is(err, ErrIndex):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable is true for provider-side failures.
func Retryable(err error) bool {
	return errors.Is(err, ErrEmbedding) || errors.Is(err, ErrGeneration) || errors.Is(err, ErrIndex)
}

// Code is the machine-readable name reported to clients.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrNoTables):
		return "NO_TABLES"
	case errors.Is(err, ErrEncoding):
		return "ENCODING_ERROR"
	case errors.Is(err, ErrFormat):
		return "FORMAT_ERROR"
	case errors.Is(err, ErrOCREngineUnavailable):
		return "OCR_ENGINE_UNAVAILABLE"
	case errors.Is(err, ErrEmbedding):
		return "EMBEDDING_FAILURE"
	case errors.Is(err, ErrGeneration):
		return "LLM_GENERATION_FAILURE"
	case errors.Is(err, ErrIndex):
		return "VECTOR_DB_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}
