package rag

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/metrics"
	"github.com/akolanti/docrag/internal/rag/llm"
	"github.com/akolanti/docrag/internal/rag/synthesizer"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/gabriel-vasile/mimetype"
)

func returnOutput(job jobModel.Job, result commonModels.QueryResult) jobModel.Job {
	job.JobPayload.Answer = result.Answer
	job.JobPayload.Sources = result.Sources
	job.JobPayload.Context = result.Context
	job.JobPayload.Cached = result.Cached
	job.CurrentStep = jobModel.Complete
	return job
}

func stepTracker(job *jobModel.Job, log *logger_i.Logger) func(jobModel.InternalStatus) {
	return func(step jobModel.InternalStatus) {
		job.CurrentStep = step
		log.Debug("ProcessRequest", "Current Status", step)
	}
}

// jobError keeps internal details out of the message for anything that maps to a 500.
func (s *service) jobError(job jobModel.Job, err error) jobModel.Job {
	code := ragErrors.HTTPStatus(err)
	s.logger.Error(ragErrors.Code(err), "JobId", job.Id, "step", job.CurrentStep, "error", err)

	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "Internal Server Error"
	}
	job.Error = jobModel.JobError{
		Code:    code,
		Kind:    ragErrors.Code(err),
		Message: message,
		Retry:   ragErrors.Retryable(err),
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeEmbeddingStep(ctx context.Context, track func(jobModel.InternalStatus), question string) ([]float32, error) {
	track(jobModel.EmbeddingAPICall)
	return s.index.EmbedQuery(ctx, question)
}

// a failing cache is a miss, never a failed query
func (s *service) executeCacheCheckStep(ctx context.Context, track func(jobModel.InternalStatus), scope string, vector []float32) (commonModels.QueryResult, bool) {
	track(jobModel.CacheCall)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	result, found, err := s.cache.GetCachedAnswer(ctx, scope, vector)
	if err != nil {
		s.logger.WithTrace(ctx).Warn("cache lookup failed", "error", err)
		return commonModels.QueryResult{}, false
	}
	metrics.CaptureCacheLookup(found)
	return result, found
}

func (s *service) executeRetrievalStep(ctx context.Context, track func(jobModel.InternalStatus), req commonModels.QueryRequest, vector []float32) ([]commonModels.RetrievedCandidate, error) {
	track(jobModel.VectorDBCall)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	return s.retriever.Retrieve(ctx, req.Question, vector, req.DocumentIds, req.MaxSources, req.Mode)
}

func (s *service) executeLLMStep(ctx context.Context, track func(jobModel.InternalStatus), req synthesizer.Request) (string, error) {
	track(jobModel.LLMCall)
	return s.generator.Generate(ctx, req)
}

func (s *service) executeCacheSaveStep(ctx context.Context, scope string, documentIds []string, vector []float32, result commonModels.QueryResult) {
	if err := s.cache.SaveToCache(ctx, scope, documentIds, vector, result); err != nil {
		s.logger.WithTrace(ctx).Warn("Failed to save to cache", "error", err)
	}
}

// cacheScope is independent of the order ids were given in. Anything that changes the answer
// or the number of sources is part of the key.
func cacheScope(req commonModels.QueryRequest) string {
	ids := slices.Clone(req.DocumentIds)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	temperature := "default"
	if req.Temperature != nil {
		temperature = strconv.FormatFloat(float64(*req.Temperature), 'f', -1, 32)
	}
	return fmt.Sprintf("%s|%s|k=%d|t=%s", strings.Join(ids, ","), req.Mode, req.MaxSources, temperature)
}

func buildContext(candidates []commonModels.RetrievedCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, c.Chunk.Chunk)
	}
	return strings.Join(parts, config.ContextSeparator)
}

func buildSources(candidates []commonModels.RetrievedCandidate) []commonModels.Source {
	sources := make([]commonModels.Source, 0, len(candidates))
	for _, c := range candidates {
		src := commonModels.Source{
			DocumentId: c.Chunk.DocumentId,
			Filename:   c.Chunk.Filename,
			Preview:    preview(c.Chunk.Chunk),
			Relevance:  c.Relevance,
			ChunkIndex: c.Chunk.Index,
		}
		if c.Chunk.PageNum > 0 {
			page := c.Chunk.PageNum
			src.Page = &page
		}
		sources = append(sources, src)
	}
	return sources
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= config.SourcePreviewLength {
		return content
	}
	return string([]rune(content)[:config.SourcePreviewLength]) + "..."
}

// decodeImage accepts raw base64 or a data URL. Only PNG and JPEG go to the vision model.
func decodeImage(encoded string) (*llm.ImageInput, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, err)
	}
	mt := mimetype.Detect(data)
	if !mt.Is("image/png") && !mt.Is("image/jpeg") {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, errors.New("image must be png or jpeg, got "+mt.String()))
	}
	return &llm.ImageInput{Data: data, MimeType: mt.String()}, nil
}
