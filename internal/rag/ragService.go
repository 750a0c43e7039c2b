package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/metrics"
	"github.com/akolanti/docrag/internal/rag/synthesizer"
	"github.com/akolanti/docrag/internal/rag/vectorDB"
	"github.com/akolanti/docrag/pkg/logger_i"
)

// Service is what the worker and the outer surfaces call. The private struct holds the
// pipeline pieces so callers never touch the index or the providers directly.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, history []commonModels.ConversationTurn) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job

	Query(ctx context.Context, req commonModels.QueryRequest) (commonModels.QueryResult, error)
	DeleteDocument(ctx context.Context, documentId string) (uint64, error)
	Stats(ctx context.Context) commonModels.IndexStats
}

type Ingester interface {
	Ingest(ctx context.Context, doc commonModels.Document) (int, error)
}

type Index interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Delete(ctx context.Context, documentId string) (uint64, error)
	Stats(ctx context.Context) commonModels.IndexStats
}

type Retriever interface {
	Retrieve(ctx context.Context, question string, vector []float32, documentIds []string, k int, mode commonModels.RetrievalMode) ([]commonModels.RetrievedCandidate, error)
}

type Generator interface {
	Generate(ctx context.Context, req synthesizer.Request) (string, error)
}

type Deps struct {
	Ingester  Ingester
	Index     Index
	Retriever Retriever
	Generator Generator
	// Cache is optional.
	Cache vectorDB.AnswerCache
}

type service struct {
	ingester  Ingester
	index     Index
	retriever Retriever
	generator Generator
	cache     vectorDB.AnswerCache
	logger    *logger_i.Logger
}

func NewService(d Deps) Service {
	return &service{
		ingester:  d.Ingester,
		index:     d.Index,
		retriever: d.Retriever,
		generator: d.Generator,
		cache:     d.Cache,
		logger:    logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, job jobModel.Job, history []commonModels.ConversationTurn) jobModel.Job {
	log := s.logger.WithTrace(ctx).With("JobId", job.Id)

	processContext, cancel := context.WithTimeout(ctx, config.QueryJobTimeout)
	defer cancel()

	job.CurrentStep = jobModel.RAGCall
	p := job.JobPayload
	result, err := s.query(processContext, commonModels.QueryRequest{
		Question:    p.Question,
		DocumentIds: p.DocumentIds,
		MaxSources:  p.MaxSources,
		Temperature: p.Temperature,
		Mode:        p.Mode,
		History:     history,
		ImageBase64: p.ImageBase64,
	}, stepTracker(&job, log))
	if err != nil {
		return s.jobError(job, err)
	}
	return returnOutput(job, result)
}

func (s *service) Query(ctx context.Context, req commonModels.QueryRequest) (commonModels.QueryResult, error) {
	log := s.logger.WithTrace(ctx)
	return s.query(ctx, req, func(step jobModel.InternalStatus) {
		log.Debug("Query", "step", step)
	})
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	p := job.JobPayload
	log := s.logger.WithTrace(ctx).With("JobId", job.Id, "document_id", p.DocumentId)
	doc := commonModels.Document{
		Id:                  p.DocumentId,
		Name:                p.IngestFileName,
		Path:                p.IngestURL,
		Extension:           strings.TrimPrefix(strings.ToLower(filepath.Ext(p.IngestFileName)), "."),
		ContentType:         commonModels.GetDocType(p.IngestFileName),
		LastIngestTimestamp: time.Now().UTC(),
	}

	job.CurrentStep = jobModel.IngestProcessing
	persisted, err := s.ingester.Ingest(ctx, doc)
	if err != nil {
		// a store failure may have landed writes that were never acknowledged, so persisted can undercount
		var stageErr *ragErrors.StageError
		if persisted > 0 || (errors.As(err, &stageErr) && stageErr.Stage == ragErrors.StageStore) {
			job.CurrentStep = jobModel.IngestRollback
			s.rollback(ctx, doc.Id, persisted, log)
		}
		return s.jobError(job, err)
	}

	job.JobPayload.ChunkCount = persisted
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

// rollback runs on a fresh deadline because the ingest context may be the one that expired.
func (s *service) rollback(ctx context.Context, documentId string, persisted int, log *logger_i.Logger) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.ProviderCallTimeout)
	defer cancel()

	removed, err := s.index.Delete(rbCtx, documentId)
	if err != nil {
		log.Error("rollback failed, chunks left behind", "persisted", persisted, "error", err)
		return
	}
	log.Warn("rolled back partial ingestion", "persisted", persisted, "removed", removed)
}

func (s *service) DeleteDocument(ctx context.Context, documentId string) (uint64, error) {
	if documentId == "" {
		return 0, ragErrors.Kind(ragErrors.ErrNotFound, errors.New("empty document id"))
	}
	removed, err := s.index.Delete(ctx, documentId)
	if err != nil {
		return 0, ragErrors.Wrap(ragErrors.StageDelete, documentId, err)
	}
	return removed, nil
}

func (s *service) Stats(ctx context.Context) commonModels.IndexStats {
	return s.index.Stats(ctx)
}

func (s *service) query(ctx context.Context, req commonModels.QueryRequest, track func(jobModel.InternalStatus)) (commonModels.QueryResult, error) {
	req = normalize(req)
	if strings.TrimSpace(req.Question) == "" {
		return commonModels.QueryResult{}, ragErrors.Kind(ragErrors.ErrFormat, errors.New("empty question"))
	}
	if len(req.DocumentIds) == 0 {
		return commonModels.QueryResult{}, ragErrors.Kind(ragErrors.ErrFormat, errors.New("at least one document id is required"))
	}

	image, err := decodeImage(req.ImageBase64)
	if err != nil {
		return commonModels.QueryResult{}, err
	}

	vector, err := s.executeEmbeddingStep(ctx, track, req.Question)
	if err != nil {
		return commonModels.QueryResult{}, ragErrors.Wrap(ragErrors.StageEmbed, "", err)
	}

	// conversational and image questions depend on more than the text, so they skip the cache
	cacheable := s.cache != nil && len(req.History) == 0 && image == nil
	scope := cacheScope(req)
	if cacheable {
		if cached, found := s.executeCacheCheckStep(ctx, track, scope, vector); found {
			return cached, nil
		}
	}

	candidates, err := s.executeRetrievalStep(ctx, track, req, vector)
	if err != nil {
		return commonModels.QueryResult{}, ragErrors.Wrap(ragErrors.StageRetrieve, "", err)
	}

	contextText := buildContext(candidates)
	answer, err := s.executeLLMStep(ctx, track, synthesizer.Request{
		Question:    req.Question,
		Context:     contextText,
		History:     req.History,
		Temperature: req.Temperature,
		Image:       image,
	})
	if err != nil {
		return commonModels.QueryResult{}, err
	}

	result := commonModels.QueryResult{
		Answer:  answer,
		Sources: buildSources(candidates),
		Context: contextText,
	}
	if cacheable && len(candidates) > 0 {
		s.executeCacheSaveStep(ctx, scope, req.DocumentIds, vector, result)
	}
	return result, nil
}

func normalize(req commonModels.QueryRequest) commonModels.QueryRequest {
	switch {
	case req.MaxSources <= 0:
		req.MaxSources = config.DefaultMaxSources
	case req.MaxSources > config.MaxSourcesLimit:
		req.MaxSources = config.MaxSourcesLimit
	}
	if req.Mode == "" {
		req.Mode = commonModels.ModeVector
	}
	if len(req.History) > config.ConversationHistoryTurns {
		req.History = req.History[len(req.History)-config.ConversationHistoryTurns:]
	}
	return req
}
