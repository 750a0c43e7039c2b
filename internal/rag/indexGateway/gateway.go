package indexGateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/metrics"
	"github.com/akolanti/docrag/internal/rag/embedding"
	"github.com/akolanti/docrag/internal/rag/vectorDB"
	"github.com/akolanti/docrag/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

// Gateway pairs the embedder with the chunk index. Everything that writes or counts vectors goes through it.
type Gateway struct {
	embedder       embedding.Embedder
	index          vectorDB.DataProcessor
	cache          vectorDB.AnswerCache
	batchSize      int
	concurrency    int
	hugeThreshold  int
	statsScanLimit int
	logger         *logger_i.Logger
}

type Option func(*Gateway)

func WithBatchSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// WithAnswerCache lets Delete drop cached answers that cited the removed document.
func WithAnswerCache(c vectorDB.AnswerCache) Option {
	return func(g *Gateway) { g.cache = c }
}

func WithStatsScanLimit(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.statsScanLimit = n
		}
	}
}

func New(e embedding.Embedder, index vectorDB.DataProcessor, opts ...Option) *Gateway {
	g := &Gateway{
		embedder:       e,
		index:          index,
		batchSize:      config.EmbeddingBatchSize,
		concurrency:    config.EmbeddingBatchConcurrency,
		hugeThreshold:  config.HugeDocumentChunkCount,
		statsScanLimit: config.StatsScrollLimit,
		logger:         logger_i.NewLogger("index_gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Distance() commonModels.DistanceKind {
	return g.index.Distance()
}

// Store embeds and upserts chunks in batches. The returned count is what reached the index,
// also when err is non-nil, so the caller knows whether there is anything to roll back.
func (g *Gateway) Store(ctx context.Context, chunks []commonModels.DocChunk, documentId string) (int, error) {
	log := g.logger.WithTrace(ctx).With("document_id", documentId, "chunks", len(chunks))
	if len(chunks) == 0 {
		return 0, nil
	}
	for i := range chunks {
		chunks[i].DocumentId = documentId
	}

	isHugeDataSet := len(chunks) > g.hugeThreshold
	if isHugeDataSet {
		log.Debug("Is a huge dataset")
	}

	var persisted atomic.Int64
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(g.concurrency)

	for i := 0; i < len(chunks); i += g.batchSize {
		batch := chunks[i:min(i+g.batchSize, len(chunks))]
		offset := i
		grp.Go(func() error {
			if err := g.storeBatch(grpCtx, batch, isHugeDataSet); err != nil {
				log.Error("batch failed", "offset", offset, "error", err)
				return err
			}
			persisted.Add(int64(len(batch)))
			return nil
		})
	}

	err := grp.Wait()
	n := int(persisted.Load())
	if err != nil {
		return n, err
	}
	log.Info("stored chunks", "persisted", n)
	return n, nil
}

func (g *Gateway) storeBatch(ctx context.Context, batch []commonModels.DocChunk, isHugeDataSet bool) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Chunk
	}

	start := time.Now()
	vectors, err := g.embedder.BatchEmbedding(ctx, texts, isHugeDataSet)
	metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start))
	if err != nil {
		return ragErrors.Kind(ragErrors.ErrEmbedding, fmt.Errorf("embedding batch failed: %w", err))
	}
	if len(vectors) != len(batch) {
		return ragErrors.Kind(ragErrors.ErrEmbedding, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch)))
	}

	start = time.Now()
	err = g.index.UpsertBatch(ctx, batch, vectors)
	metrics.CaptureExecutionMetrics("vector_upsert", time.Since(start))
	if err != nil {
		return ragErrors.Kind(ragErrors.ErrIndex, fmt.Errorf("upserting batch failed: %w", err))
	}
	return nil
}

// Delete removes every chunk of the document. A document with no chunks is not an error.
func (g *Gateway) Delete(ctx context.Context, documentId string) (uint64, error) {
	log := g.logger.WithTrace(ctx).With("document_id", documentId)

	removed, err := g.index.DeleteByDocument(ctx, documentId)
	if err != nil {
		log.Error("delete failed", "error", err)
		return 0, ragErrors.Kind(ragErrors.ErrIndex, err)
	}
	if g.cache != nil {
		if err := g.cache.InvalidateDocument(ctx, documentId); err != nil {
			log.Warn("cache invalidation failed", "error", err)
		}
	}
	log.Info("deleted chunks", "removed", removed)
	return removed, nil
}

// Stats never fails. An unreachable index is reported as degraded with zero counts.
func (g *Gateway) Stats(ctx context.Context) commonModels.IndexStats {
	total, err := g.index.Count(ctx)
	if err != nil {
		return degraded(err)
	}
	docs, exact, err := g.index.DistinctDocuments(ctx, g.statsScanLimit)
	if err != nil {
		return degraded(err)
	}
	return commonModels.IndexStats{
		TotalChunks:        total,
		DocumentCount:      docs,
		DocumentCountExact: exact,
		Status:             commonModels.Healthy,
	}
}

func degraded(err error) commonModels.IndexStats {
	return commonModels.IndexStats{Status: commonModels.Degraded, Error: err.Error()}
}

func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	v, err := g.embedder.GetEmbedding(ctx, text)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, err)
	}
	if len(v) == 0 {
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, errors.New("empty query embedding"))
	}
	return v, nil
}

func (g *Gateway) Search(ctx context.Context, vector []float32, documentIds []string, k int) ([]commonModels.ScoredChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	hits, err := g.index.Search(ctx, vector, documentIds, k)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrIndex, err)
	}
	return hits, nil
}

func (g *Gateway) KeywordSearch(ctx context.Context, query string, documentIds []string, k int) ([]commonModels.ScoredChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("keyword_search", time.Since(start)) }()

	hits, err := g.index.KeywordSearch(ctx, query, documentIds, k)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrIndex, err)
	}
	return hits, nil
}
