package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/metrics"
	"github.com/akolanti/docrag/internal/rag/chunker"
	"github.com/akolanti/docrag/pkg/logger_i"
)

type Extractor interface {
	Extract(ctx context.Context, path string, filename string) ([]commonModels.ExtractedUnit, error)
}

type ChunkStore interface {
	Store(ctx context.Context, chunks []commonModels.DocChunk, documentId string) (int, error)
}

var errNoChunks = errors.New("document produced no chunks")

// Pipeline runs extract, chunk and store for one document.
type Pipeline struct {
	extractor Extractor
	splitter  *chunker.Splitter
	store     ChunkStore
	logger    *logger_i.Logger
}

func NewPipeline(e Extractor, s *chunker.Splitter, store ChunkStore) *Pipeline {
	return &Pipeline{extractor: e, splitter: s, store: store, logger: logger_i.NewLogger("Document Ingestion")}
}

// Ingest returns how many chunks reached the index. On failure that number can still be
// non-zero, and the caller is expected to roll back with a delete by document id.
func (p *Pipeline) Ingest(ctx context.Context, doc commonModels.Document) (int, error) {
	log := p.logger.WithTrace(ctx).With("document_id", doc.Id, "filename", doc.Name)
	log.Debug("Processing document", "path", doc.Path, "type", doc.ContentType)

	start := time.Now()
	units, err := p.extractor.Extract(ctx, doc.Path, doc.Name)
	metrics.CaptureExecutionMetrics("extract", time.Since(start))
	if err != nil {
		log.Error("extraction failed", "error", err)
		return 0, ragErrors.Wrap(ragErrors.StageExtract, doc.Name, err)
	}
	log.Debug("extracted", "units", len(units))

	chunks := p.splitter.ChunkDocument(doc.Id, units)
	if len(chunks) == 0 {
		return 0, ragErrors.Wrap(ragErrors.StageChunk, doc.Name, ragErrors.Kind(ragErrors.ErrFormat, errNoChunks))
	}
	log.Debug("chunked", "chunks", len(chunks))

	persisted, err := p.store.Store(ctx, chunks, doc.Id)
	if err != nil {
		log.Error("storing chunks failed", "persisted", persisted, "total", len(chunks), "error", err)
		return persisted, ragErrors.Wrap(ragErrors.StageStore, doc.Id, err)
	}

	log.Info("document ingested", "chunks", persisted)
	return persisted, nil
}
