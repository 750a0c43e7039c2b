package job

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/metrics"
	"github.com/akolanti/docrag/pkg/logger_i"
)

var logRegistry = logger_i.NewLogger("DocumentRegistry")

// RecordIngestOutcome moves the document to READY or FAILED after an ingestion job.
// A failed document keeps its registry entry but loses its raw file.
func RecordIngestOutcome(ctx context.Context, documents jobModel.DocumentStore, job jobModel.Job) commonModels.Document {
	p := job.JobPayload
	log := logRegistry.WithTrace(ctx).With("document_id", p.DocumentId)
	// the job deadline may be what failed the ingestion, the registry still has to be updated
	ctx = context.WithoutCancel(ctx)

	doc, found := documents.GetDocument(ctx, p.DocumentId)
	if !found {
		log.Warn("ingested document has no registry entry")
		doc = commonModels.Document{Id: p.DocumentId, Name: p.IngestFileName, Path: p.IngestURL, CreatedAt: job.CreatedTime}
	}
	doc.LastIngestTimestamp = time.Now().UTC()

	if job.Status == jobModel.JobStatusError {
		doc.Status = commonModels.DocumentFailed
		doc.LastError = job.Error.Kind
		doc.ChunkCount = 0
		if err := os.Remove(p.IngestURL); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Error("could not remove raw file", "path", p.IngestURL, "error", err)
		}
		metrics.CaptureIngestion(string(commonModels.DocumentFailed), 0)
	} else {
		doc.Status = commonModels.DocumentReady
		doc.ChunkCount = p.ChunkCount
		doc.LastError = ""
		metrics.CaptureIngestion(string(commonModels.DocumentReady), p.ChunkCount)
	}

	if err := documents.SaveDocument(ctx, doc); err != nil {
		log.Error("could not update document registry", "error", err)
	}
	return doc
}
