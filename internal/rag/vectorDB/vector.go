package vectorDB

import (
	"context"

	"github.com/akolanti/docrag/internal/domain/commonModels"
)

// DataProcessor is the chunk index. An empty documentIds filter means every document.
type DataProcessor interface {
	EnsureCollection(ctx context.Context) error
	UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, documentIds []string, limit int) ([]commonModels.ScoredChunk, error)
	// KeywordSearch ranks chunks containing the query terms by how often they occur.
	KeywordSearch(ctx context.Context, query string, documentIds []string, limit int) ([]commonModels.ScoredChunk, error)
	DeleteByDocument(ctx context.Context, documentId string) (uint64, error)
	Count(ctx context.Context) (uint64, error)
	// DistinctDocuments scans at most scanLimit points; exact is false when the scan was cut short.
	DistinctDocuments(ctx context.Context, scanLimit int) (count int, exact bool, err error)
	Distance() commonModels.DistanceKind
}

// AnswerCache stores answers keyed by question embedding. scope isolates different document selections.
type AnswerCache interface {
	GetCachedAnswer(ctx context.Context, scope string, queryVector []float32) (commonModels.QueryResult, bool, error)
	SaveToCache(ctx context.Context, scope string, documentIds []string, vector []float32, result commonModels.QueryResult) error
	InvalidateDocument(ctx context.Context, documentId string) error
}
