package embedding

import "context"

// Embedder turns text into fixed-length vectors. GetEmbedding is for questions, BatchEmbedding for document chunks.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error)
}
