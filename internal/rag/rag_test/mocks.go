package rag_test

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/rag/llm"
)

const mockDimension = 8

// MockEmbedder implements embedding.Embedder. By default it hashes words into a small bag-of-words vector,
// so texts that share words land close together.
type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks, isHuge)
	}
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = bagOfWords(c)
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return bagOfWords(query), nil
}

func bagOfWords(text string) []float32 {
	v := make([]float32, mockDimension)
	v[0] = 0.01
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%mockDimension]++
	}
	return v
}

// MockLLM implements llm.Provider
type MockLLM struct {
	mu              sync.Mutex
	CompleteCalls   int
	DescribeCalls   int
	LastRequest     llm.CompletionRequest
	OnComplete      func(ctx context.Context, req llm.CompletionRequest) (string, error)
	OnDescribeImage func(ctx context.Context, image []byte, mimeType string, prompt string) (string, error)
}

func (m *MockLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.LastRequest = req
	m.mu.Unlock()
	if m.OnComplete != nil {
		return m.OnComplete(ctx, req)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) DescribeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	m.mu.Lock()
	m.DescribeCalls++
	m.mu.Unlock()
	if m.OnDescribeImage != nil {
		return m.OnDescribeImage(ctx, image, mimeType, prompt)
	}
	return "A blank white square with no visible content.", nil
}

// MockOCR implements extract.OCREngine
type MockOCR struct {
	OnRecognize func(ctx context.Context, imagePath string) (string, error)
}

func (m *MockOCR) Recognize(ctx context.Context, imagePath string) (string, error) {
	if m.OnRecognize != nil {
		return m.OnRecognize(ctx, imagePath)
	}
	return "", nil
}

// MockRetriever implements rag.Retriever
type MockRetriever struct {
	OnRetrieve func(ctx context.Context, question string, vector []float32, ids []string, k int, mode commonModels.RetrievalMode) ([]commonModels.RetrievedCandidate, error)
}

func (m *MockRetriever) Retrieve(ctx context.Context, question string, vector []float32, ids []string, k int, mode commonModels.RetrievalMode) ([]commonModels.RetrievedCandidate, error) {
	if m.OnRetrieve != nil {
		return m.OnRetrieve(ctx, question, vector, ids, k, mode)
	}
	return []commonModels.RetrievedCandidate{{
		Chunk:     commonModels.DocChunk{DocumentId: "doc-1", Filename: "a.txt", Chunk: "default context"},
		Relevance: 0.9,
	}}, nil
}
