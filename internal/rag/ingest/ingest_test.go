package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/rag/chunker"
	"github.com/akolanti/docrag/internal/rag/extract"
	"github.com/akolanti/docrag/internal/rag/indexGateway"
	"github.com/akolanti/docrag/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockEmbedder struct {
	batchFunc func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	return m.batchFunc(ctx, chunks, isHuge)
}

func okVectors(_ context.Context, chunks []string, _ bool) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i := range out {
		out[i] = []float32{1, float32(i)}
	}
	return out, nil
}

type mockStore struct {
	storeFunc func(ctx context.Context, chunks []commonModels.DocChunk, documentId string) (int, error)
}

func (m *mockStore) Store(ctx context.Context, chunks []commonModels.DocChunk, documentId string) (int, error) {
	return m.storeFunc(ctx, chunks, documentId)
}

func TestMain(m *testing.M) {
	logger_i.InitWithWriter(io.Discard, false)
	os.Exit(m.Run())
}

func writeDoc(t *testing.T, name string, content string) commonModels.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return commonModels.Document{
		Id:          "doc-" + strings.TrimSuffix(name, filepath.Ext(name)),
		Name:        name,
		Path:        path,
		ContentType: commonModels.GetDocType(name),
	}
}

func newPipeline(emb *mockEmbedder, index *memoryDB.Store, batchSize int) *Pipeline {
	gateway := indexGateway.New(emb, index, indexGateway.WithBatchSize(batchSize), indexGateway.WithConcurrency(1))
	return NewPipeline(extract.New(), chunker.New(chunker.WithSize(50), chunker.WithOverlap(10)), gateway)
}

// --- Unit Tests ---

func TestIngestTextDocument(t *testing.T) {
	index := memoryDB.New(2)
	p := newPipeline(&mockEmbedder{batchFunc: okVectors}, index, 100)
	doc := writeDoc(t, "notes.txt", strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10))

	n, err := p.Ingest(context.Background(), doc)
	require.NoError(t, err)

	total, _ := index.Count(context.Background())
	assert.Equal(t, uint64(n), total)
	assert.Greater(t, n, 1)

	hits, err := index.Search(context.Background(), []float32{1, 0}, []string{doc.Id}, n)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, doc.Id, h.Chunk.DocumentId)
		assert.Equal(t, "notes.txt", h.Chunk.Filename)
		assert.Equal(t, n, h.Chunk.TotalChunks)
		assert.GreaterOrEqual(t, h.Chunk.Index, 0)
		assert.Less(t, h.Chunk.Index, n)
	}
}

func TestIngestCSVKeepsRowProvenance(t *testing.T) {
	index := memoryDB.New(2)
	p := newPipeline(&mockEmbedder{batchFunc: okVectors}, index, 100)
	doc := writeDoc(t, "people.csv", "name,city\nAda,London\nLinus,Helsinki\n")

	n, err := p.Ingest(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	hits, err := index.KeywordSearch(context.Background(), "Helsinki", nil, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].Chunk.RowNum)
}

func TestIngestPartialFailureReportsPersisted(t *testing.T) {
	calls := 0
	emb := &mockEmbedder{batchFunc: func(ctx context.Context, chunks []string, huge bool) ([][]float32, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("quota exceeded")
		}
		return okVectors(ctx, chunks, huge)
	}}
	index := memoryDB.New(2)
	p := newPipeline(emb, index, 2)
	doc := writeDoc(t, "long.txt", strings.Repeat("Sentence number one is here. ", 20))

	n, err := p.Ingest(context.Background(), doc)
	require.Error(t, err)

	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, ragErrors.ErrEmbedding)
	var stageErr *ragErrors.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ragErrors.StageStore, stageErr.Stage)
	assert.Equal(t, doc.Id, stageErr.Subject)

	total, _ := index.Count(context.Background())
	assert.Equal(t, uint64(2), total)
}

func TestIngestUnsupportedExtension(t *testing.T) {
	stored := false
	p := NewPipeline(extract.New(), chunker.New(), &mockStore{storeFunc: func(context.Context, []commonModels.DocChunk, string) (int, error) {
		stored = true
		return 0, nil
	}})
	doc := writeDoc(t, "slides.pptx", "whatever")

	n, err := p.Ingest(context.Background(), doc)

	assert.Zero(t, n)
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
	var stageErr *ragErrors.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ragErrors.StageExtract, stageErr.Stage)
	assert.Equal(t, "slides.pptx", stageErr.Subject)
	assert.False(t, stored)
}

func TestIngestBinaryTextFails(t *testing.T) {
	p := NewPipeline(extract.New(), chunker.New(), &mockStore{storeFunc: func(context.Context, []commonModels.DocChunk, string) (int, error) {
		return 0, nil
	}})
	doc := writeDoc(t, "blob.txt", "\x00\x01\x02binary")

	_, err := p.Ingest(context.Background(), doc)
	assert.ErrorIs(t, err, ragErrors.ErrEncoding)
}
