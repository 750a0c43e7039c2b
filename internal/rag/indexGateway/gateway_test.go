package indexGateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	mu         sync.Mutex
	calls      int
	failOnCall int
}

func (f *fakeEmbedder) GetEmbedding(_ context.Context, query string) ([]float32, error) {
	return []float32{float32(len(query)), 1}, nil
}

func (f *fakeEmbedder) BatchEmbedding(_ context.Context, chunks []string, _ bool) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.failOnCall > 0 && call >= f.failOnCall {
		return nil, errors.New("quota exceeded")
	}
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = []float32{float32(len(c)), 1}
	}
	return out, nil
}

type brokenIndex struct{ *memoryDB.Store }

func (brokenIndex) Count(context.Context) (uint64, error) {
	return 0, errors.New("connection refused")
}

func makeChunks(n int) []commonModels.DocChunk {
	chunks := make([]commonModels.DocChunk, n)
	for i := range chunks {
		chunks[i] = commonModels.DocChunk{ChunkId: fmt.Sprintf("c-%d", i), Index: i, TotalChunks: n, Chunk: fmt.Sprintf("chunk %d", i)}
	}
	return chunks
}

func TestMain(m *testing.M) {
	logger_i.InitWithWriter(io.Discard, false)
	m.Run()
}

func TestStoreStampsDocumentAndBatches(t *testing.T) {
	emb := &fakeEmbedder{}
	index := memoryDB.New(2)
	g := New(emb, index, WithBatchSize(3))
	ctx := context.Background()

	n, err := g.Store(ctx, makeChunks(7), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, 7, n)
	assert.Equal(t, 3, emb.calls)
	total, _ := index.Count(ctx)
	assert.Equal(t, uint64(7), total)

	hits, err := g.Search(ctx, []float32{7, 1}, []string{"doc-1"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 7)
	for _, h := range hits {
		assert.Equal(t, "doc-1", h.Chunk.DocumentId)
	}
}

func TestStoreReportsPersistedOnFailure(t *testing.T) {
	emb := &fakeEmbedder{failOnCall: 2}
	index := memoryDB.New(2)
	g := New(emb, index, WithBatchSize(2), WithConcurrency(1))

	n, err := g.Store(context.Background(), makeChunks(6), "doc-1")
	require.Error(t, err)

	assert.ErrorIs(t, err, ragErrors.ErrEmbedding)
	assert.Equal(t, 2, n)

	removed, err := g.Delete(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(n), removed)
}

func TestStoreEmpty(t *testing.T) {
	g := New(&fakeEmbedder{}, memoryDB.New(2))
	n, err := g.Store(context.Background(), nil, "doc-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteInvalidatesCacheAndIsIdempotent(t *testing.T) {
	cache := memoryDB.NewAnswerCache()
	g := New(&fakeEmbedder{}, memoryDB.New(2), WithAnswerCache(cache))
	ctx := context.Background()

	_, err := g.Store(ctx, makeChunks(3), "doc-1")
	require.NoError(t, err)
	require.NoError(t, cache.SaveToCache(ctx, "doc-1|vector", []string{"doc-1"}, []float32{1, 0}, commonModels.QueryResult{Answer: "x"}))

	removed, err := g.Delete(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), removed)

	_, ok, _ := cache.GetCachedAnswer(ctx, "doc-1|vector", []float32{1, 0})
	assert.False(t, ok)

	removed, err = g.Delete(ctx, "doc-1")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStatsIdempotentAndDegraded(t *testing.T) {
	index := memoryDB.New(2)
	g := New(&fakeEmbedder{}, index)
	ctx := context.Background()

	_, err := g.Store(ctx, makeChunks(4), "doc-1")
	require.NoError(t, err)
	_, err = g.Store(ctx, []commonModels.DocChunk{{ChunkId: "other", Chunk: "x"}}, "doc-2")
	require.NoError(t, err)

	first := g.Stats(ctx)
	second := g.Stats(ctx)
	assert.Equal(t, first, second)
	assert.Equal(t, commonModels.IndexStats{TotalChunks: 5, DocumentCount: 2, DocumentCountExact: true, Status: commonModels.Healthy}, first)

	broken := New(&fakeEmbedder{}, brokenIndex{index})
	stats := broken.Stats(ctx)
	assert.Equal(t, commonModels.Degraded, stats.Status)
	assert.Zero(t, stats.TotalChunks)
	assert.Zero(t, stats.DocumentCount)
	assert.Contains(t, stats.Error, "connection refused")
}

func TestStatsScanLimitMarksCountInexact(t *testing.T) {
	index := memoryDB.New(2)
	g := New(&fakeEmbedder{}, index, WithStatsScanLimit(3))
	ctx := context.Background()

	_, err := g.Store(ctx, makeChunks(4), "doc-1")
	require.NoError(t, err)

	stats := g.Stats(ctx)
	assert.Equal(t, uint64(4), stats.TotalChunks)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.False(t, stats.DocumentCountExact)
	assert.Equal(t, commonModels.Healthy, stats.Status)
}

func TestEmbedQuery(t *testing.T) {
	g := New(&fakeEmbedder{}, memoryDB.New(2))
	v, err := g.EmbedQuery(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, v)
}
