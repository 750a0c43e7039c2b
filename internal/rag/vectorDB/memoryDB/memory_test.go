package memoryDB

import (
	"context"
	"fmt"
	"testing"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(doc string, i int, text string) commonModels.DocChunk {
	return commonModels.DocChunk{ChunkId: fmt.Sprintf("%s-%d", doc, i), DocumentId: doc, Index: i, Chunk: text}
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	err := s.UpsertBatch(context.Background(),
		[]commonModels.DocChunk{
			chunk("a", 0, "revenue grew in the third quarter"),
			chunk("a", 1, "headcount stayed flat"),
			chunk("b", 0, "revenue revenue everywhere"),
		},
		[][]float32{{1, 0}, {0, 1}, {0.7, 0.7}},
	)
	require.NoError(t, err)
}

func TestSearchFiltersByDocumentAndOrders(t *testing.T) {
	s := New(2)
	seed(t, s)

	hits, err := s.Search(context.Background(), []float32{1, 0}, []string{"a"}, 5)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "a-0", hits[0].Chunk.ChunkId)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "a-1", hits[1].Chunk.ChunkId)

	all, err := s.Search(context.Background(), []float32{1, 0}, nil, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b-0", all[1].Chunk.ChunkId)
}

func TestSearchEuclideanAscending(t *testing.T) {
	s := New(2, WithDistance(commonModels.Euclidean))
	seed(t, s)

	hits, err := s.Search(context.Background(), []float32{0, 1}, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, "a-1", hits[0].Chunk.ChunkId)
	assert.InDelta(t, 0.0, hits[0].Score, 1e-9)
	assert.LessOrEqual(t, hits[1].Score, hits[2].Score)
}

func TestUpsertSameChunkReplaces(t *testing.T) {
	s := New(2)
	seed(t, s)
	seed(t, s)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestDimensionMismatch(t *testing.T) {
	s := New(3)
	err := s.UpsertBatch(context.Background(), []commonModels.DocChunk{chunk("a", 0, "x")}, [][]float32{{1, 2}})
	assert.ErrorIs(t, err, ragErrors.ErrIndex)
}

func TestDeleteByDocumentRoundTrip(t *testing.T) {
	s := New(2)
	seed(t, s)
	ctx := context.Background()

	removed, err := s.DeleteByDocument(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), removed)

	hits, err := s.Search(ctx, []float32{1, 0}, []string{"a"}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	removed, err = s.DeleteByDocument(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, removed)

	docs, exact, err := s.DistinctDocuments(ctx, 100)
	require.NoError(t, err)
	assert.True(t, exact)
	assert.Equal(t, 1, docs)
}

func TestDistinctDocumentsBounded(t *testing.T) {
	s := New(2)
	seed(t, s)

	docs, exact, err := s.DistinctDocuments(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, exact)
	assert.Equal(t, 1, docs)
}

func TestKeywordSearchRanksByFrequency(t *testing.T) {
	s := New(2)
	seed(t, s)

	hits, err := s.KeywordSearch(context.Background(), "Revenue?", nil, 5)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "b-0", hits[0].Chunk.ChunkId)
	assert.Equal(t, 2.0, hits[0].Score)
	assert.Equal(t, "a-0", hits[1].Chunk.ChunkId)

	scoped, err := s.KeywordSearch(context.Background(), "revenue", []string{"a"}, 5)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
}

func TestAnswerCacheScopeAndInvalidation(t *testing.T) {
	c := NewAnswerCache()
	ctx := context.Background()
	result := commonModels.QueryResult{Answer: "42"}

	require.NoError(t, c.SaveToCache(ctx, "a|vector", []string{"a"}, []float32{1, 0}, result))

	got, ok, err := c.GetCachedAnswer(ctx, "a|vector", []float32{1, 0.01})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", got.Answer)
	assert.True(t, got.Cached)

	_, ok, _ = c.GetCachedAnswer(ctx, "b|vector", []float32{1, 0})
	assert.False(t, ok)

	_, ok, _ = c.GetCachedAnswer(ctx, "a|vector", []float32{0, 1})
	assert.False(t, ok)

	require.NoError(t, c.InvalidateDocument(ctx, "a"))
	_, ok, _ = c.GetCachedAnswer(ctx, "a|vector", []float32{1, 0})
	assert.False(t, ok)
}
