package retriever

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/rag/indexGateway"
	"github.com/akolanti/docrag/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicEmbedder maps text onto three axes by keyword so tests control geometry.
type topicEmbedder struct{}

func (topicEmbedder) vector(text string) []float32 {
	v := []float32{0.01, 0.01, 0.01}
	for _, w := range []struct {
		word string
		axis int
	}{{"revenue", 0}, {"weather", 1}, {"cats", 2}} {
		if strings.Contains(text, w.word) {
			v[w.axis] = 1
		}
	}
	return v
}

func (e topicEmbedder) GetEmbedding(_ context.Context, q string) ([]float32, error) {
	return e.vector(q), nil
}

func (e topicEmbedder) BatchEmbedding(_ context.Context, chunks []string, _ bool) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = e.vector(c)
	}
	return out, nil
}

func setup(t *testing.T) *Retriever {
	t.Helper()
	logger_i.InitWithWriter(io.Discard, false)
	g := indexGateway.New(topicEmbedder{}, memoryDB.New(3))
	ctx := context.Background()

	_, err := g.Store(ctx, []commonModels.DocChunk{
		{ChunkId: "a0", Index: 0, Chunk: "revenue rose sharply in cold weather"},
		{ChunkId: "a1", Index: 1, Chunk: "the weather was mild"},
	}, "doc-a")
	require.NoError(t, err)
	_, err = g.Store(ctx, []commonModels.DocChunk{
		{ChunkId: "b0", Index: 0, Chunk: "cats sleep a lot"},
		{ChunkId: "b1", Index: 1, Chunk: "revenue of the cat cafe"},
	}, "doc-b")
	require.NoError(t, err)
	return New(g)
}

func TestRelevanceMappings(t *testing.T) {
	assert.InDelta(t, 1.0, Relevance(commonModels.CosineSimilarity, 1), 1e-9)
	assert.InDelta(t, 0.5, Relevance(commonModels.CosineSimilarity, 0), 1e-9)
	assert.InDelta(t, 0.0, Relevance(commonModels.CosineSimilarity, -1), 1e-9)
	assert.InDelta(t, 0.75, Relevance(commonModels.CosineDistance, 0.25), 1e-9)
	assert.InDelta(t, 1.0, Relevance(commonModels.Euclidean, 0), 1e-9)
	assert.InDelta(t, 0.5, Relevance(commonModels.Manhattan, 1), 1e-9)
	assert.InDelta(t, 0.5, Relevance(commonModels.DotProduct, 0), 1e-9)
	assert.InDelta(t, 1.0, Relevance(commonModels.RankFusion, maxFusionScore), 1e-9)
}

func TestRelevanceBoundedAndMonotonic(t *testing.T) {
	for _, d := range []float64{0, 0.5, 1, 2, 10, 1e6} {
		r := Relevance(commonModels.Euclidean, d)
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
	assert.Greater(t, Relevance(commonModels.Euclidean, 1), Relevance(commonModels.Euclidean, 2))
	assert.Greater(t, Relevance(commonModels.CosineSimilarity, 0.9), Relevance(commonModels.CosineSimilarity, 0.1))
	assert.Greater(t, Relevance(commonModels.DotProduct, 3), Relevance(commonModels.DotProduct, -3))
	assert.Equal(t, 0.0, Relevance(commonModels.Euclidean, math.NaN()))
	assert.Equal(t, 1.0, Relevance(commonModels.CosineSimilarity, 1.2))
}

func TestSearchScopesToDocuments(t *testing.T) {
	r := setup(t)

	got, err := r.Search(context.Background(), "revenue", []string{"doc-a"}, 5)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "a0", got[0].Chunk.ChunkId)
	assert.Equal(t, commonModels.CosineSimilarity, got[0].Distance)
	for _, c := range got {
		assert.Equal(t, "doc-a", c.Chunk.DocumentId)
		assert.GreaterOrEqual(t, c.Relevance, 0.0)
		assert.LessOrEqual(t, c.Relevance, 1.0)
	}
	assert.GreaterOrEqual(t, got[0].Relevance, got[1].Relevance)
}

func TestSearchMultipleDocumentsIsOr(t *testing.T) {
	r := setup(t)

	got, err := r.Search(context.Background(), "revenue", []string{"doc-a", "doc-b"}, 2)
	require.NoError(t, err)

	require.Len(t, got, 2)
	ids := []string{got[0].Chunk.ChunkId, got[1].Chunk.ChunkId}
	assert.ElementsMatch(t, []string{"a0", "b1"}, ids)
}

func TestSearchUnknownDocumentIsEmpty(t *testing.T) {
	r := setup(t)

	got, err := r.Search(context.Background(), "revenue", []string{"nope"}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHybridRewardsAgreement(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	q := "revenue cat"
	vector, err := topicEmbedder{}.GetEmbedding(ctx, q)
	require.NoError(t, err)

	got, err := r.Retrieve(ctx, q, vector, nil, 2, commonModels.ModeHybrid)
	require.NoError(t, err)

	require.Len(t, got, 2)
	// b1 matches both keywords and the revenue axis
	assert.Equal(t, "b1", got[0].Chunk.ChunkId)
	assert.Equal(t, 1, got[0].KeywordRank)
	assert.NotZero(t, got[0].VectorRank)
	assert.Equal(t, commonModels.RankFusion, got[0].Distance)
	assert.LessOrEqual(t, got[0].Relevance, 1.0)
	assert.GreaterOrEqual(t, got[0].Relevance, got[1].Relevance)
}

func TestRetrieveZeroK(t *testing.T) {
	r := setup(t)
	got, err := r.Retrieve(context.Background(), "x", []float32{1, 0, 0}, nil, 0, commonModels.ModeVector)
	require.NoError(t, err)
	assert.Empty(t, got)
}
