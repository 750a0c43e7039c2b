package retriever

import (
	"context"
	"sort"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/pkg/logger_i"
)

// best possible fusion score, rank one in both lists
const maxFusionScore = 2.0 / (config.RRFConstant + 1)

// Index is the slice of the index gateway the retriever needs.
type Index interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Search(ctx context.Context, vector []float32, documentIds []string, k int) ([]commonModels.ScoredChunk, error)
	KeywordSearch(ctx context.Context, query string, documentIds []string, k int) ([]commonModels.ScoredChunk, error)
	Distance() commonModels.DistanceKind
}

type Retriever struct {
	index  Index
	logger *logger_i.Logger
}

func New(index Index) *Retriever {
	return &Retriever{index: index, logger: logger_i.NewLogger("retriever")}
}

// Search embeds the question once and returns up to k chunks from the given documents, most relevant first.
func (r *Retriever) Search(ctx context.Context, question string, documentIds []string, k int) ([]commonModels.RetrievedCandidate, error) {
	vector, err := r.index.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	return r.Retrieve(ctx, question, vector, documentIds, k, commonModels.ModeVector)
}

// Retrieve is Search with a precomputed question vector.
func (r *Retriever) Retrieve(ctx context.Context, question string, vector []float32, documentIds []string, k int, mode commonModels.RetrievalMode) ([]commonModels.RetrievedCandidate, error) {
	if k <= 0 {
		return []commonModels.RetrievedCandidate{}, nil
	}
	if mode == commonModels.ModeHybrid {
		return r.hybrid(ctx, question, vector, documentIds, k)
	}

	hits, err := r.index.Search(ctx, vector, documentIds, k)
	if err != nil {
		return nil, err
	}
	kind := r.index.Distance()
	candidates := make([]commonModels.RetrievedCandidate, 0, len(hits))
	for i, h := range hits {
		candidates = append(candidates, commonModels.RetrievedCandidate{
			Chunk:      h.Chunk,
			RawScore:   h.Score,
			Distance:   kind,
			Relevance:  Relevance(kind, h.Score),
			VectorRank: i + 1,
		})
	}
	sortByRelevance(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	r.logger.WithTrace(ctx).Debug("retrieved", "mode", commonModels.ModeVector, "candidates", len(candidates))
	return candidates, nil
}

// hybrid fuses the vector and keyword rankings with reciprocal rank fusion.
func (r *Retriever) hybrid(ctx context.Context, question string, vector []float32, documentIds []string, k int) ([]commonModels.RetrievedCandidate, error) {
	vectorHits, err := r.index.Search(ctx, vector, documentIds, 2*k)
	if err != nil {
		return nil, err
	}
	keywordHits, err := r.index.KeywordSearch(ctx, question, documentIds, 2*k)
	if err != nil {
		return nil, err
	}

	fused := make(map[string]*commonModels.RetrievedCandidate)
	var order []string
	add := func(h commonModels.ScoredChunk, rank int, keyword bool) {
		c, ok := fused[h.Chunk.ChunkId]
		if !ok {
			c = &commonModels.RetrievedCandidate{Chunk: h.Chunk, Distance: commonModels.RankFusion}
			fused[h.Chunk.ChunkId] = c
			order = append(order, h.Chunk.ChunkId)
		}
		c.RawScore += 1.0 / float64(config.RRFConstant+rank)
		if keyword {
			c.KeywordRank = rank
		} else {
			c.VectorRank = rank
		}
	}
	for i, h := range vectorHits {
		add(h, i+1, false)
	}
	for i, h := range keywordHits {
		add(h, i+1, true)
	}

	candidates := make([]commonModels.RetrievedCandidate, 0, len(order))
	for _, id := range order {
		c := fused[id]
		c.Relevance = Relevance(commonModels.RankFusion, c.RawScore)
		candidates = append(candidates, *c)
	}
	sortByRelevance(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	r.logger.WithTrace(ctx).Debug("retrieved", "mode", commonModels.ModeHybrid,
		"vector_hits", len(vectorHits), "keyword_hits", len(keywordHits), "candidates", len(candidates))
	return candidates, nil
}

// sortByRelevance is stable; ties fall back to the better vector rank.
func sortByRelevance(c []commonModels.RetrievedCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Relevance != c[j].Relevance {
			return c[i].Relevance > c[j].Relevance
		}
		return rankOrInf(c[i].VectorRank) < rankOrInf(c[j].VectorRank)
	})
}

func rankOrInf(rank int) int {
	if rank == 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}
