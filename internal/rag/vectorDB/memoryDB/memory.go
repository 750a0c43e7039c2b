package memoryDB

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/rag/vectorDB"
)

type point struct {
	chunk  commonModels.DocChunk
	vector []float32
}

// Store is a brute-force index kept in process memory. Points are keyed by chunk id so
// upserting the same chunk twice replaces it.
type Store struct {
	mu        sync.RWMutex
	dimension int
	distance  commonModels.DistanceKind
	points    map[string]point
	order     []string
}

type Option func(*Store)

// WithDistance picks how Search scores points. Distances sort ascending, similarities descending.
func WithDistance(kind commonModels.DistanceKind) Option {
	return func(s *Store) { s.distance = kind }
}

func New(dimension int, opts ...Option) *Store {
	s := &Store{
		dimension: dimension,
		distance:  commonModels.CosineSimilarity,
		points:    make(map[string]point),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) EnsureCollection(context.Context) error {
	if s.dimension <= 0 {
		return ragErrors.Kind(ragErrors.ErrIndex, fmt.Errorf("invalid dimension %d", s.dimension))
	}
	return nil
}

func (s *Store) Distance() commonModels.DistanceKind { return s.distance }

func (s *Store) UpsertBatch(_ context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return ragErrors.Kind(ragErrors.ErrIndex, fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors)))
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return ragErrors.Kind(ragErrors.ErrIndex, fmt.Errorf("vector %d has dimension %d, store expects %d", i, len(v), s.dimension))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		if _, ok := s.points[c.ChunkId]; !ok {
			s.order = append(s.order, c.ChunkId)
		}
		s.points[c.ChunkId] = point{chunk: c, vector: append([]float32(nil), vectors[i]...)}
	}
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, documentIds []string, limit int) ([]commonModels.ScoredChunk, error) {
	if limit <= 0 {
		return []commonModels.ScoredChunk{}, nil
	}
	if len(vector) != s.dimension {
		return nil, ragErrors.Kind(ragErrors.ErrIndex, fmt.Errorf("query has dimension %d, store expects %d", len(vector), s.dimension))
	}
	scope := idSet(documentIds)

	s.mu.RLock()
	hits := make([]commonModels.ScoredChunk, 0, len(s.points))
	for _, id := range s.order {
		p := s.points[id]
		if !inScope(scope, p.chunk.DocumentId) {
			continue
		}
		hits = append(hits, commonModels.ScoredChunk{Chunk: p.chunk, Score: s.score(p.vector, vector)})
	}
	s.mu.RUnlock()

	ascending := s.distance == commonModels.Euclidean || s.distance == commonModels.Manhattan || s.distance == commonModels.CosineDistance
	sort.SliceStable(hits, func(i, j int) bool {
		if ascending {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) KeywordSearch(_ context.Context, query string, documentIds []string, limit int) ([]commonModels.ScoredChunk, error) {
	terms := vectorDB.QueryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return []commonModels.ScoredChunk{}, nil
	}
	scope := idSet(documentIds)

	s.mu.RLock()
	candidates := make([]commonModels.DocChunk, 0, len(s.points))
	for _, id := range s.order {
		if c := s.points[id].chunk; inScope(scope, c.DocumentId) {
			candidates = append(candidates, c)
		}
	}
	s.mu.RUnlock()

	return vectorDB.RankByTerms(candidates, terms, limit), nil
}

func (s *Store) DeleteByDocument(_ context.Context, documentId string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed uint64
	kept := s.order[:0]
	for _, id := range s.order {
		if s.points[id].chunk.DocumentId == documentId {
			delete(s.points, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed, nil
}

func (s *Store) Count(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.points)), nil
}

func (s *Store) DistinctDocuments(_ context.Context, scanLimit int) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for i, id := range s.order {
		if i >= scanLimit {
			return len(seen), false, nil
		}
		seen[s.points[id].chunk.DocumentId] = struct{}{}
	}
	return len(seen), true, nil
}

func (s *Store) score(a, b []float32) float64 {
	switch s.distance {
	case commonModels.Euclidean:
		var sum float64
		for i := range a {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	case commonModels.Manhattan:
		var sum float64
		for i := range a {
			sum += math.Abs(float64(a[i] - b[i]))
		}
		return sum
	case commonModels.DotProduct:
		return dot(a, b)
	case commonModels.CosineDistance:
		return (1 - cosine(a, b)) / 2
	default:
		return cosine(a, b)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func cosine(a, b []float32) float64 {
	na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func idSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func inScope(scope map[string]struct{}, id string) bool {
	if scope == nil {
		return true
	}
	_, ok := scope[id]
	return ok
}
