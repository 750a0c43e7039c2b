package memoryDB

import (
	"context"
	"slices"
	"sync"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
)

type cacheEntry struct {
	scope       string
	documentIds []string
	vector      []float32
	result      commonModels.QueryResult
}

// AnswerCache is the in-process counterpart of the qdrant semantic cache.
type AnswerCache struct {
	mu      sync.RWMutex
	cutoff  float64
	entries []cacheEntry
}

func NewAnswerCache() *AnswerCache {
	return &AnswerCache{cutoff: config.CacheSimilarityCutoff}
}

func (c *AnswerCache) GetCachedAnswer(_ context.Context, scope string, queryVector []float32) (commonModels.QueryResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	best, bestScore := -1, -1.0
	for i, e := range c.entries {
		if e.scope != scope || len(e.vector) != len(queryVector) {
			continue
		}
		if s := cosine(e.vector, queryVector); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < c.cutoff {
		return commonModels.QueryResult{}, false, nil
	}
	result := c.entries[best].result
	result.Cached = true
	return result, true, nil
}

func (c *AnswerCache) SaveToCache(_ context.Context, scope string, documentIds []string, vector []float32, result commonModels.QueryResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, cacheEntry{
		scope:       scope,
		documentIds: slices.Clone(documentIds),
		vector:      slices.Clone(vector),
		result:      result,
	})
	return nil
}

func (c *AnswerCache) InvalidateDocument(_ context.Context, documentId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = slices.DeleteFunc(c.entries, func(e cacheEntry) bool {
		return slices.Contains(e.documentIds, documentId)
	})
	return nil
}
