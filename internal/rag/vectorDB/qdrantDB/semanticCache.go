package qdrantDB

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akolanti/docrag/internal/adapter/utils"
	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

const (
	cacheFieldScope       = "scope"
	cacheFieldDocumentIds = "document_ids"
	cacheFieldAnswer      = "answer"
	cacheFieldContext     = "context"
	cacheFieldSources     = "sources"
	cacheFieldTimestamp   = "timestamp"
)

// SemanticCache shares the chunk store's connection but lives in its own collection.
type SemanticCache struct {
	client     *qdrant.Client
	collection string
	cutoff     float32
	logger     *logger_i.Logger
}

func (s *Store) NewSemanticCache(ctx context.Context, collection string) (*SemanticCache, error) {
	if collection == "" {
		collection = config.SemanticCacheDBName
	}
	c := &SemanticCache{
		client:     s.client,
		collection: collection,
		cutoff:     config.CacheSimilarityCutoff,
		logger:     logger_i.NewLogger("semantic_cache"),
	}
	err := createCollection(ctx, s.client, collection, s.dimension, []fieldIndex{
		{name: cacheFieldScope, kind: qdrant.FieldType_FieldTypeKeyword},
		{name: cacheFieldDocumentIds, kind: qdrant.FieldType_FieldTypeKeyword},
	})
	if err != nil {
		c.logger.Error("Semantic cache collection creation failed", "error", err)
		return nil, ragErrors.Kind(ragErrors.ErrIndex, err)
	}
	return c, nil
}

func (c *SemanticCache) GetCachedAnswer(ctx context.Context, scope string, queryVector []float32) (commonModels.QueryResult, bool, error) {
	log := c.logger.WithTrace(ctx)

	searchResult, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatchKeyword(cacheFieldScope, scope)}},
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		log.Error("Cache Query failed", "error", err)
		return commonModels.QueryResult{}, false, err
	}
	if len(searchResult) == 0 {
		return commonModels.QueryResult{}, false, nil
	}

	hit := searchResult[0]
	log.Debug("closest cached answer", "semantic similarity score", hit.Score)
	if hit.Score < c.cutoff {
		return commonModels.QueryResult{}, false, nil
	}

	result := commonModels.QueryResult{
		Answer:  hit.Payload[cacheFieldAnswer].GetStringValue(),
		Context: hit.Payload[cacheFieldContext].GetStringValue(),
		Cached:  true,
	}
	if raw := hit.Payload[cacheFieldSources].GetStringValue(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &result.Sources); err != nil {
			log.Warn("cached sources unreadable, ignoring entry", "error", err)
			return commonModels.QueryResult{}, false, nil
		}
	}
	log.Info("cache hit")
	return result, true, nil
}

func (c *SemanticCache) SaveToCache(ctx context.Context, scope string, documentIds []string, vector []float32, result commonModels.QueryResult) error {
	log := c.logger.WithTrace(ctx)

	sources, err := json.Marshal(result.Sources)
	if err != nil {
		return err
	}
	ids := make([]any, 0, len(documentIds))
	for _, id := range documentIds {
		ids = append(ids, id)
	}

	_, err = c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(utils.GetNewUUID()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					cacheFieldScope:       scope,
					cacheFieldDocumentIds: ids,
					cacheFieldAnswer:      result.Answer,
					cacheFieldContext:     result.Context,
					cacheFieldSources:     string(sources),
					cacheFieldTimestamp:   time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		log.Error("Saving answer to cache failed", "error", err)
	}
	return err
}

// InvalidateDocument drops every cached answer whose scope included the document.
func (c *SemanticCache) InvalidateDocument(ctx context.Context, documentId string) error {
	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeyword(cacheFieldDocumentIds, documentId)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		c.logger.WithTrace(ctx).Error("cache invalidation failed", "document_id", documentId, "error", err)
	}
	return err
}
