package store

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/akolanti/docrag/internal/data/redisStore"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/pkg/logger_i"
)

const (
	documentKeyPrefix = "document:"
	documentIndexKey  = "documents"
)

// RedisDocumentStore is the document registry. Entries never expire, they leave on delete only.
type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func NewRedisDocumentStore(store *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{
		store:  store,
		logger: logger_i.NewLogger("DocumentStore"),
	}
}

func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err = s.store.Set(ctx, documentKeyPrefix+doc.Id, data, 0); err != nil {
		return err
	}
	if err = s.store.SetAdd(ctx, documentIndexKey, doc.Id); err != nil {
		return err
	}
	s.logger.WithTrace(ctx).Debug("saved document", "document_id", doc.Id, "status", doc.Status)
	return nil
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool) {
	var doc commonModels.Document
	val, err := s.store.Get(ctx, documentKeyPrefix+id)
	if s.store.IsNil(err) {
		return doc, false
	} else if err != nil {
		s.logger.WithTrace(ctx).Error("Error reading document", "document_id", id, "error", err)
		return doc, false
	}
	if err = json.Unmarshal([]byte(val), &doc); err != nil {
		s.logger.WithTrace(ctx).Error("Stored document is not valid json", "document_id", id, "error", err)
		return doc, false
	}
	return doc, true
}

// ListDocuments returns every registered document, newest first.
func (s *RedisDocumentStore) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	ids, err := s.store.SetMembers(ctx, documentIndexKey)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = documentKeyPrefix + id
	}
	values, err := s.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	docs := make([]commonModels.Document, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// index entry without a record, left behind by an interrupted delete
			s.logger.WithTrace(ctx).Warn("dangling document id", "document_id", ids[i])
			continue
		}
		var doc commonModels.Document
		if err := json.Unmarshal([]byte(str), &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *RedisDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.Del(ctx, documentKeyPrefix+id); err != nil {
		return err
	}
	return s.store.SetRemove(ctx, documentIndexKey, id)
}

func sortDocuments(docs []commonModels.Document) {
	slices.SortFunc(docs, func(a, b commonModels.Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Id, b.Id)
	})
}
