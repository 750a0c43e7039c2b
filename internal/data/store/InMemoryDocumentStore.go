package store

import (
	"context"
	"sync"

	"github.com/akolanti/docrag/internal/domain/commonModels"
)

type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]commonModels.Document
}

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{docs: make(map[string]commonModels.Document)}
}

func (store *InMemoryDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.docs[doc.Id] = doc
	return nil
}

func (store *InMemoryDocumentStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	doc, ok := store.docs[id]
	return doc, ok
}

func (store *InMemoryDocumentStore) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	store.mu.RLock()
	docs := make([]commonModels.Document, 0, len(store.docs))
	for _, d := range store.docs {
		docs = append(docs, d)
	}
	store.mu.RUnlock()
	sortDocuments(docs)
	return docs, nil
}

func (store *InMemoryDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.docs, id)
	return nil
}
