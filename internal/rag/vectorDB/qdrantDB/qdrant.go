package qdrantDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/rag/vectorDB"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

const keywordPageSize = 500

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	PoolSize   uint
	Collection string
	Dimension  uint64
}

type Store struct {
	client     *qdrant.Client
	collection string
	dimension  uint64
	logger     *logger_i.Logger
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = config.QdrantHost
	}
	if cfg.Port == 0 {
		cfg.Port = config.QdrantGrpcPort
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = config.QdrantPoolSize
	}
	if cfg.Collection == "" {
		cfg.Collection = config.EmbeddingDBName
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = uint64(config.EmbeddingOutputDimensionality)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		APIKey:   cfg.APIKey,
		UseTLS:   cfg.UseTLS,
		PoolSize: cfg.PoolSize,
	})
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrIndex, fmt.Errorf("could not instantiate qdrant client: %w", err))
	}

	s := &Store{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		logger:     logger_i.NewLogger("Qdrant").With("collection", cfg.Collection),
	}
	if err := s.EnsureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	s.logger.Info("Shutting down Qdrant")
	return s.client.Close()
}

func (s *Store) Distance() commonModels.DistanceKind {
	return commonModels.CosineSimilarity
}

func (s *Store) EnsureCollection(ctx context.Context) error {
	err := createCollection(ctx, s.client, s.collection, s.dimension, []fieldIndex{
		{name: fieldDocumentId, kind: qdrant.FieldType_FieldTypeKeyword},
		{name: fieldContent, kind: qdrant.FieldType_FieldTypeText},
	})
	if err != nil {
		s.logger.Error("could not create collection", "error", err)
		return ragErrors.Kind(ragErrors.ErrIndex, err)
	}
	return nil
}

func (s *Store) UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return ragErrors.Kind(ragErrors.ErrIndex, fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors)))
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		if uint64(len(vectors[i])) != s.dimension {
			return ragErrors.Kind(ragErrors.ErrIndex, fmt.Errorf("vector %d has dimension %d, collection expects %d", i, len(vectors[i]), s.dimension))
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkId),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: chunkPayload(chunk),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return ragErrors.Kind(ragErrors.ErrIndex, fmt.Errorf("qdrant upsert failed: %w", err))
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, documentIds []string, limit int) ([]commonModels.ScoredChunk, error) {
	log := s.logger.WithTrace(ctx)
	if limit <= 0 {
		return []commonModels.ScoredChunk{}, nil
	}

	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         documentFilter(documentIds),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		log.Error("Error querying Qdrant", "error", err)
		return nil, ragErrors.Kind(ragErrors.ErrIndex, err)
	}

	hits := make([]commonModels.ScoredChunk, 0, len(result))
	for _, hit := range result {
		hits = append(hits, commonModels.ScoredChunk{Chunk: payloadChunk(hit.Payload), Score: float64(hit.Score)})
	}
	log.Debug("vector search", "hits", len(hits))
	return hits, nil
}

// KeywordSearch ranks every point matching the terms, up to config.KeywordScanLimit, by term
// frequency. Scroll order is by point id, so ranking only the first page would miss strong matches.
func (s *Store) KeywordSearch(ctx context.Context, query string, documentIds []string, limit int) ([]commonModels.ScoredChunk, error) {
	terms := vectorDB.QueryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return []commonModels.ScoredChunk{}, nil
	}
	log := s.logger.WithTrace(ctx)

	filter := termFilter(documentIds, terms)
	candidates, complete, err := scanMatches(ctx, config.KeywordScanLimit, func(ctx context.Context, offset *qdrant.PointId, page uint32) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
		return s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          qdrant.PtrOf(page),
			WithPayload:    qdrant.NewWithPayload(true),
		})
	})
	if err != nil {
		log.Error("Error in keyword scroll", "error", err)
		return nil, ragErrors.Kind(ragErrors.ErrIndex, err)
	}
	if !complete {
		log.Warn("keyword scan hit its limit, ranking a partial match set", "scanned", len(candidates))
	}
	return vectorDB.RankByTerms(candidates, terms, limit), nil
}

type scrollPage func(ctx context.Context, offset *qdrant.PointId, limit uint32) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)

// scanMatches follows next-page offsets until the matches run out or scanLimit points were read.
func scanMatches(ctx context.Context, scanLimit int, scroll scrollPage) ([]commonModels.DocChunk, bool, error) {
	var chunks []commonModels.DocChunk
	var offset *qdrant.PointId
	for len(chunks) < scanLimit {
		page := min(keywordPageSize, scanLimit-len(chunks))
		points, next, err := scroll(ctx, offset, uint32(page))
		if err != nil {
			return nil, false, err
		}
		for _, p := range points {
			chunks = append(chunks, payloadChunk(p.Payload))
		}
		if next == nil || len(points) == 0 {
			return chunks, true, nil
		}
		offset = next
	}
	return chunks, false, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentId string) (uint64, error) {
	if documentId == "" {
		return 0, errors.New("empty document id")
	}
	filter := documentFilter([]string{documentId})

	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, ragErrors.Kind(ragErrors.ErrIndex, err)
	}
	if n == 0 {
		return 0, nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, ragErrors.Kind(ragErrors.ErrIndex, err)
	}
	s.logger.WithTrace(ctx).Info("deleted document points", "document_id", documentId, "points", n)
	return n, nil
}

func (s *Store) Count(ctx context.Context) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: s.collection, Exact: qdrant.PtrOf(true)})
	if err != nil {
		return 0, ragErrors.Kind(ragErrors.ErrIndex, err)
	}
	return n, nil
}

// DistinctDocuments pages through document_id payloads. Qdrant scroll offsets are inclusive,
// so each page asks for one extra point and uses it as the next offset.
func (s *Store) DistinctDocuments(ctx context.Context, scanLimit int) (int, bool, error) {
	const pageSize = 1000
	seen := make(map[string]struct{})
	var offset *qdrant.PointId
	scanned := 0

	for scanned < scanLimit {
		page := min(pageSize, scanLimit-scanned)
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(page + 1)),
			WithPayload:    qdrant.NewWithPayloadInclude(fieldDocumentId),
		})
		if err != nil {
			return 0, false, ragErrors.Kind(ragErrors.ErrIndex, err)
		}

		more := len(points) > page
		if more {
			offset = points[page].Id
			points = points[:page]
		}
		for _, p := range points {
			seen[p.Payload[fieldDocumentId].GetStringValue()] = struct{}{}
		}
		scanned += len(points)
		if !more {
			return len(seen), true, nil
		}
	}
	return len(seen), false, nil
}

type fieldIndex struct {
	name string
	kind qdrant.FieldType
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string, dimension uint64, indexes []fieldIndex) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dimension,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return err
		}
	}

	// creating an index that already exists is a no-op in qdrant
	for _, idx := range indexes {
		req := &qdrant.CreateFieldIndexCollection{
			CollectionName: collectionName,
			FieldName:      idx.name,
			FieldType:      idx.kind.Enum(),
			Wait:           qdrant.PtrOf(true),
		}
		if idx.kind == qdrant.FieldType_FieldTypeText {
			req.FieldIndexParams = qdrant.NewPayloadIndexParamsText(&qdrant.TextIndexParams{
				Tokenizer: qdrant.TokenizerType_Word,
				Lowercase: qdrant.PtrOf(true),
			})
		}
		if _, err := client.CreateFieldIndex(ctx, req); err != nil {
			return fmt.Errorf("creating %s index: %w", idx.name, err)
		}
	}
	return nil
}
