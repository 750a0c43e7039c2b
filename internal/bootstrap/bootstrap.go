// Package bootstrap turns Settings into a wired rag.Service plus the stores the API, worker pool
// and CLI share. Every entry point builds its dependencies here so they cannot drift apart.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/customHttpClient"
	"github.com/akolanti/docrag/internal/data/redisStore"
	"github.com/akolanti/docrag/internal/data/store"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/rag"
	"github.com/akolanti/docrag/internal/rag/chunker"
	"github.com/akolanti/docrag/internal/rag/embedding"
	"github.com/akolanti/docrag/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/docrag/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/docrag/internal/rag/extract"
	"github.com/akolanti/docrag/internal/rag/indexGateway"
	"github.com/akolanti/docrag/internal/rag/ingest"
	"github.com/akolanti/docrag/internal/rag/llm"
	"github.com/akolanti/docrag/internal/rag/llm/gemini"
	"github.com/akolanti/docrag/internal/rag/llm/openaiLLM"
	"github.com/akolanti/docrag/internal/rag/retriever"
	"github.com/akolanti/docrag/internal/rag/synthesizer"
	"github.com/akolanti/docrag/internal/rag/vectorDB"
	"github.com/akolanti/docrag/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/docrag/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/docrag/pkg/logger_i"
)

var logger = logger_i.NewLogger("Bootstrap")

// Stores is the job, chat and document state. Redis backed when reachable, in memory otherwise.
type Stores struct {
	JobStore      jobModel.JobStore
	MessageStore  jobModel.MessageStore
	DocumentStore jobModel.DocumentStore
	Persistent    bool
}

type App struct {
	Settings  config.Settings
	Rag       rag.Service
	Retriever *retriever.Retriever
	Stores    Stores
	closers   []func() error
}

// Build wires providers, the vector backend and the stores. ctx bounds the lifetime of the redis clients.
func Build(ctx context.Context, settings config.Settings) (*App, error) {
	app := &App{Settings: settings}

	embedder, provider, err := buildProviders(ctx, settings)
	if err != nil {
		return nil, err
	}

	index, cache, err := app.buildVectorBackend(ctx, settings)
	if err != nil {
		return nil, err
	}

	gateway := indexGateway.New(embedder, index,
		indexGateway.WithAnswerCache(cache),
		indexGateway.WithStatsScanLimit(settings.StatsScanLimit))
	app.Retriever = retriever.New(gateway)

	extractor := extract.New(
		extract.WithOCR(extract.NewTesseract(settings.OCRBinary)),
		extract.WithImageDescriber(provider),
		extract.WithRowCap(settings.SQLiteRowCap),
		extract.WithPageTimeout(settings.PDFPageTimeout),
		extract.WithVisionMaxDimension(settings.VisionMaxDimension),
	)
	splitter := chunker.New(chunker.WithSize(settings.ChunkSize), chunker.WithOverlap(settings.ChunkOverlap))
	if splitter.Overlap() != settings.ChunkOverlap {
		logger.Warn("chunk overlap clamped", "configured", settings.ChunkOverlap, "effective", splitter.Overlap())
	}

	app.Rag = rag.NewService(rag.Deps{
		Ingester:  ingest.NewPipeline(extractor, splitter, gateway),
		Index:     gateway,
		Retriever: app.Retriever,
		Generator: synthesizer.New(provider,
			synthesizer.WithTimeout(settings.ProviderTimeout),
			synthesizer.WithSystemInstruction(settings.SystemInstruction)),
		Cache:     cache,
	})
	app.Stores = BuildStores(ctx, settings)

	logger.Info("Services ready",
		"provider", settings.Provider,
		"vector_backend", settings.VectorBackend,
		"chunk_size", splitter.Size(),
		"persistent_stores", app.Stores.Persistent)
	return app, nil
}

func buildProviders(ctx context.Context, settings config.Settings) (embedding.Embedder, llm.Provider, error) {
	chatModel, embeddingModel := settings.ModelNames()
	httpClient := customHttpClient.NewHTTPClient()

	switch settings.Provider {
	case config.ProviderOpenAI:
		emb, err := openaiEmbedding.New(openaiEmbedding.Config{
			APIKey:     settings.OpenAIAPIKey,
			Model:      embeddingModel,
			Dimension:  settings.Dimension,
			Timeout:    settings.ProviderTimeout,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, nil, err
		}
		chat, err := openaiLLM.New(openaiLLM.Config{
			APIKey:     settings.OpenAIAPIKey,
			Model:      chatModel,
			Timeout:    settings.ProviderTimeout,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, nil, err
		}
		return emb, chat, nil

	case config.ProviderGemini, "":
		emb, err := googleEmbedding.New(ctx, googleEmbedding.Config{
			APIKey:     settings.GoogleAPIKey,
			Model:      embeddingModel,
			Dimension:  settings.Dimension,
			Timeout:    settings.ProviderTimeout,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, nil, err
		}
		chat, err := gemini.New(ctx, gemini.Config{
			APIKey:     settings.GoogleAPIKey,
			Model:      chatModel,
			Timeout:    settings.ProviderTimeout,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, nil, err
		}
		return emb, chat, nil
	}
	return nil, nil, fmt.Errorf("unknown provider %q", settings.Provider)
}

func (a *App) buildVectorBackend(ctx context.Context, settings config.Settings) (vectorDB.DataProcessor, vectorDB.AnswerCache, error) {
	if settings.VectorBackend == "memory" {
		logger.Warn("Using the in-memory vector index, nothing survives a restart")
		return memoryDB.New(int(settings.Dimension)), memoryDB.NewAnswerCache(), nil
	}

	index, err := qdrantDB.New(ctx, qdrantDB.Config{
		Host:       settings.QdrantHost,
		Port:       settings.QdrantPort,
		APIKey:     settings.QdrantAPIKey,
		UseTLS:     settings.QdrantUseTLS,
		Collection: settings.Collection,
		Dimension:  uint64(settings.Dimension),
	})
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, index.Close)

	cache, err := index.NewSemanticCache(ctx, settings.CacheCollection)
	if err != nil {
		// answers are still correct without a cache, only slower
		logger.Error("Semantic cache unavailable, continuing without it", "error", err)
		return index, nil, nil
	}
	return index, cache, nil
}

// BuildStores falls back to in-memory stores when redis is not configured or does not answer a ping.
func BuildStores(ctx context.Context, settings config.Settings) Stores {
	if settings.RedisAddr != "" {
		opts := redisStore.Options{Addr: settings.RedisAddr, Password: settings.RedisPassword}
		jobs := redisStore.GetRedisStore(ctx, opts, config.RedisJobStore)
		messages := redisStore.GetRedisStore(ctx, opts, config.RedisMessageStore)
		documents := redisStore.GetRedisStore(ctx, opts, config.RedisDocumentStore)
		if jobs != nil && messages != nil && documents != nil {
			return Stores{
				JobStore:      store.NewRedisJobStore(jobs),
				MessageStore:  store.NewRedisMessageStore(messages),
				DocumentStore: store.NewRedisDocumentStore(documents),
				Persistent:    true,
			}
		}
	}

	logger.Error("Redis stores are offline, falling back to memory", "addr", settings.RedisAddr)
	return Stores{
		JobStore:      store.InitInMemoryJobStore(),
		MessageStore:  store.InitMessageStore(),
		DocumentStore: store.InitInMemoryDocumentStore(),
	}
}

// Close releases the vector backend. Redis clients close when the Build context is cancelled.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
