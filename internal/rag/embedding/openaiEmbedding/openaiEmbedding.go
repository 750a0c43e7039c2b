package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	APIKey     string
	Model      string
	Dimension  int32
	BatchSize  int
	Timeout    time.Duration
	HTTPClient *http.Client
	// BaseURL points the client at an OpenAI compatible server, mostly for tests.
	BaseURL string
}

type Client struct {
	api       openai.Client
	model     string
	dimension int32
	batchSize int
	timeout   time.Duration
	logger    *logger_i.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedding: api key is empty")
	}
	if cfg.Model == "" {
		cfg.Model = config.OpenAIEmbeddingModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = config.EmbeddingOutputDimensionality
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.EmbeddingBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.ProviderCallTimeout
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(2)}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	logger := logger_i.NewLogger("openai_embedding")
	logger.Info("OpenAI Embedding client created", "model", cfg.Model)
	return &Client{
		api:       openai.NewClient(opts...),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{query})
	if err != nil {
		c.logger.WithTrace(ctx).Error("Error getting query embedding from OpenAI", "error", err)
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, err)
	}
	return vectors[0], nil
}

// BatchEmbedding has no asynchronous batch mode here, so large sets are only split into request sized slices.
func (c *Client) BatchEmbedding(ctx context.Context, chunks []string, _ bool) ([][]float32, error) {
	log := c.logger.WithTrace(ctx).With("chunks", len(chunks))
	results := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += c.batchSize {
		end := min(start+c.batchSize, len(chunks))
		vectors, err := c.embed(ctx, chunks[start:end])
		if err != nil {
			log.Error("Error getting Embeddings from OpenAI", "error", err, "offset", start)
			return nil, ragErrors.Kind(ragErrors.ErrEmbedding, err)
		}
		results = append(results, vectors...)
	}
	return results, nil
}

func (c *Client) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.api.Embeddings.New(callCtx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(c.dimension)),
	})
	if err != nil {
		return nil, err
	}
	if len(res.Data) != len(inputs) {
		return nil, fmt.Errorf("asked for %d embeddings, got %d", len(inputs), len(res.Data))
	}

	// the API documents Data as ordered, the index field is used anyway
	vectors := make([][]float32, len(inputs))
	for _, d := range res.Data {
		if d.Index < 0 || int(d.Index) >= len(inputs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding %d missing from response", i)
		}
	}
	return vectors, nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}
