package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/docrag/internal/adapter/utils"
	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/pkg/logger_i"
	"google.golang.org/genai"
)

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

type Config struct {
	APIKey     string
	Model      string
	Dimension  int32
	Timeout    time.Duration
	PollPeriod time.Duration
	HTTPClient *http.Client
	BaseURL    string
}

type Client struct {
	genAi      *genai.Client
	model      string
	dimension  int32
	timeout    time.Duration
	pollPeriod time.Duration
	logger     *logger_i.Logger
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google embedding: api key is empty")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating google embedding client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = config.GoogleEmbeddingModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = config.EmbeddingOutputDimensionality
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.ProviderCallTimeout
	}
	if cfg.PollPeriod <= 0 {
		cfg.PollPeriod = config.BatchJobPollPeriod
	}

	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", cfg.Model)
	return &Client{
		genAi:      c,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		timeout:    cfg.Timeout,
		pollPeriod: cfg.PollPeriod,
		logger:     logger,
	}, nil
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := c.logger.WithTrace(ctx)
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.doCall(callCtx, genai.Text(query), taskQuery)
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, err)
	}
	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, errors.New("empty embedding response"))
	}
	return result.Embeddings[0].Values, nil
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string, isLargeDataSet bool) ([][]float32, error) {
	log := c.logger.WithTrace(ctx).With("chunks", len(chunks))
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}

	if isLargeDataSet {
		return c.batchJobEmbedding(ctx, chunks, log)
	}

	res, err := c.callWithRetry(ctx, getContent(chunks), log)
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, err)
	}
	if len(res.Embeddings) != len(chunks) {
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, fmt.Errorf("asked for %d embeddings, got %d", len(chunks), len(res.Embeddings)))
	}

	embeddingResults := make([][]float32, 0, len(res.Embeddings))
	for _, r := range res.Embeddings {
		embeddingResults = append(embeddingResults, r.Values)
	}
	return embeddingResults, nil
}

func (c *Client) callWithRetry(ctx context.Context, content []*genai.Content, log *logger_i.Logger) (*genai.EmbedContentResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	res, err := c.doCall(callCtx, content, taskDocument)
	cancel()
	if err == nil || !doRetry(err, log) {
		return res, err
	}

	log.Debug("Retrying in 5 seconds")
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
	}
	callCtx, cancel = context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.doCall(callCtx, content, taskDocument)
}

func (c *Client) batchJobEmbedding(ctx context.Context, chunks []string, log *logger_i.Logger) ([][]float32, error) {
	src := genai.EmbeddingsBatchJobSource{InlinedRequests: c.getInlinedBatchRequests(chunks)}
	displayName := utils.GetNewUUID()
	log = log.With("batchJob", displayName)

	job, err := c.genAi.Batches.CreateEmbeddings(ctx, &c.model, &src, &genai.CreateEmbeddingsBatchJobConfig{DisplayName: displayName})
	if err != nil {
		log.Error("Error creating batch embedding job", "error", err)
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, err)
	}

	answer, err := c.pollForAnswer(ctx, job.Name, log)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, err)
	}
	vectors, err := downloadAnswerFromClient(answer, len(chunks), log)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrEmbedding, err)
	}
	return vectors, nil
}

func (c *Client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             task,
	})
}
