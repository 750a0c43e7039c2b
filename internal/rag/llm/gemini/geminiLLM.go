package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/rag/llm"
	"github.com/akolanti/docrag/pkg/logger_i"
	"google.golang.org/genai"
)

type Config struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	// BaseURL overrides the Gemini API endpoint, mostly for tests.
	BaseURL string
}

type Client struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
	logger    *logger_i.Logger
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is empty")
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
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = config.GeminiModelName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.ProviderCallTimeout
	}

	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", cfg.Model)
	return &Client{client: c, modelName: cfg.Model, timeout: cfg.Timeout, logger: logger}, nil
}

func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	log := c.logger.WithTrace(ctx)
	if len(req.Messages) == 0 {
		return "", ragErrors.Kind(ragErrors.ErrGeneration, errors.New("no messages to send"))
	}

	contents := toContents(req)
	contentConfig := &genai.GenerateContentConfig{}
	if req.System != "" {
		contentConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		contentConfig.Temperature = genai.Ptr(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		contentConfig.MaxOutputTokens = int32(req.MaxTokens)
	}

	text, err := c.generate(ctx, contents, contentConfig)
	if err != nil {
		log.Error("Error generating answer from Gemini", "error", err)
		return "", ragErrors.Kind(ragErrors.ErrGeneration, err)
	}
	return text, nil
}

func (c *Client) DescribeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}, genai.RoleUser)}

	text, err := c.generate(ctx, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: int32(config.MaxOutputTokens),
	})
	if err != nil {
		c.logger.WithTrace(ctx).Warn("Gemini image description failed", "error", err)
		return "", ragErrors.Kind(ragErrors.ErrGeneration, err)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.Models.GenerateContent(callCtx, c.modelName, contents, cfg)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", errors.New("empty response")
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("model returned no text")
	}
	return text, nil
}

func toContents(req llm.CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Messages))
	last := len(req.Messages) - 1
	for i, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		parts := []*genai.Part{genai.NewPartFromText(m.Content)}
		if i == last && req.Image != nil {
			parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MimeType))
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}
