package openaiLLM

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/rag/llm"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	BaseURL    string
}

type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	logger  *logger_i.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is empty")
	}
	if cfg.Model == "" {
		cfg.Model = config.OpenAIChatModel
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

	logger := logger_i.NewLogger("llm_openai")
	logger.Info("OpenAI client created", "model", cfg.Model)
	return &Client{api: openai.NewClient(opts...), model: cfg.Model, timeout: cfg.Timeout, logger: logger}, nil
}

func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", ragErrors.Kind(ragErrors.ErrGeneration, errors.New("no messages to send"))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toMessages(req),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(float64(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	text, err := c.complete(ctx, params)
	if err != nil {
		c.logger.WithTrace(ctx).Error("Error generating answer from OpenAI", "error", err)
		return "", ragErrors.Kind(ragErrors.ErrGeneration, err)
	}
	return text, nil
}

func (c *Client) DescribeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				imagePart(image, mimeType),
			}),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(config.MaxOutputTokens),
	}

	text, err := c.complete(ctx, params)
	if err != nil {
		c.logger.WithTrace(ctx).Warn("OpenAI image description failed", "error", err)
		return "", ragErrors.Kind(ragErrors.ErrGeneration, err)
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.api.Chat.Completions.New(callCtx, params)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", errors.New("response has no choices")
	}
	text := strings.TrimSpace(res.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("model returned no text")
	}
	return text, nil
}

func toMessages(req llm.CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	last := len(req.Messages) - 1
	for i, m := range req.Messages {
		switch {
		case m.Role == llm.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		case i == last && req.Image != nil:
			msgs = append(msgs, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(m.Content),
				imagePart(req.Image.Data, req.Image.MimeType),
			}))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return msgs
}

func imagePart(data []byte, mimeType string) openai.ChatCompletionContentPartUnionParam {
	url := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url})
}
