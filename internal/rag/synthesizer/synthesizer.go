package synthesizer

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/metrics"
	"github.com/akolanti/docrag/internal/rag/llm"
	"github.com/akolanti/docrag/pkg/logger_i"
)

type Request struct {
	Question    string
	Context     string
	History     []commonModels.ConversationTurn
	Temperature *float32
	Image       *llm.ImageInput
}

type Synthesizer struct {
	provider    llm.Provider
	system      string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      *logger_i.Logger
}

type Option func(*Synthesizer)

func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithSystemInstruction(text string) Option {
	return func(s *Synthesizer) {
		if text != "" {
			s.system = text
		}
	}
}

func New(provider llm.Provider, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		provider:    provider,
		system:      config.ModelContext,
		maxTokens:   config.MaxOutputTokens,
		temperature: config.ModelTemperature,
		timeout:     config.ProviderCallTimeout,
		logger:      logger_i.NewLogger("synthesizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate answers from the context only. With no context the model is not called at all.
func (s *Synthesizer) Generate(ctx context.Context, req Request) (string, error) {
	log := s.logger.WithTrace(ctx)
	if strings.TrimSpace(req.Context) == "" {
		log.Info("no context retrieved, skipping generation")
		return config.NoRelevantContentAnswer, nil
	}

	temperature := s.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	msgs := llm.HistoryMessages(req.History)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: llm.ContextPrompt(req.Context, req.Question)})

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	answer, err := s.provider.Complete(callCtx, llm.CompletionRequest{
		System:      s.system,
		Messages:    msgs,
		MaxTokens:   s.maxTokens,
		Temperature: &temperature,
		Image:       req.Image,
	})
	metrics.CaptureExecutionMetrics("llm_generation", time.Since(start))
	if err != nil {
		log.Error("generation failed", "error", err)
		return "", ragErrors.Wrap(ragErrors.StageGenerate, "", ragErrors.Kind(ragErrors.ErrGeneration, err))
	}
	return answer, nil
}
