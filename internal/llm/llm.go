package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sqlchat/sqlchat/internal/config"
	"github.com/sqlchat/sqlchat/internal/observability"
)

// Request is one blocking, non-streaming completion call.
type Request struct {
	// Purpose labels the call site in logs and metrics (classify, synthesize, ...).
	Purpose     string
	System      []string
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var (
	ErrTimeout         = errors.New("text generation timed out")
	ErrEmptyCompletion = errors.New("empty completion")
)

// New builds the provider client named by cfg, bounded by cfg.Timeout and instrumented.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Generator, error) {
	var (
		next Generator
		err  error
	)
	switch cfg.Provider {
	case "openai":
		next, err = NewOpenAIClient(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case "gemini":
		next, err = NewGeminiClient(ctx, GeminiConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s client: %w", cfg.Provider, err)
	}
	return Instrument(next, cfg.Provider, cfg.Timeout, logger), nil
}

type instrumented struct {
	next     Generator
	provider string
	timeout  time.Duration
	logger   *slog.Logger
}

// Instrument bounds every call with timeout and records latency per purpose.
// A call that exceeds the timeout fails with an error wrapping ErrTimeout.
func Instrument(next Generator, provider string, timeout time.Duration, logger *slog.Logger) Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &instrumented{next: next, provider: provider, timeout: timeout, logger: logger}
}

func (g *instrumented) Generate(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.next.Generate(ctx, req)
	elapsed := time.Since(start)

	status := "ok"
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = "timeout"
		err = fmt.Errorf("%w after %s: %w", ErrTimeout, g.timeout, err)
	case err != nil:
		status = "error"
	}
	observability.ObserveLLMCall(g.provider, req.Purpose, status, elapsed)

	if err != nil {
		g.logger.WarnContext(ctx, "llm_call_failed",
			slog.String("provider", g.provider),
			slog.String("purpose", req.Purpose),
			slog.String("status", status),
			slog.String("duration", elapsed.String()),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	g.logger.DebugContext(ctx, "llm_call",
		slog.String("provider", g.provider),
		slog.String("purpose", req.Purpose),
		slog.String("duration", elapsed.String()),
	)
	return text, nil
}
