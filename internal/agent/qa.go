package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/seenimoa/stockqa/internal/agent/prompts"
	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/llm"
	"github.com/seenimoa/stockqa/pkg/models"
)

// ErrNoSeries is returned when a question is asked without a fetched series.
var ErrNoSeries = errors.New("agent: no stock data loaded")

// QAAgent answers questions about one price series with a single bound tool.
type QAAgent struct {
	provider    llm.Provider
	opts        *llm.ChatOptions
	maxToolIter int
	logger      *slog.Logger
}

// QAOption configures a QAAgent.
type QAOption func(*QAAgent)

// WithChatOptions sets the per-request chat options.
func WithChatOptions(opts *llm.ChatOptions) QAOption {
	return func(a *QAAgent) { a.opts = opts }
}

// WithMaxToolIter bounds the number of model round trips per question.
func WithMaxToolIter(n int) QAOption {
	return func(a *QAAgent) { a.maxToolIter = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) QAOption {
	return func(a *QAAgent) { a.logger = l }
}

// NewQAAgent creates a Q&A agent on top of provider.
func NewQAAgent(provider llm.Provider, opts ...QAOption) *QAAgent {
	a := &QAAgent{
		provider:    provider,
		opts:        &llm.ChatOptions{Temperature: 0},
		maxToolIter: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewQAAgentFromConfig wires the agent's chat options from cfg.
func NewQAAgentFromConfig(provider llm.Provider, cfg config.LLMConfig, logger *slog.Logger) *QAAgent {
	return NewQAAgent(provider,
		WithChatOptions(&llm.ChatOptions{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}),
		WithMaxToolIter(cfg.MaxToolIter),
		WithLogger(logger),
	)
}

// Ask runs one question against series. A fresh agent with exactly one tool
// is built for every call; nothing is remembered between questions.
func (a *QAAgent) Ask(ctx context.Context, series *models.PriceSeries, question string) (*models.Answer, error) {
	if series.Empty() {
		return nil, ErrNoSeries
	}

	base := NewBaseAgent(BaseAgentConfig{
		Name:         prompts.AgentStockQA,
		SystemPrompt: prompts.StockQAPrompt(series.Symbol, series.Currency, series.First(), series.Last(), series.Len()),
		Provider:     a.provider,
		Tools:        []llm.Tool{StockDataTool(series)},
		ChatOptions:  a.opts,
		MaxToolIter:  a.maxToolIter,
	})

	res, err := base.Process(ctx, question)
	if err != nil {
		a.logger.Warn("agent run failed", "symbol", series.Symbol, "provider", a.provider.Name(), "error", err)
		return nil, fmt.Errorf("%s: %w", prompts.AgentStockQA, err)
	}

	a.logger.Info("question answered",
		"symbol", series.Symbol,
		"provider", a.provider.Name(),
		"tool_calls", res.ToolCalls,
		"tokens", res.Tokens,
		"duration", res.Duration,
	)

	return &models.Answer{
		Input:     question,
		Output:    res.Content,
		Model:     res.Model,
		ToolCalls: res.ToolCalls,
		Tokens:    res.Tokens,
		Duration:  res.Duration,
	}, nil
}
