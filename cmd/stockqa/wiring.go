package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/seenimoa/stockqa/internal/agent"
	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/datasource"
	"github.com/seenimoa/stockqa/internal/infra"
	"github.com/seenimoa/stockqa/internal/llm"
	"github.com/seenimoa/stockqa/internal/session"
)

func setupLogging(cfg *config.Config) *slog.Logger {
	return infra.SetupLogging(os.Stderr, cfg.Logging)
}

func buildSource(cfg *config.Config, logger *slog.Logger) *datasource.YFinance {
	return datasource.NewYFinance(
		datasource.WithBaseURL(cfg.DataSource.BaseURL),
		datasource.WithHTTPClient(infra.NewHTTPClient(cfg.DataSource.TimeoutSec)),
		datasource.WithLogger(logger),
	)
}

// buildService wires the market-data source and the Q&A agent. The LLM
// client is created once and shared by every request.
func buildService(cfg *config.Config, logger *slog.Logger) (*session.Service, error) {
	provider, err := llm.NewProviderFromConfig(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("LLM setup failed: %w", err)
	}
	asker := agent.NewQAAgentFromConfig(provider, cfg.LLM, logger)
	return session.NewService(buildSource(cfg, logger), asker, logger), nil
}

func timeout(sec int) time.Duration {
	if sec <= 0 {
		sec = 30
	}
	return time.Duration(sec) * time.Second
}
