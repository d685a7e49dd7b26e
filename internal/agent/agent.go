// Package agent implements the single-tool question-answering agent that
// answers free-text questions about a fetched price series.
package agent

import (
	"context"
	"time"

	"github.com/seenimoa/stockqa/internal/llm"
)

// ── AgentResult ──

// AgentResult holds the output from one agent run.
type AgentResult struct {
	AgentName string        `json:"agent_name"`
	Input     string        `json:"input"`
	Content   string        `json:"content"` // LLM-generated answer text
	Model     string        `json:"model,omitempty"`
	ToolCalls int           `json:"tool_calls"`
	Tokens    int           `json:"tokens"`
	Duration  time.Duration `json:"duration"`
	Messages  []llm.Message `json:"messages"` // full conversation, tool traffic included
	Error     string        `json:"error,omitempty"`
}

// ── BaseAgent ──

// BaseAgent binds a system prompt, a tool set and a provider into a runnable
// tool-calling agent. Each Process call starts a fresh conversation.
type BaseAgent struct {
	name         string
	systemPrompt string
	tools        []llm.Tool
	registry     *llm.ToolRegistry
	provider     llm.Provider
	opts         *llm.ChatOptions
	maxToolIter  int
}

// BaseAgentConfig configures a BaseAgent.
type BaseAgentConfig struct {
	Name         string
	SystemPrompt string
	Provider     llm.Provider
	Tools        []llm.Tool
	ChatOptions  *llm.ChatOptions
	MaxToolIter  int
}

// NewBaseAgent creates a new BaseAgent from the given configuration.
func NewBaseAgent(cfg BaseAgentConfig) *BaseAgent {
	if cfg.MaxToolIter <= 0 {
		cfg.MaxToolIter = 4
	}
	return &BaseAgent{
		name:         cfg.Name,
		systemPrompt: cfg.SystemPrompt,
		tools:        cfg.Tools,
		registry:     llm.NewToolRegistry(cfg.Tools...),
		provider:     cfg.Provider,
		opts:         cfg.ChatOptions,
		maxToolIter:  cfg.MaxToolIter,
	}
}

// Name returns the agent's identifier.
func (a *BaseAgent) Name() string { return a.name }

// SystemPrompt returns the agent's system prompt.
func (a *BaseAgent) SystemPrompt() string { return a.systemPrompt }

// Tools returns the agent's available tools.
func (a *BaseAgent) Tools() []llm.Tool { return a.tools }

// Process runs task through the tool-calling loop with a fresh conversation
// (system prompt + user message).
func (a *BaseAgent) Process(ctx context.Context, task string) (*AgentResult, error) {
	start := time.Now()

	messages := []llm.Message{
		llm.SystemMessage(a.systemPrompt),
		llm.UserMessage(task),
	}

	loop, err := llm.RunToolLoop(ctx, a.provider, a.registry, messages, a.opts, a.maxToolIter)
	result := &AgentResult{
		AgentName: a.name,
		Input:     task,
		Duration:  time.Since(start),
	}
	if loop != nil {
		result.Messages = loop.Messages
		result.ToolCalls = loop.ToolCalls
		result.Tokens = loop.Usage.TotalTokens
	}
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.Content = loop.Response.Content
	result.Model = loop.Response.Model
	return result, nil
}
