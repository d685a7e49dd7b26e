package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrMaxIterations is returned when the model keeps requesting tools past
// the configured iteration limit.
var ErrMaxIterations = errors.New("llm: tool loop exceeded max iterations")

// Tool represents a function/tool that can be called by the LLM.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters"`
	Handler     ToolHandler `json:"-"`
}

// ToolHandler executes a tool call and returns a string result.
type ToolHandler func(ctx context.Context, args json.RawMessage) (string, error)

// JSONSchema represents a JSON Schema definition for tool parameters.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties"`
	Required    []string               `json:"required,omitempty"`
}

// ObjectSchema creates a JSON Schema for an object with the given properties.
func ObjectSchema(desc string, props map[string]*JSONSchema, required ...string) *JSONSchema {
	if props == nil {
		props = map[string]*JSONSchema{}
	}
	return &JSONSchema{
		Type:        "object",
		Description: desc,
		Properties:  props,
		Required:    required,
	}
}

// ToolRegistry holds the tools bound to one conversation and executes calls
// against them. It is built per question and is not safe for concurrent use.
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry creates a registry holding the given tools.
func NewToolRegistry(tools ...Tool) *ToolRegistry {
	r := &ToolRegistry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool to the registry. Overwrites if already exists.
func (r *ToolRegistry) Register(tool Tool) {
	r.tools[tool.Name] = tool
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tools sorted by name.
func (r *ToolRegistry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs a tool call and returns the string result.
func (r *ToolRegistry) Execute(ctx context.Context, call ToolCall) (string, error) {
	tool, ok := r.Get(call.Name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}
	if tool.Handler == nil {
		return "", fmt.Errorf("llm: tool %q has no handler", call.Name)
	}
	return tool.Handler(ctx, call.Arguments)
}

// ExecuteAll runs the tool calls one after another, in the order the model
// issued them.
func (r *ToolRegistry) ExecuteAll(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, 0, len(calls))
	for _, c := range calls {
		output, err := r.Execute(ctx, c)
		results = append(results, ToolResult{
			ToolCallID: c.ID,
			Name:       c.Name,
			Content:    output,
			Err:        err,
		})
	}
	return results
}

// ToolResult represents the result of executing a tool.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Err        error  `json:"error,omitempty"`
}

// ToMessage converts a ToolResult to a Message for feeding back to the LLM.
func (tr ToolResult) ToMessage() Message {
	content := tr.Content
	if tr.Err != nil {
		content = fmt.Sprintf("Error executing tool %s: %v", tr.Name, tr.Err)
	}
	return ToolResultMessage(tr.ToolCallID, tr.Name, content)
}

// LoopResult is the outcome of RunToolLoop.
type LoopResult struct {
	Response  *Response // final text response
	Messages  []Message // full transcript, including tool traffic
	ToolCalls int       // number of tool calls executed
	Usage     Usage     // summed over every round trip
}

// RunToolLoop sends messages to the provider, executes any tool calls it
// requests, feeds the results back and repeats until the model answers with
// text or maxIterations round trips have been made.
func RunToolLoop(ctx context.Context, provider Provider, registry *ToolRegistry,
	messages []Message, opts *ChatOptions, maxIterations int) (*LoopResult, error) {

	if maxIterations <= 0 {
		maxIterations = 4
	}

	res := &LoopResult{Messages: make([]Message, len(messages))}
	copy(res.Messages, messages)
	tools := registry.List()

	for i := 0; i < maxIterations; i++ {
		resp, err := provider.Chat(ctx, res.Messages, tools, opts)
		if err != nil {
			return res, err
		}
		res.Usage.add(resp.Usage)

		if !resp.HasToolCalls() {
			res.Response = resp
			res.Messages = append(res.Messages, AssistantMessage(resp.Content))
			return res, nil
		}

		res.Messages = append(res.Messages, AssistantToolCallMessage(resp.ToolCalls))
		for _, result := range registry.ExecuteAll(ctx, resp.ToolCalls) {
			res.Messages = append(res.Messages, result.ToMessage())
		}
		res.ToolCalls += len(resp.ToolCalls)
	}

	return res, fmt.Errorf("%w (%d)", ErrMaxIterations, maxIterations)
}
