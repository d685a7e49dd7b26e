package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seenimoa/stockqa/internal/config"
)

// ════════════════════════════════════════════════════════════════════
// provider.go: Types & Helpers
// ════════════════════════════════════════════════════════════════════

func TestMessageConstructors(t *testing.T) {
	sys := SystemMessage("You are helpful.")
	if sys.Role != RoleSystem || sys.Content != "You are helpful." {
		t.Fatalf("SystemMessage: got %+v", sys)
	}

	user := UserMessage("hello")
	if user.Role != RoleUser || user.Content != "hello" {
		t.Fatalf("UserMessage: got %+v", user)
	}

	tool := ToolResultMessage("call_1", "stock_data_tool", "Date,Close")
	if tool.Role != RoleTool || tool.ToolCallID != "call_1" || tool.Name != "stock_data_tool" {
		t.Fatalf("ToolResultMessage: got %+v", tool)
	}

	tc := AssistantToolCallMessage([]ToolCall{{ID: "c1", Name: "fn"}})
	if tc.Role != RoleAssistant || len(tc.ToolCalls) != 1 {
		t.Fatalf("AssistantToolCallMessage: got %+v", tc)
	}
}

// ════════════════════════════════════════════════════════════════════
// tools.go: Registry
// ════════════════════════════════════════════════════════════════════

func TestToolRegistryExecute(t *testing.T) {
	reg := NewToolRegistry(
		Tool{Name: "b_tool", Handler: func(ctx context.Context, args json.RawMessage) (string, error) { return "b", nil }},
		Tool{Name: "a_tool", Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			return "", errors.New("boom")
		}},
		Tool{Name: "no_handler"},
	)

	list := reg.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(list))
	}
	if list[0].Name != "a_tool" || list[1].Name != "b_tool" {
		t.Fatalf("List not sorted: %v, %v", list[0].Name, list[1].Name)
	}

	out, err := reg.Execute(context.Background(), ToolCall{Name: "b_tool"})
	if err != nil || out != "b" {
		t.Fatalf("Execute: %q, %v", out, err)
	}
	if _, err := reg.Execute(context.Background(), ToolCall{Name: "missing"}); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if _, err := reg.Execute(context.Background(), ToolCall{Name: "no_handler"}); err == nil {
		t.Fatal("expected error for tool without handler")
	}
}

func TestToolRegistryExecuteAllInOrder(t *testing.T) {
	var order []string
	handler := func(name string) ToolHandler {
		return func(ctx context.Context, args json.RawMessage) (string, error) {
			order = append(order, name)
			return name + "-out", nil
		}
	}
	reg := NewToolRegistry(Tool{Name: "x", Handler: handler("x")}, Tool{Name: "y", Handler: handler("y")})

	results := reg.ExecuteAll(context.Background(), []ToolCall{
		{ID: "1", Name: "y"}, {ID: "2", Name: "x"}, {ID: "3", Name: "zzz"},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if strings.Join(order, ",") != "y,x" {
		t.Fatalf("unexpected execution order %v", order)
	}
	if results[0].Content != "y-out" || results[1].ToolCallID != "2" || results[2].Err == nil {
		t.Fatalf("unexpected results %+v", results)
	}

	msg := results[2].ToMessage()
	if msg.Role != RoleTool || !strings.Contains(msg.Content, "Error executing tool zzz") {
		t.Fatalf("unexpected error message %+v", msg)
	}
}

func TestObjectSchemaMarshalsEmptyProperties(t *testing.T) {
	data, err := json.Marshal(ObjectSchema("", nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"object","properties":{}}` {
		t.Fatalf("unexpected schema JSON: %s", data)
	}
}

// ════════════════════════════════════════════════════════════════════
// openai.go: OpenAI-compatible client
// ════════════════════════════════════════════════════════════════════

func TestNewProviders(t *testing.T) {
	if _, err := NewGroqProvider(""); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got: %v", err)
	}

	g, err := NewGroqProvider("gsk-test")
	if err != nil {
		t.Fatal(err)
	}
	if g.Name() != ProviderGroq || g.baseURL != GroqBaseURL || g.Model() != GroqDefaultModel {
		t.Fatalf("unexpected groq config: %+v", g)
	}

	o, err := NewOpenAIProvider("sk-test", WithModel("gpt-4o"), WithBaseURL("http://custom/"))
	if err != nil {
		t.Fatal(err)
	}
	if o.Name() != ProviderOpenAI || o.Model() != "gpt-4o" || o.baseURL != "http://custom" {
		t.Fatalf("unexpected openai config: %+v", o)
	}
}

func TestNewProviderFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LLMConfig
		wantName string
		wantErr  error
	}{
		{"groq", config.LLMConfig{Provider: "groq", APIKey: "k", Model: "llama3-70b-8192"}, ProviderGroq, nil},
		{"default_is_groq", config.LLMConfig{APIKey: "k"}, ProviderGroq, nil},
		{"openai_upper", config.LLMConfig{Provider: "OpenAI", APIKey: "k", TimeoutSec: 5}, ProviderOpenAI, nil},
		{"missing_key", config.LLMConfig{Provider: "groq"}, "", ErrNoAPIKey},
		{"unknown", config.LLMConfig{Provider: "cohere", APIKey: "k"}, "", ErrUnknownProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProviderFromConfig(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Name() != tt.wantName {
				t.Fatalf("expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestChatSendsTemperatureZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer gsk-test" {
			t.Error("missing auth header")
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"temperature":0`) {
			t.Errorf("temperature 0 not sent: %s", body)
		}

		var req chatRequest
		json.Unmarshal(body, &req)
		if req.Model != GroqDefaultModel {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.MaxTokens == nil || *req.MaxTokens != 256 {
			t.Errorf("expected max_tokens 256, got %v", req.MaxTokens)
		}

		json.NewEncoder(w).Encode(chatResponse{
			ID: "chatcmpl-123",
			Choices: []chatChoice{{
				Message:      chatMessage{Role: "assistant", Content: "The close on 2024-01-02 was 2,600.50"},
				FinishReason: "stop",
			}},
			Usage: chatUsage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
			Model: GroqDefaultModel,
		})
	}))
	defer server.Close()

	p, _ := NewGroqProvider("gsk-test", WithBaseURL(server.URL))
	resp, err := p.Chat(context.Background(),
		[]Message{SystemMessage("sys"), UserMessage("What was the close?")},
		nil, &ChatOptions{Temperature: 0, MaxTokens: 256})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "The close on 2024-01-02 was 2,600.50" || resp.FinishReason != FinishStop {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Provider != ProviderGroq || resp.Usage.TotalTokens != 30 {
		t.Fatalf("unexpected metadata: %+v", resp)
	}
}

func TestChatNilOptionsStillSendsTemperature(t *testing.T) {
	p := &OpenAIProvider{name: ProviderGroq, model: "m"}
	req := p.buildRequest([]Message{UserMessage("q")}, nil, "m", nil)
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Fatalf("expected temperature 0, got %v", req.Temperature)
	}
	if req.Tools != nil || req.ToolChoice != "" {
		t.Fatalf("no tools expected: %+v", req)
	}
}

func TestChatWithToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "stock_data_tool" || req.ToolChoice != "auto" {
			t.Errorf("unexpected tools: %+v", req.Tools)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{
				Message: chatMessage{
					Role: "assistant",
					ToolCalls: []chatToolCall{{
						ID: "call_abc", Type: "function",
						Function: functionCall{Name: "stock_data_tool", Arguments: ""},
					}},
				},
				FinishReason: "tool_calls",
			}},
		})
	}))
	defer server.Close()

	p, _ := NewGroqProvider("gsk-test", WithBaseURL(server.URL))
	resp, err := p.Chat(context.Background(), []Message{UserMessage("q")},
		[]Tool{{Name: "stock_data_tool", Description: "Returns the series"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.HasToolCalls() || resp.ToolCalls[0].ID != "call_abc" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
	if string(resp.ToolCalls[0].Arguments) != "{}" {
		t.Fatalf("empty arguments should normalise to {}, got %s", resp.ToolCalls[0].Arguments)
	}
	if resp.FinishReason != FinishToolCalls {
		t.Fatalf("expected tool_calls finish, got %s", resp.FinishReason)
	}
}

func TestChatErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
		contains   string
	}{
		{"unauthorized", 401, `{"error":{"message":"Invalid key","code":"invalid_api_key"}}`, ErrNoAPIKey, ""},
		{"rate_limit", 429, `{"error":{"message":"Rate limit reached"}}`, ErrRateLimit, ""},
		{"context_length", 400, `{"error":{"message":"Too many tokens","code":"context_length_exceeded"}}`, ErrContextLength, ""},
		{"decommissioned", 400, `{"error":{"message":"gone","code":"model_decommissioned"}}`, ErrInvalidModel, ""},
		{"other_api_error", 500, `{"error":{"message":"internal"}}`, nil, "API error (500)"},
		{"non_json", 502, `bad gateway`, nil, "HTTP 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, _ := NewGroqProvider("gsk-test", WithBaseURL(server.URL))
			_, err := p.Chat(context.Background(), []Message{UserMessage("test")}, nil, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Fatalf("expected error containing %q, got %v", tt.contains, err)
			}
		})
	}
}

func TestChatProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p, _ := NewGroqProvider("gsk-test", WithBaseURL(url))
	_, err := p.Chat(context.Background(), []Message{UserMessage("q")}, nil, nil)
	if !errors.Is(err, ErrProviderDown) {
		t.Fatalf("expected ErrProviderDown, got %v", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	good, _ := NewGroqProvider("good", WithBaseURL(server.URL))
	if err := good.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	bad, _ := NewGroqProvider("bad", WithBaseURL(server.URL))
	if err := bad.Ping(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := map[string]FinishReason{
		"stop":       FinishStop,
		"tool_calls": FinishToolCalls,
		"length":     FinishLength,
		"other":      FinishReason("other"),
	}
	for in, want := range tests {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// tools.go: RunToolLoop
// ════════════════════════════════════════════════════════════════════

type mockProvider struct {
	name     string
	calls    int
	chatFunc func(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error)
}

func (m *mockProvider) Name() string                   { return m.name }
func (m *mockProvider) Ping(ctx context.Context) error { return nil }
func (m *mockProvider) Chat(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error) {
	m.calls++
	return m.chatFunc(ctx, messages, tools, opts)
}

func TestRunToolLoop(t *testing.T) {
	provider := &mockProvider{name: "test"}
	provider.chatFunc = func(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error) {
		if len(tools) != 1 || tools[0].Name != "stock_data_tool" {
			t.Errorf("unexpected tools: %+v", tools)
		}
		if provider.calls == 1 {
			return &Response{
				ToolCalls:    []ToolCall{{ID: "call_1", Name: "stock_data_tool", Arguments: json.RawMessage(`{}`)}},
				FinishReason: FinishToolCalls,
				Usage:        Usage{TotalTokens: 10},
			}, nil
		}
		last := messages[len(messages)-1]
		if last.Role != RoleTool || last.Content != "Date,Close\n2024-01-02,2600.50\n" {
			t.Errorf("tool result not fed back: %+v", last)
		}
		return &Response{Content: "2600.50", FinishReason: FinishStop, Usage: Usage{TotalTokens: 15}}, nil
	}

	registry := NewToolRegistry(Tool{
		Name: "stock_data_tool",
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			return "Date,Close\n2024-01-02,2600.50\n", nil
		},
	})

	in := []Message{UserMessage("Close on Jan 2?")}
	res, err := RunToolLoop(context.Background(), provider, registry, in, nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	if res.Response.Content != "2600.50" {
		t.Fatalf("unexpected content: %s", res.Response.Content)
	}
	if provider.calls != 2 || res.ToolCalls != 1 || res.Usage.TotalTokens != 25 {
		t.Fatalf("unexpected accounting: calls=%d tools=%d usage=%+v", provider.calls, res.ToolCalls, res.Usage)
	}
	// user + assistant tool call + tool result + final assistant
	if len(res.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(res.Messages))
	}
	if len(in) != 1 {
		t.Fatal("caller's slice was mutated")
	}
}

func TestRunToolLoopMaxIterations(t *testing.T) {
	provider := &mockProvider{name: "test", chatFunc: func(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error) {
		return &Response{
			ToolCalls:    []ToolCall{{ID: "c1", Name: "fn", Arguments: json.RawMessage(`{}`)}},
			FinishReason: FinishToolCalls,
		}, nil
	}}
	registry := NewToolRegistry(Tool{
		Name:    "fn",
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) { return "ok", nil },
	})

	_, err := RunToolLoop(context.Background(), provider, registry, []Message{UserMessage("test")}, nil, 3)
	if !errors.Is(err, ErrMaxIterations) {
		t.Fatalf("expected ErrMaxIterations, got: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", provider.calls)
	}
}

func TestRunToolLoopProviderError(t *testing.T) {
	provider := &mockProvider{name: "test", chatFunc: func(ctx context.Context, messages []Message, tools []Tool, opts *ChatOptions) (*Response, error) {
		return nil, ErrRateLimit
	}}
	_, err := RunToolLoop(context.Background(), provider, NewToolRegistry(), []Message{UserMessage("q")}, nil, 0)
	if !errors.Is(err, ErrRateLimit) || provider.calls != 1 {
		t.Fatalf("expected single failing call, got calls=%d err=%v", provider.calls, err)
	}
}
