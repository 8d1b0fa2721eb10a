package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/efebarandurmaz/archsift/internal/llm"
)

func chatResponseBody(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"model": "gpt-test",
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 34},
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New("key", "gpt-test", "")
	if c.baseURL != defaultBaseURL {
		t.Errorf("expected default baseURL, got %q", c.baseURL)
	}
	if c.Name() != "openai" {
		t.Errorf("expected name 'openai', got %q", c.Name())
	}
	if NewNamed("groq", "k", "m", "https://api.groq.com/openai/v1").Name() != "groq" {
		t.Error("expected preset name to be reported")
	}
}

func TestComplete_RequestShape(t *testing.T) {
	var body map[string]any
	var auth, path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponseBody("ok"))
	}))
	defer server.Close()

	c := New("secret", "gpt-test", server.URL)
	resp, err := c.Complete(context.Background(), &llm.Prompt{
		SystemPrompt: "system text",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
	}, &llm.RequestOptions{
		MaxTokens:   llm.Int(500),
		Temperature: llm.Float64(0.1),
		JSONMode:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if path != "/chat/completions" {
		t.Errorf("expected /chat/completions, got %q", path)
	}
	if auth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if body["max_tokens"] != float64(500) {
		t.Errorf("expected max_tokens 500, got %v", body["max_tokens"])
	}
	if body["temperature"] != 0.1 {
		t.Errorf("expected temperature 0.1, got %v", body["temperature"])
	}
	rf, _ := body["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("expected json_object response format, got %v", body["response_format"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(msgs))
	}
	if first := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("expected first message to be system, got %v", first["role"])
	}

	if resp.Content != "ok" || resp.InputTokens != 12 || resp.OutputTokens != 34 || resp.StopReason != "stop" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestComplete_OmitsAuthWithoutKey(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(chatResponseBody("ok"))
	}))
	defer server.Close()

	c := NewNamed("ollama", "", "llama3", server.URL)
	if _, err := c.Complete(context.Background(), llm.NewPrompt("", "ping"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "" {
		t.Errorf("expected no Authorization header, got %q", auth)
	}
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, false},
		{"server error", http.StatusBadGateway, `upstream`, true},
		{"malformed json", http.StatusOK, `{nope`, true},
		{"no choices", http.StatusOK, `{"choices":[]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New("k", "m", server.URL).Complete(context.Background(), llm.NewPrompt("", "ping"), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := llm.IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v (%v)", got, tt.retryable, err)
			}
			var se *llm.StatusError
			if tt.status != http.StatusOK && (!errors.As(err, &se) || se.StatusCode != tt.status) {
				t.Errorf("expected StatusError with %d, got %v", tt.status, err)
			}
		})
	}
}

func TestComplete_RejectsEmptyPrompt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	if _, err := New("k", "m", server.URL).Complete(context.Background(), &llm.Prompt{}, nil); err == nil {
		t.Fatal("expected error for prompt without messages")
	}
	if calls != 0 {
		t.Errorf("expected no request, got %d", calls)
	}
}
