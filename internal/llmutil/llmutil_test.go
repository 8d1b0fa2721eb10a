package llmutil_test

import (
	"errors"
	"testing"

	"github.com/efebarandurmaz/archsift/internal/llm"
	"github.com/efebarandurmaz/archsift/internal/llmutil"
)

func TestStripThinkingTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no tags",
			input: "just code here",
			want:  "just code here",
		},
		{
			name:  "single think block",
			input: "<think>reasoning here</think>actual output",
			want:  "actual output",
		},
		{
			name:  "think block with whitespace",
			input: "<think>reasoning</think>\n\nactual output",
			want:  "actual output",
		},
		{
			name:  "multiple think blocks",
			input: "<think>first</think>middle<think>second</think>end",
			want:  "middleend",
		},
		{
			name:  "unclosed think tag",
			input: "before<think>unclosed reasoning",
			want:  "before",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace after tag removal",
			input: "<think>all reasoning</think>   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := llmutil.StripThinkingTags(tt.input)
			if got != tt.want {
				t.Errorf("StripThinkingTags(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no fences",
			input: "plain code",
			want:  "plain code",
		},
		{
			name:  "python fence",
			input: "```python\nimport os\n```",
			want:  "import os",
		},
		{
			name:  "plain fence",
			input: "```\nsome code\n```",
			want:  "some code",
		},
		{
			name:  "fence with thinking tags",
			input: "<think>reasoning</think>\n```go\nfunc foo() {}\n```",
			want:  "func foo() {}",
		},
		{
			name:  "multi-line body",
			input: "```python\nx = 1\ny = 2\n```",
			want:  "x = 1\ny = 2",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := llmutil.StripMarkdownFences(tt.input)
			if got != tt.want {
				t.Errorf("StripMarkdownFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"complexity_level": "simple"}`,
			want:  `{"complexity_level": "simple"}`,
		},
		{
			name:  "fenced json",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "prose around object",
			input: "Here is my judgment:\n{\"a\": {\"b\": 2}}\nHope this helps.",
			want:  `{"a": {"b": 2}}`,
		},
		{
			name:  "braces inside strings",
			input: `{"reasoning": "uses {curly} and \"quoted}\" text"} trailing`,
			want:  `{"reasoning": "uses {curly} and \"quoted}\" text"}`,
		},
		{
			name:  "thinking block first",
			input: "<think>{not json}</think>{\"ok\": true}",
			want:  `{"ok": true}`,
		},
		{
			name:    "no object",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			input:   `{"a": {"b": 1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := llmutil.ExtractJSONObject(tt.input)
			if tt.wantErr {
				if !errors.Is(err, llmutil.ErrNoJSONObject) {
					t.Fatalf("expected ErrNoJSONObject, got %v (%q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSONObject(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegisterDefaultProviders(t *testing.T) {
	f := llm.NewFactory()
	llmutil.RegisterDefaultProviders(f)

	want := []string{"anthropic", "custom", "deepseek", "groq", "huggingface", "ollama", "openai", "together"}
	got := f.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}

	for _, name := range want {
		p, err := f.Create(llm.ProviderConfig{Provider: name, APIKey: "k", Model: "m"})
		if err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		if p.Name() != name {
			t.Errorf("Create(%s).Name() = %q", name, p.Name())
		}
	}
}
