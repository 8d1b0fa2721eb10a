// Package openai implements llm.Provider for OpenAI-compatible chat APIs.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/efebarandurmaz/archsift/internal/llm"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultMaxTokens = 1024
)

// Client implements llm.Provider for OpenAI-compatible APIs (OpenAI, Groq, Ollama, vLLM, etc.).
type Client struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// New creates an OpenAI-compatible provider.
func New(apiKey, model, baseURL string) *Client {
	return NewNamed("openai", apiKey, model, baseURL)
}

// NewNamed creates an OpenAI-compatible provider that reports name from
// Name(), so presets such as groq or ollama are identifiable in logs.
func NewNamed(name, apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		name:    name,
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) Name() string { return c.name }

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	if err := prompt.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	if opts == nil {
		opts = &llm.RequestOptions{}
	}

	msgs := make([]llm.Message, 0, len(prompt.Messages)+1)
	if prompt.SystemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: prompt.SystemPrompt})
	}
	msgs = append(msgs, prompt.Messages...)

	req := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   defaultMaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.StopSeqs,
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.JSONMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	var out chatResponse
	if err := llm.PostJSON(ctx, c.http, c.name, c.baseURL+"/chat/completions", header, req, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s: response has no choices", c.name)
	}

	return &llm.Response{
		Content:      out.Choices[0].Message.Content,
		Model:        out.Model,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
		StopReason:   out.Choices[0].FinishReason,
	}, nil
}
