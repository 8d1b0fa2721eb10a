package llm

import "context"

// Provider is the interface all reasoning-service backends implement.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Name returns the provider identifier (e.g. "anthropic", "openai").
	Name() string
}

// RequestOptions tunes a single completion call. Nil fields fall back to the
// provider's defaults.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	StopSeqs    []string
	// JSONMode asks providers that support it to return a single JSON object.
	JSONMode bool
}

// Int returns a pointer to v, for RequestOptions fields.
func Int(v int) *int { return &v }

// Float64 returns a pointer to v, for RequestOptions fields.
func Float64(v float64) *float64 { return &v }
