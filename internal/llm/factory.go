package llm

import (
	"fmt"
	"sort"
)

// ProviderConfig holds everything needed to build any provider.
type ProviderConfig struct {
	Provider string // registered name, or "" / "none" for deterministic-only runs
	APIKey   string
	Model    string
	BaseURL  string // overrides the preset endpoint

	// RequestsPerMinute, when positive, wraps the provider in a rate limiter.
	RequestsPerMinute int
}

// ProviderConstructor builds a Provider from config.
type ProviderConstructor func(cfg ProviderConfig) (Provider, error)

// ProviderFactory creates providers by registered name.
type ProviderFactory struct {
	constructors map[string]ProviderConstructor
}

// NewFactory creates an empty factory.
func NewFactory() *ProviderFactory {
	return &ProviderFactory{constructors: make(map[string]ProviderConstructor)}
}

// Register adds a constructor under name, replacing any earlier one.
func (f *ProviderFactory) Register(name string, ctor ProviderConstructor) {
	f.constructors[name] = ctor
}

// Create builds the configured provider. It returns nil, nil for "" and
// "none". Retries belong to the caller (see Do), so the only wrapper applied
// here is the rate limiter.
func (f *ProviderFactory) Create(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "" || cfg.Provider == "none" {
		return nil, nil
	}
	ctor, ok := f.constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q (registered: %v)", cfg.Provider, f.Names())
	}
	p, err := ctor(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		p = WithRateLimit(p, &RateLimitConfig{RequestsPerMinute: cfg.RequestsPerMinute})
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (f *ProviderFactory) Names() []string {
	out := make([]string, 0, len(f.constructors))
	for k := range f.constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RequiresAPIKey reports whether the named provider needs a credential.
// Local and disabled providers do not.
func RequiresAPIKey(provider string) bool {
	switch provider {
	case "", "none", "ollama":
		return false
	default:
		return true
	}
}

// KnownProviders maps preset names to their default base URLs. Any other
// OpenAI-compatible endpoint works through "custom" with llm.base_url.
var KnownProviders = map[string]string{
	"anthropic":   "https://api.anthropic.com/v1",
	"openai":      "https://api.openai.com/v1",
	"groq":        "https://api.groq.com/openai/v1",
	"huggingface": "https://api-inference.huggingface.co/v1",
	"ollama":      "http://localhost:11434/v1",
	"together":    "https://api.together.xyz/v1",
	"deepseek":    "https://api.deepseek.com/v1",
}
