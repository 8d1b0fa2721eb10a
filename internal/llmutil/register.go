package llmutil

import (
	"github.com/efebarandurmaz/archsift/internal/llm"
	"github.com/efebarandurmaz/archsift/internal/llm/anthropic"
	"github.com/efebarandurmaz/archsift/internal/llm/openai"
)

// compatible lists the presets served through the OpenAI chat completions
// wire format. "custom" has no default endpoint and needs llm.base_url.
var compatible = []string{"openai", "groq", "huggingface", "ollama", "together", "deepseek", "custom"}

// RegisterDefaultProviders installs the built-in reasoning-service
// constructors into factory.
func RegisterDefaultProviders(factory *llm.ProviderFactory) {
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL), nil
	})
	for _, name := range compatible {
		factory.Register(name, compatibleConstructor(name))
	}
}

func compatibleConstructor(name string) llm.ProviderConstructor {
	preset := llm.KnownProviders[name]
	return func(c llm.ProviderConfig) (llm.Provider, error) {
		base := c.BaseURL
		if base == "" {
			base = preset
		}
		return openai.NewNamed(name, c.APIKey, c.Model, base), nil
	}
}
