package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// namedProvider is a Provider that only reports its name.
type namedProvider struct{ name string }

func (p *namedProvider) Name() string { return p.name }

func (p *namedProvider) Complete(context.Context, *Prompt, *RequestOptions) (*Response, error) {
	return &Response{Content: "{}"}, nil
}

func factoryWith(name string, ctor ProviderConstructor) *ProviderFactory {
	f := NewFactory()
	f.Register(name, ctor)
	return f
}

func TestFactoryCreate_Disabled(t *testing.T) {
	f := factoryWith("openai", func(ProviderConfig) (Provider, error) {
		t.Fatal("constructor must not run for a disabled provider")
		return nil, nil
	})
	for _, name := range []string{"", "none"} {
		p, err := f.Create(ProviderConfig{Provider: name})
		if err != nil || p != nil {
			t.Errorf("Create(%q) = %v, %v; want nil, nil", name, p, err)
		}
	}
}

func TestFactoryCreate_Errors(t *testing.T) {
	boom := errors.New("constructor failed")
	f := NewFactory()
	f.Register("openai", func(ProviderConfig) (Provider, error) { return &namedProvider{"openai"}, nil })
	f.Register("failing", func(ProviderConfig) (Provider, error) { return nil, boom })

	_, err := f.Create(ProviderConfig{Provider: "mystery"})
	if err == nil || !strings.Contains(err.Error(), `"mystery"`) || !strings.Contains(err.Error(), "[failing openai]") {
		t.Errorf("expected unknown-provider error listing registered names, got %v", err)
	}

	p, err := f.Create(ProviderConfig{Provider: "failing"})
	if !errors.Is(err, boom) || p != nil {
		t.Errorf("expected constructor error, got %v, %v", p, err)
	}
}

func TestFactoryCreate_RateLimit(t *testing.T) {
	for _, tt := range []struct {
		name      string
		rpm       int
		rateLimit bool
	}{
		{"bare", 0, false},
		{"rate limited", 30, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := factoryWith("test", func(ProviderConfig) (Provider, error) { return &namedProvider{"inner"}, nil })

			p, err := f.Create(ProviderConfig{Provider: "test", RequestsPerMinute: tt.rpm})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != "inner" {
				t.Errorf("wrappers must report the inner name, got %q", p.Name())
			}
			if _, ok := p.(*RateLimitProvider); ok != tt.rateLimit {
				t.Errorf("rate limiter = %v, want %v (%T)", ok, tt.rateLimit, p)
			}
		})
	}
}

func TestFactoryNames(t *testing.T) {
	f := NewFactory()
	for _, n := range []string{"groq", "anthropic", "ollama"} {
		f.Register(n, func(ProviderConfig) (Provider, error) { return nil, nil })
	}
	if got := strings.Join(f.Names(), ","); got != "anthropic,groq,ollama" {
		t.Errorf("Names() = %s", got)
	}
}

func TestRequiresAPIKey(t *testing.T) {
	for provider, want := range map[string]bool{
		"":          false,
		"none":      false,
		"ollama":    false,
		"openai":    true,
		"anthropic": true,
		"groq":      true,
	} {
		if got := RequiresAPIKey(provider); got != want {
			t.Errorf("RequiresAPIKey(%q) = %v, want %v", provider, got, want)
		}
	}
}

func TestKnownProviders(t *testing.T) {
	for _, name := range []string{"anthropic", "openai", "groq", "huggingface", "ollama", "together", "deepseek"} {
		url, ok := KnownProviders[name]
		if !ok {
			t.Errorf("missing preset %q", name)
			continue
		}
		if !strings.HasPrefix(url, "http") || !strings.HasSuffix(url, "/v1") {
			t.Errorf("preset %q has unexpected base URL %q", name, url)
		}
	}
}
