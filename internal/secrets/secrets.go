// Package secrets resolves credentials from the environment or a JSON file.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound is returned when no backend holds a secret.
var ErrNotFound = errors.New("secret not found")

// SecretLLMAPIKey is the provider-independent reasoning-service credential.
const SecretLLMAPIKey = "llm_api_key"

// providerKeys maps reasoning-service providers to their conventional
// credential variable.
var providerKeys = map[string]string{
	"openai":      "openai_api_key",
	"anthropic":   "anthropic_api_key",
	"groq":        "groq_api_key",
	"together":    "together_api_key",
	"deepseek":    "deepseek_api_key",
	"huggingface": "huggingface_api_key",
}

// Provider is a read-only secret backend.
type Provider interface {
	// Get retrieves a secret by key.
	Get(ctx context.Context, key string) (string, error)
	// Name returns the provider name.
	Name() string
}

// Config configures the secrets manager.
type Config struct {
	// Provider selects the primary backend: "env" or "file".
	Provider string
	// FileConfig configures the file backend.
	FileConfig *FileConfig
	// EnvPrefix is prepended to environment variable names (default: "ARCHSIFT_").
	EnvPrefix string
}

// DefaultConfig returns an env-only configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:  "env",
		EnvPrefix: "ARCHSIFT_",
	}
}

// Manager looks secrets up in a primary backend, then in the environment.
type Manager struct {
	primary  Provider
	fallback Provider
	cache    map[string]string
	cacheMu  sync.RWMutex
}

// NewManager creates a secrets manager.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var primary Provider
	switch cfg.Provider {
	case "file":
		if cfg.FileConfig == nil {
			return nil, fmt.Errorf("file config required for file provider")
		}
		fp, err := NewFileProvider(cfg.FileConfig)
		if err != nil {
			return nil, fmt.Errorf("create file provider: %w", err)
		}
		primary = fp
	case "env", "":
		primary = NewEnvProvider(cfg.EnvPrefix)
	default:
		return nil, fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}

	m := &Manager{primary: primary, cache: make(map[string]string)}
	if primary.Name() != "env" {
		m.fallback = NewEnvProvider(cfg.EnvPrefix)
	}
	return m, nil
}

// Get retrieves a secret, trying the primary backend then the environment.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.cacheMu.RLock()
	val, ok := m.cache[key]
	m.cacheMu.RUnlock()
	if ok {
		return val, nil
	}

	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		if val, err := p.Get(ctx, key); err == nil && val != "" {
			m.cacheMu.Lock()
			m.cache[key] = val
			m.cacheMu.Unlock()
			return val, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// LLMAPIKey resolves the credential for a reasoning-service provider. The
// generic llm_api_key wins over the provider's conventional key, e.g.
// ARCHSIFT_LLM_API_KEY before OPENAI_API_KEY.
func (m *Manager) LLMAPIKey(ctx context.Context, provider string) (string, error) {
	keys := []string{SecretLLMAPIKey}
	if k, ok := providerKeys[strings.ToLower(provider)]; ok {
		keys = append(keys, k)
	}
	for _, k := range keys {
		if val, err := m.Get(ctx, k); err == nil {
			return val, nil
		}
	}
	return "", fmt.Errorf("%w: no credential for provider %q (tried %s)", ErrNotFound, provider, strings.Join(keys, ", "))
}

// ProviderKey returns the conventional credential key for provider.
func ProviderKey(provider string) (string, bool) {
	k, ok := providerKeys[strings.ToLower(provider)]
	return k, ok
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based secrets provider.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "ARCHSIFT_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	// Try with prefix first
	envKey := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}
	// Try without prefix
	if val := os.Getenv(strings.ToUpper(key)); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("env var not found: %s", envKey)
}
