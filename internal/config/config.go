// Package config loads archsift configuration from a YAML file and the
// environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
	"github.com/efebarandurmaz/archsift/internal/llm"
	"github.com/efebarandurmaz/archsift/internal/observability"
	"github.com/efebarandurmaz/archsift/internal/secrets"
)

// EnvPrefix prefixes every environment override, e.g. ARCHSIFT_LLM_MODEL.
const EnvPrefix = "ARCHSIFT"

// Config holds all application configuration.
type Config struct {
	Analysis   AnalysisConfig               `mapstructure:"analysis"`
	Complexity ComplexityConfig             `mapstructure:"complexity"`
	LLM        LLMConfig                    `mapstructure:"llm"`
	Frameworks map[string]map[string]string `mapstructure:"frameworks"`
	Secrets    SecretsConfig                `mapstructure:"secrets"`
	Tracing    TracingConfig                `mapstructure:"tracing"`
	Temporal   TemporalConfig               `mapstructure:"temporal"`
	Log        LogConfig                    `mapstructure:"log"`
}

type AnalysisConfig struct {
	SourceExtensions   []string `mapstructure:"source_extensions"`
	SkipDirectories    []string `mapstructure:"skip_directories"`
	EntryPointPatterns []string `mapstructure:"entry_point_patterns"`
	MaxCodeSamples     int      `mapstructure:"max_code_samples"`
	MaxPreviewLines    int      `mapstructure:"max_preview_lines"`
	Workers            int      `mapstructure:"workers"`
}

type TierConfig struct {
	MaxFiles int `mapstructure:"max_files"`
	MaxLines int `mapstructure:"max_lines"`
}

type ComplexityConfig struct {
	Simple           TierConfig `mapstructure:"simple"`
	Moderate         TierConfig `mapstructure:"moderate"`
	ModerateEligible bool       `mapstructure:"moderate_eligible"`
}

type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	MaxContextChars   int           `mapstructure:"max_context_chars"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type SecretsConfig struct {
	// Provider is "env" or "file".
	Provider string `mapstructure:"provider"`
	File     string `mapstructure:"file"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`

	// HealthAddr is where the worker serves /healthz, /readyz and /livez.
	// Empty disables the endpoints.
	HealthAddr      string        `mapstructure:"health_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	a := analyzer.DefaultOptions()
	v.SetDefault("analysis.source_extensions", a.SourceExtensions)
	v.SetDefault("analysis.skip_directories", a.SkipDirectories)
	v.SetDefault("analysis.entry_point_patterns", a.EntryPointPatterns)
	v.SetDefault("analysis.max_code_samples", a.MaxSamples)
	v.SetDefault("analysis.max_preview_lines", a.MaxPreviewLines)
	v.SetDefault("analysis.workers", 0)

	th := evaluator.DefaultThresholds()
	v.SetDefault("complexity.simple.max_files", th.Simple.MaxFiles)
	v.SetDefault("complexity.simple.max_lines", th.Simple.MaxLines)
	v.SetDefault("complexity.moderate.max_files", th.Moderate.MaxFiles)
	v.SetDefault("complexity.moderate.max_lines", th.Moderate.MaxLines)
	v.SetDefault("complexity.moderate_eligible", th.ModerateEligible)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", time.Minute)
	v.SetDefault("llm.retry_delay", 2*time.Second)
	v.SetDefault("llm.max_context_chars", evaluator.DefaultMaxContextChars)
	v.SetDefault("llm.requests_per_minute", 0)

	v.SetDefault("secrets.provider", "env")

	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")

	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "archsift")
	v.SetDefault("temporal.health_addr", ":8080")
	v.SetDefault("temporal.shutdown_timeout", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: unmarshal defaults: %v", err))
	}
	return &cfg
}

// Load reads configuration from file and environment and validates it. An
// empty path reads ./archsift.yaml when present and otherwise uses defaults;
// an explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("archsift")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, apperr.Wrap(apperr.Configuration, err, "reading config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperr.Wrap(apperr.Configuration, err, "unmarshalling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports invalid values as configuration errors.
func (c *Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if c.Analysis.MaxCodeSamples <= 0 {
		return apperr.New(apperr.Configuration, "analysis.max_code_samples must be positive, got %d", c.Analysis.MaxCodeSamples)
	}
	if err := c.AnalyzerOptions().Validate(); err != nil {
		return err
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		return apperr.New(apperr.Configuration, "llm.temperature %.2f is outside [0.0, 2.0]", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens < 0 {
		return apperr.New(apperr.Configuration, "llm.max_tokens %d is negative", c.LLM.MaxTokens)
	}
	if c.LLM.Timeout < 0 || c.LLM.RetryDelay < 0 {
		return apperr.New(apperr.Configuration, "llm.timeout and llm.retry_delay must not be negative")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return apperr.New(apperr.Configuration, "llm.requests_per_minute %d is negative", c.LLM.RequestsPerMinute)
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return apperr.New(apperr.Configuration, "tracing.sample_rate %.2f is outside [0, 1]", c.Tracing.SampleRate)
	}

	switch c.Secrets.Provider {
	case "", "env":
	case "file":
		if c.Secrets.File == "" {
			return apperr.New(apperr.Configuration, "secrets.file is required for the file secrets provider")
		}
	default:
		return apperr.New(apperr.Configuration, "unknown secrets provider %q", c.Secrets.Provider)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return apperr.New(apperr.Configuration, "unknown log format %q", c.Log.Format)
	}
	return nil
}

// DeterministicOnly reports whether the reasoning service is disabled.
func (c *Config) DeterministicOnly() bool {
	return c.LLM.Provider == "" || c.LLM.Provider == "none"
}

// AnalyzerOptions converts the analysis section, including any extra
// framework signatures, into analyzer options.
func (c *Config) AnalyzerOptions() analyzer.Options {
	opts := analyzer.DefaultOptions()
	if len(c.Analysis.SourceExtensions) > 0 {
		opts.SourceExtensions = c.Analysis.SourceExtensions
	}
	if c.Analysis.SkipDirectories != nil {
		opts.SkipDirectories = c.Analysis.SkipDirectories
	}
	if c.Analysis.EntryPointPatterns != nil {
		opts.EntryPointPatterns = c.Analysis.EntryPointPatterns
	}
	opts.MaxSamples = c.Analysis.MaxCodeSamples
	opts.MaxPreviewLines = c.Analysis.MaxPreviewLines
	opts.Workers = c.Analysis.Workers

	if len(c.Frameworks) > 0 {
		reg := analyzer.DefaultFrameworks()
		reg.RegisterImports(c.Frameworks)
		opts.Frameworks = reg
	}
	return opts
}

// Thresholds converts the complexity section.
func (c *Config) Thresholds() evaluator.Thresholds {
	return evaluator.Thresholds{
		Simple:           evaluator.Tier{MaxFiles: c.Complexity.Simple.MaxFiles, MaxLines: c.Complexity.Simple.MaxLines},
		Moderate:         evaluator.Tier{MaxFiles: c.Complexity.Moderate.MaxFiles, MaxLines: c.Complexity.Moderate.MaxLines},
		ModerateEligible: c.Complexity.ModerateEligible,
	}
}

// RetryConfig is the evaluator's judgment retry policy: one retry.
func (c *Config) RetryConfig() *llm.RetryConfig {
	cfg := llm.DefaultRetryConfig()
	if c.LLM.Timeout > 0 {
		cfg.Timeout = c.LLM.Timeout
	}
	if c.LLM.RetryDelay > 0 {
		cfg.RetryDelay = c.LLM.RetryDelay
	}
	return cfg
}

// ProviderConfig builds the provider factory input. Retries are left to the
// evaluator, so the factory does not add its own retry layer.
func (c *Config) ProviderConfig(apiKey string) llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:          c.LLM.Provider,
		APIKey:            apiKey,
		Model:             c.LLM.Model,
		BaseURL:           c.LLM.BaseURL,
		RequestsPerMinute: c.LLM.RequestsPerMinute,
	}
}

// RequestOptions returns per-call options for judgment requests.
func (c *Config) RequestOptions() llm.RequestOptions {
	opts := llm.RequestOptions{Temperature: llm.Float64(c.LLM.Temperature)}
	if c.LLM.MaxTokens > 0 {
		opts.MaxTokens = llm.Int(c.LLM.MaxTokens)
	}
	return opts
}

// ResolveCredential returns the reasoning-service API key. The inline
// llm.api_key wins, then the secrets backend. Providers that need no key
// resolve to "". A missing key for a provider that needs one is a fatal
// configuration error.
func (c *Config) ResolveCredential(ctx context.Context) (string, error) {
	if !llm.RequiresAPIKey(c.LLM.Provider) {
		return c.LLM.APIKey, nil
	}
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey, nil
	}

	mgr, err := secrets.NewManager(c.secretsConfig())
	if err != nil {
		return "", apperr.Wrap(apperr.Configuration, err, "secrets backend")
	}
	key, err := mgr.LLMAPIKey(ctx, c.LLM.Provider)
	if err != nil {
		hint := EnvPrefix + "_LLM_API_KEY"
		if k, ok := secrets.ProviderKey(c.LLM.Provider); ok {
			hint += " or " + strings.ToUpper(k)
		}
		return "", apperr.Wrap(apperr.Configuration, err, "missing API key for provider %q (set llm.api_key, %s)", c.LLM.Provider, hint)
	}
	return key, nil
}

func (c *Config) secretsConfig() *secrets.Config {
	sc := secrets.DefaultConfig()
	if c.Secrets.Provider == "file" {
		sc.Provider = "file"
		sc.FileConfig = &secrets.FileConfig{Path: c.Secrets.File}
	}
	return sc
}

// TracingConfig converts the tracing section for the given service.
func (c *Config) TracingConfig(service, version string) *observability.TracingConfig {
	return &observability.TracingConfig{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    c.Tracing.Environment,
		OTLPEndpoint:   c.Tracing.OTLPEndpoint,
		SampleRate:     c.Tracing.SampleRate,
	}
}

// NewLogger builds a slog logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, apperr.New(apperr.Configuration, "unknown log level %q", s)
}
