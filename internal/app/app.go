// Package app assembles the analysis stages from configuration. Both
// cmd/archsift and cmd/worker build their stages here.
package app

import (
	"context"
	"log/slog"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/config"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
	"github.com/efebarandurmaz/archsift/internal/llm"
	"github.com/efebarandurmaz/archsift/internal/llmutil"
)

// Stages holds the configured analyzer and evaluator.
type Stages struct {
	Analyzer  *analyzer.Analyzer
	Evaluator *evaluator.Evaluator
	// Provider is nil when the reasoning service is disabled.
	Provider llm.Provider
}

// Build resolves credentials and constructs the stages. A missing API key
// for a provider that needs one is a configuration error.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stages, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a, err := analyzer.New(cfg.AnalyzerOptions(), logger)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var judge evaluator.Judge
	if provider != nil {
		judge = evaluator.NewLLMJudge(provider, cfg.LLM.Model, cfg.Thresholds(), cfg.RequestOptions())
		logger.Debug("reasoning service configured", "provider", provider.Name(), "model", cfg.LLM.Model)
	} else {
		logger.Debug("reasoning service disabled, deterministic evaluation only")
	}

	e, err := evaluator.New(cfg.Thresholds(), judge,
		evaluator.WithRetry(cfg.RetryConfig()),
		evaluator.WithMaxContextChars(cfg.LLM.MaxContextChars),
		evaluator.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &Stages{Analyzer: a, Evaluator: e, Provider: provider}, nil
}

// NewProvider creates the reasoning-service provider, or nil when the
// provider is "none".
func NewProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	if cfg.DeterministicOnly() {
		return nil, nil
	}
	key, err := cfg.ResolveCredential(ctx)
	if err != nil {
		return nil, err
	}

	factory := llm.NewFactory()
	llmutil.RegisterDefaultProviders(factory)
	p, err := factory.Create(cfg.ProviderConfig(key))
	if err != nil {
		return nil, apperr.Wrap(apperr.Configuration, err, "reasoning service")
	}
	return p, nil
}

// ProviderNames lists the registered reasoning-service providers.
func ProviderNames() []string {
	factory := llm.NewFactory()
	llmutil.RegisterDefaultProviders(factory)
	return factory.Names()
}
