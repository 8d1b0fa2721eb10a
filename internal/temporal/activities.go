package temporal

import (
	"context"
	"errors"
	"log/slog"

	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
	"github.com/efebarandurmaz/archsift/internal/pipeline"
)

// Activities holds the shared stages injected at worker setup. One value is
// registered with the worker and serves every workflow run.
type Activities struct {
	Analyzer  pipeline.Analyzer
	Evaluator pipeline.Evaluator
	Logger    *slog.Logger
}

// FinishInput carries the evaluated run into the final activity.
type FinishInput struct {
	RunID       string
	Root        string
	HandoffPath string
	Metrics     *analyzer.CodebaseMetrics
	Decision    *evaluator.Decision
}

// FinishResult is the outcome of the hand-off and summary.
type FinishResult struct {
	Summary      string
	SkipReason   string
	HandedOff    bool
	HandoffError string
}

// Analyze runs the structural analyzer on the worker host.
func (a *Activities) Analyze(ctx context.Context, input EvaluationInput) (*analyzer.CodebaseMetrics, error) {
	m, err := a.Analyzer.Analyze(ctx, input.Root)
	if err != nil {
		return nil, classify(err)
	}
	return m, nil
}

// Evaluate runs the complexity evaluator.
func (a *Activities) Evaluate(ctx context.Context, m *analyzer.CodebaseMetrics) (*evaluator.Decision, error) {
	d, err := a.Evaluator.Evaluate(ctx, m)
	if err != nil {
		return nil, classify(err)
	}
	return d, nil
}

// Finish performs the optional hand-off and renders the summary.
func (a *Activities) Finish(ctx context.Context, input FinishInput) (*FinishResult, error) {
	st, err := pipeline.Restore(input.RunID, input.Root, input.Metrics, input.Decision)
	if err != nil {
		return nil, classify(err)
	}

	opts := []pipeline.Option{pipeline.WithLogger(a.logger())}
	if input.HandoffPath != "" {
		opts = append(opts, pipeline.WithHandoff(pipeline.FileHandoff{Path: input.HandoffPath}))
	}
	if err := pipeline.New(nil, nil, opts...).Resume(ctx, st); err != nil {
		return nil, classify(err)
	}

	res := &FinishResult{
		Summary:    st.Summary(),
		SkipReason: st.SkipReason(),
		HandedOff:  st.HandedOff(),
	}
	if herr := st.HandoffErr(); herr != nil {
		res.HandoffError = herr.Error()
	}
	return res, nil
}

func (a *Activities) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// classify turns categorized errors into application errors whose type is
// the error kind, so retry policies and remote callers can see it.
func classify(err error) error {
	kind := apperr.KindOf(err)
	if kind == "" {
		return err
	}
	switch kind {
	case apperr.Path, apperr.Configuration, apperr.Invariant:
		return sdktemporal.NewNonRetryableApplicationError(err.Error(), string(kind), err)
	default:
		return sdktemporal.NewApplicationErrorWithCause(err.Error(), string(kind), err)
	}
}

// KindOf recovers the error kind from a workflow or activity failure. It
// returns the first application error in the chain whose type names a kind.
func KindOf(err error) apperr.Kind {
	for e := err; e != nil; e = errors.Unwrap(e) {
		var appErr *sdktemporal.ApplicationError
		if !errors.As(e, &appErr) {
			break
		}
		if k := apperr.Kind(appErr.Type()); knownKind(k) {
			return k
		}
		e = appErr
	}
	return apperr.KindOf(err)
}

func knownKind(k apperr.Kind) bool {
	switch k {
	case apperr.Path, apperr.FileParse, apperr.Configuration, apperr.ReasoningService, apperr.Invariant:
		return true
	}
	return false
}
