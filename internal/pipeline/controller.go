// Package pipeline sequences analysis and evaluation for a single codebase.
//
// A run moves through ANALYZE, EVALUATE, an optional DOWNSTREAM hand-off for
// eligible codebases, and SUMMARIZE before reaching DONE. A failed analysis
// ends the run in FAILED. Evaluation absorbs reasoning-service failures
// itself, so only cancellation or an invariant violation fails it.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
	"github.com/efebarandurmaz/archsift/internal/observability"
)

// Analyzer produces structural metrics for a root directory.
type Analyzer interface {
	Analyze(ctx context.Context, root string) (*analyzer.CodebaseMetrics, error)
}

// Evaluator turns metrics into a decision.
type Evaluator interface {
	Evaluate(ctx context.Context, m *analyzer.CodebaseMetrics) (*evaluator.Decision, error)
}

// Controller runs pipelines. It keeps no per-run state, so one Controller
// may serve concurrent runs.
type Controller struct {
	analyzer  Analyzer
	evaluator Evaluator
	handoff   Handoff
	logger    *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithHandoff sets the downstream collaborator for eligible runs.
func WithHandoff(h Handoff) Option {
	return func(c *Controller) { c.handoff = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a Controller.
func New(a Analyzer, e Evaluator, opts ...Option) *Controller {
	c := &Controller{analyzer: a, evaluator: e}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Run executes one pipeline over root. The returned State is always non-nil
// and holds every field written before a failure. The error is the failure
// that moved the run to FAILED.
func (c *Controller) Run(ctx context.Context, root string) (*State, error) {
	st := NewState(root)
	log := c.logger.With("run_id", st.RunID())

	ctx, span := observability.StartRunSpan(ctx, st.RunID(), root)
	defer span.End()

	err := c.run(ctx, st, log)
	if err != nil {
		st.fail(err)
		observability.RecordError(span, err)
		log.Debug("pipeline failed", "step", st.FailedAt(), "error", err)
		st.report.Finish(string(StepFailed), []string{err.Error()})
		return st, err
	}
	st.report.Finish(string(st.Step()), nil)
	return st, nil
}

func (c *Controller) run(ctx context.Context, st *State, log *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// ANALYZE
	err := c.stage(ctx, st, log, func(ctx context.Context, span trace.Span) error {
		m, err := c.analyzer.Analyze(ctx, st.Root())
		if err != nil {
			return err
		}
		if err := st.setMetrics(m); err != nil {
			return err
		}
		observability.RecordAnalysis(span, m.FilesAttempted, m.FilesParsed, m.TotalLines)
		st.report.CollectAnalysis(m)
		return nil
	})
	if err != nil {
		return err
	}
	if err := c.transition(ctx, st, log, StepEvaluate); err != nil {
		return err
	}

	// EVALUATE
	err = c.stage(ctx, st, log, func(ctx context.Context, span trace.Span) error {
		d, err := c.evaluator.Evaluate(ctx, st.Metrics())
		if err != nil {
			return err
		}
		if err := st.setDecision(d); err != nil {
			return err
		}
		observability.RecordDecision(span, d.Level.String(), d.Score, d.Eligible, string(d.Source))
		st.report.CollectDecision(d)
		return nil
	})
	if err != nil {
		return err
	}

	return c.finish(ctx, st, log)
}

// Resume completes a run restored after evaluation, running the optional
// hand-off and the summary. See Restore.
func (c *Controller) Resume(ctx context.Context, st *State) error {
	if st.Step() != StepEvaluate || st.Decision() == nil {
		return apperr.New(apperr.Invariant, "resume requires an evaluated run, got step %s", st.Step())
	}
	log := c.logger.With("run_id", st.RunID())
	if err := c.finish(ctx, st, log); err != nil {
		st.fail(err)
		st.report.Finish(string(StepFailed), []string{err.Error()})
		return err
	}
	st.report.Finish(string(st.Step()), nil)
	return nil
}

func (c *Controller) finish(ctx context.Context, st *State, log *slog.Logger) error {
	// DOWNSTREAM, only for eligible runs with a collaborator
	if st.ReadyForDownstream() && c.handoff != nil {
		if err := c.transition(ctx, st, log, StepDownstream); err != nil {
			return err
		}
		err := c.stage(ctx, st, log, func(ctx context.Context, span trace.Span) error {
			if err := c.handoff.Deliver(ctx, st); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				observability.RecordError(span, err)
				log.Warn("downstream hand-off failed", "error", err)
				st.handoffErr = err
				return nil
			}
			st.handedOff = true
			return nil
		})
		if err != nil {
			return err
		}
	} else if !st.ReadyForDownstream() {
		log.Info("downstream generation skipped", "reason", st.SkipReason())
	}

	if err := c.transition(ctx, st, log, StepSummarize); err != nil {
		return err
	}

	// SUMMARIZE
	err := c.stage(ctx, st, log, func(ctx context.Context, _ trace.Span) error {
		text, err := Render(st)
		if err != nil {
			return err
		}
		return st.setSummary(text)
	})
	if err != nil {
		return err
	}
	return c.transition(ctx, st, log, StepDone)
}

// stage runs fn for the current step under a span and records its timing.
func (c *Controller) stage(ctx context.Context, st *State, log *slog.Logger, fn func(context.Context, trace.Span) error) error {
	step := st.Step()
	ctx, span := observability.StartStageSpan(ctx, string(step))
	defer span.End()

	start := time.Now()
	err := fn(ctx, span)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		observability.RecordError(span, err)
	}
	st.report.AddStage(string(step), time.Since(start), outcome)
	log.Debug("stage finished", "step", step, "outcome", outcome, "duration", time.Since(start))
	return err
}

// transition advances st, honoring cancellation at stage boundaries.
func (c *Controller) transition(ctx context.Context, st *State, log *slog.Logger, to Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := st.Step()
	if err := st.advance(to); err != nil {
		return err
	}
	log.Debug("pipeline transition", "from", from, "to", to)
	return nil
}
