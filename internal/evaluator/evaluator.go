// Package evaluator turns structural metrics into a complexity decision.
//
// A deterministic tier classification from file and line thresholds is always
// computed. When a Judge is configured its qualitative judgment is requested
// with one retry; a failed or malformed judgment falls back to the
// deterministic tier. A well-formed judgment may only make the decision
// stricter than the thresholds allow, never more lenient.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/llm"
	"github.com/efebarandurmaz/archsift/internal/observability"
)

// Source identifies what produced a decision.
type Source string

const (
	SourceReasoningService Source = "reasoning_service"
	SourceFallback         Source = "deterministic_fallback"
	SourceDeterministic    Source = "deterministic_only"
)

// FallbackMarker prefixes the reasoning of fallback decisions.
const FallbackMarker = "[deterministic fallback]"

// FallbackConfidence is the confidence reported when no judgment was used.
const FallbackConfidence = 0.5

// Decision is the reconciled complexity decision.
type Decision struct {
	Level              Level   `json:"complexity_level" yaml:"complexity_level"`
	Score              float64 `json:"complexity_score" yaml:"complexity_score"`
	Eligible           bool    `json:"eligible" yaml:"eligible"`
	Reasoning          string  `json:"reasoning" yaml:"reasoning"`
	Confidence         float64 `json:"confidence" yaml:"confidence"`
	Source             Source  `json:"source" yaml:"source"`
	DeterministicLevel Level   `json:"deterministic_level" yaml:"deterministic_level"`
	Attempts           int     `json:"attempts" yaml:"attempts"`
}

// Fallback reports whether the decision was produced without a judgment
// because the reasoning service failed.
func (d *Decision) Fallback() bool { return d.Source == SourceFallback }

// Evaluator produces decisions. It holds no per-run state and is safe for
// concurrent use.
type Evaluator struct {
	thresholds      Thresholds
	judge           Judge
	retry           *llm.RetryConfig
	maxContextChars int
	logger          *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRetry sets the retry policy for judgment calls.
func WithRetry(cfg *llm.RetryConfig) Option {
	return func(e *Evaluator) { e.retry = cfg }
}

// WithMaxContextChars bounds the brief sent to the judge.
func WithMaxContextChars(n int) Option {
	return func(e *Evaluator) { e.maxContextChars = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// New validates th and creates an Evaluator. A nil judge selects
// deterministic-only mode.
func New(th Thresholds, judge Judge, opts ...Option) (*Evaluator, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	e := &Evaluator{
		thresholds:      th,
		judge:           judge,
		retry:           llm.DefaultRetryConfig(),
		maxContextChars: DefaultMaxContextChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// Thresholds returns the configured thresholds.
func (e *Evaluator) Thresholds() Thresholds { return e.thresholds }

// Evaluate classifies m. Reasoning-service failures never surface as errors;
// the only error returns are cancellation of ctx and a nil metrics record.
func (e *Evaluator) Evaluate(ctx context.Context, m *analyzer.CodebaseMetrics) (*Decision, error) {
	if m == nil {
		return nil, apperr.New(apperr.Invariant, "evaluate called without metrics")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	det := e.thresholds.Classify(m.FilesAttempted, m.TotalLines)

	if e.judge == nil {
		return &Decision{
			Level:              det,
			Score:              det.DefaultScore(),
			Eligible:           e.thresholds.Eligible(det),
			Reasoning:          "Deterministic classification: " + e.sizeNote(m, det) + ".",
			Confidence:         FallbackConfidence,
			Source:             SourceDeterministic,
			DeterministicLevel: det,
		}, nil
	}

	brief := BuildBrief(m, e.maxContextChars)
	provider, model := describeJudge(e.judge)

	attempts := 0
	judgment, err := llm.Do(ctx, e.retry, func(ctx context.Context) (*Judgment, error) {
		attempts++
		ctx, span := observability.StartLLMSpan(ctx, provider, model, attempts)
		defer span.End()

		start := time.Now()
		j, err := e.judge.Judge(ctx, brief)
		if err != nil {
			observability.RecordError(span, err)
			e.logger.Debug("judgment attempt failed", "attempt", attempts, "error", err)
			return nil, err
		}
		observability.RecordLLMMetrics(span, j.InputTokens, j.OutputTokens, time.Since(start))
		return j, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Warn("reasoning service unavailable, using deterministic fallback",
			"attempts", attempts, "error", err)
		return e.fallback(m, det, attempts, err), nil
	}

	d := e.reconcile(m, det, judgment)
	d.Attempts = attempts
	return d, nil
}

func (e *Evaluator) fallback(m *analyzer.CodebaseMetrics, det Level, attempts int, cause error) *Decision {
	return &Decision{
		Level:    det,
		Score:    det.DefaultScore(),
		Eligible: e.thresholds.Eligible(det),
		Reasoning: fmt.Sprintf("%s Reasoning service unavailable after %d attempt(s): %v. Thresholds classify %s.",
			FallbackMarker, attempts, cause, e.sizeNote(m, det)),
		Confidence:         FallbackConfidence,
		Source:             SourceFallback,
		DeterministicLevel: det,
		Attempts:           attempts,
	}
}

// reconcile merges a well-formed judgment with the deterministic level. The
// result is never more lenient than det, and eligibility is always derived
// from the final level.
func (e *Evaluator) reconcile(m *analyzer.CodebaseMetrics, det Level, j *Judgment) *Decision {
	var notes []string

	level := maxLevel(det, j.Level)
	if j.Level < det {
		notes = append(notes, fmt.Sprintf("level raised from %s to %s by thresholds (%s)", j.Level, level, e.sizeNote(m, det)))
	}

	if !j.Eligible && e.thresholds.Eligible(level) {
		raised := e.thresholds.FirstIneligible()
		notes = append(notes, fmt.Sprintf("level raised from %s to %s because the reasoning service judged the codebase ineligible", level, raised))
		level = raised
	}

	eligible := e.thresholds.Eligible(level)
	if j.Eligible && !eligible {
		notes = append(notes, fmt.Sprintf("eligibility withdrawn: %s codebases are not eligible", level))
	}

	score := level.Band().Clamp(j.Score)
	if score != j.Score {
		notes = append(notes, fmt.Sprintf("score adjusted from %.1f to %.1f", j.Score, score))
	}

	reasoning := j.Reasoning
	if len(notes) > 0 {
		reasoning += " [adjusted: " + strings.Join(notes, "; ") + "]"
	}

	return &Decision{
		Level:              level,
		Score:              score,
		Eligible:           eligible,
		Reasoning:          reasoning,
		Confidence:         j.Confidence,
		Source:             SourceReasoningService,
		DeterministicLevel: det,
	}
}

func (e *Evaluator) sizeNote(m *analyzer.CodebaseMetrics, det Level) string {
	return fmt.Sprintf("%d files and %d lines as %s", m.FilesAttempted, m.TotalLines, det)
}

func describeJudge(j Judge) (provider, model string) {
	type described interface {
		Provider() string
		Model() string
	}
	if d, ok := j.(described); ok {
		return d.Provider(), d.Model()
	}
	return fmt.Sprintf("%T", j), ""
}
