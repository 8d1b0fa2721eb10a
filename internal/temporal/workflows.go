package temporal

import (
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
)

// EvaluationInput holds the workflow parameters. Paths are resolved on the
// worker host.
type EvaluationInput struct {
	Root string
	// HandoffPath, when set, receives the hand-off document for eligible runs.
	HandoffPath string
}

// EvaluationOutput holds the workflow result.
type EvaluationOutput struct {
	RunID        string
	Root         string
	Metrics      *analyzer.CodebaseMetrics
	Decision     *evaluator.Decision
	Summary      string
	Eligible     bool
	SkipReason   string
	HandedOff    bool
	HandoffError string
}

// nonRetryableKinds are failures a retry cannot fix.
var nonRetryableKinds = []string{
	string(apperr.Path),
	string(apperr.Configuration),
	string(apperr.Invariant),
}

// EvaluationWorkflow runs analysis, evaluation and the summary as durable
// activities.
func EvaluationWorkflow(ctx workflow.Context, input EvaluationInput) (*EvaluationOutput, error) {
	runID := workflow.GetInfo(ctx).WorkflowExecution.ID
	logger := workflow.GetLogger(ctx)

	var a *Activities

	// Analysis is local I/O; retry transient failures but never bad paths.
	analyzeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: nonRetryableKinds,
		},
	})
	var metrics analyzer.CodebaseMetrics
	if err := workflow.ExecuteActivity(analyzeCtx, a.Analyze, input).Get(ctx, &metrics); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	// The evaluator retries the reasoning service itself and falls back, so
	// a second layer of retries would only multiply calls.
	evaluateCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &sdktemporal.RetryPolicy{MaximumAttempts: 1},
	})
	var decision evaluator.Decision
	if err := workflow.ExecuteActivity(evaluateCtx, a.Evaluate, &metrics).Get(ctx, &decision); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	logger.Info("evaluation complete", "level", decision.Level.String(), "eligible", decision.Eligible, "source", string(decision.Source))

	finishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: nonRetryableKinds,
		},
	})
	var finished FinishResult
	finishIn := FinishInput{
		RunID:       runID,
		Root:        input.Root,
		HandoffPath: input.HandoffPath,
		Metrics:     &metrics,
		Decision:    &decision,
	}
	if err := workflow.ExecuteActivity(finishCtx, a.Finish, finishIn).Get(ctx, &finished); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	return &EvaluationOutput{
		RunID:        runID,
		Root:         input.Root,
		Metrics:      &metrics,
		Decision:     &decision,
		Summary:      finished.Summary,
		Eligible:     decision.Eligible,
		SkipReason:   finished.SkipReason,
		HandedOff:    finished.HandedOff,
		HandoffError: finished.HandoffError,
	}, nil
}
