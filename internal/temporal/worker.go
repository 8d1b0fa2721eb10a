package temporal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// WorkflowIDPrefix prefixes every evaluation workflow ID.
const WorkflowIDPrefix = "archsift-"

// StartWorker creates and starts a Temporal worker serving evaluation
// workflows with the given activities.
func StartWorker(c client.Client, taskQueue string, acts *Activities) (worker.Worker, error) {
	if acts == nil || acts.Analyzer == nil || acts.Evaluator == nil {
		return nil, fmt.Errorf("starting worker: analyzer and evaluator are required")
	}
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(EvaluationWorkflow)
	w.RegisterActivity(acts)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// RunRemote starts an evaluation workflow and waits for its result.
func RunRemote(ctx context.Context, c client.Client, taskQueue string, input EvaluationInput) (*EvaluationOutput, error) {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowIDPrefix + uuid.NewString(),
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, EvaluationWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("starting workflow: %w", err)
	}

	var out EvaluationOutput
	if err := run.Get(ctx, &out); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", run.GetID(), err)
	}
	return &out, nil
}
