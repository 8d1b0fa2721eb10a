package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
)

func writeProject(t *testing.T, files int) string {
	t.Helper()
	root := t.TempDir()
	for i := 0; i < files; i++ {
		src := fmt.Sprintf("from flask import Flask\n\napp = Flask(__name__)\n\n\ndef handler_%d():\n    return %d\n", i, i)
		path := filepath.Join(root, fmt.Sprintf("mod_%02d.py", i))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return root
}

func newActivities(t *testing.T) *Activities {
	t.Helper()
	a, err := analyzer.New(analyzer.DefaultOptions(), nil)
	require.NoError(t, err)
	e, err := evaluator.New(evaluator.DefaultThresholds(), nil)
	require.NoError(t, err)
	return &Activities{Analyzer: a, Evaluator: e}
}

func TestAnalyzeActivity(t *testing.T) {
	acts := newActivities(t)
	root := writeProject(t, 4)

	m, err := acts.Analyze(context.Background(), EvaluationInput{Root: root})
	require.NoError(t, err)
	assert.Equal(t, 4, m.FilesParsed)
	assert.Contains(t, m.Frameworks, "Flask")
}

func TestAnalyzeActivity_BadPathIsNonRetryable(t *testing.T) {
	acts := newActivities(t)

	_, err := acts.Analyze(context.Background(), EvaluationInput{Root: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	var appErr *sdktemporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, string(apperr.Path), appErr.Type())
	assert.Equal(t, apperr.Path, KindOf(err))
}

func TestFinishActivity_WritesHandoff(t *testing.T) {
	acts := newActivities(t)
	root := writeProject(t, 3)
	ctx := context.Background()

	m, err := acts.Analyze(ctx, EvaluationInput{Root: root})
	require.NoError(t, err)
	d, err := acts.Evaluate(ctx, m)
	require.NoError(t, err)
	require.True(t, d.Eligible)

	out := filepath.Join(t.TempDir(), "handoff.json")
	res, err := acts.Finish(ctx, FinishInput{
		RunID:       "run-1",
		Root:        root,
		HandoffPath: out,
		Metrics:     m,
		Decision:    d,
	})
	require.NoError(t, err)
	assert.True(t, res.HandedOff)
	assert.Empty(t, res.HandoffError)
	assert.Contains(t, res.Summary, "EVALUATION COMPLETE")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "run-1", doc["run_id"])
}

func TestFinishActivity_MissingDecision(t *testing.T) {
	acts := newActivities(t)

	_, err := acts.Finish(context.Background(), FinishInput{
		RunID:   "run-2",
		Root:    "/tmp/x",
		Metrics: &analyzer.CodebaseMetrics{FilesParsed: 1},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.Invariant, KindOf(err))
}

func TestKindOf_PlainErrors(t *testing.T) {
	assert.Equal(t, apperr.Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, apperr.Configuration, KindOf(apperr.New(apperr.Configuration, "bad")))
}

func TestEvaluationWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(newActivities(t))

	root := writeProject(t, 5)
	env.ExecuteWorkflow(EvaluationWorkflow, EvaluationInput{Root: root})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out EvaluationOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, root, out.Root)
	require.NotNil(t, out.Decision)
	assert.Equal(t, evaluator.Simple, out.Decision.Level)
	assert.True(t, out.Eligible)
	assert.Equal(t, 5, out.Metrics.FilesParsed)
	assert.True(t, strings.Contains(out.Summary, "Eligible for generation: YES"))
	assert.False(t, out.HandedOff)
}

func TestEvaluationWorkflow_BadPathFails(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(newActivities(t))

	env.ExecuteWorkflow(EvaluationWorkflow, EvaluationInput{Root: filepath.Join(t.TempDir(), "nope")})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Equal(t, apperr.Path, KindOf(err))
}
