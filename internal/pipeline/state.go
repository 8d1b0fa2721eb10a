package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
	"github.com/efebarandurmaz/archsift/internal/metrics"
)

// Step is a pipeline state-machine state.
type Step string

const (
	StepAnalyze    Step = "ANALYZE"
	StepEvaluate   Step = "EVALUATE"
	StepDownstream Step = "DOWNSTREAM"
	StepSummarize  Step = "SUMMARIZE"
	StepDone       Step = "DONE"
	StepFailed     Step = "FAILED"
)

var transitions = map[Step][]Step{
	StepAnalyze:    {StepEvaluate, StepFailed},
	StepEvaluate:   {StepDownstream, StepSummarize, StepFailed},
	StepDownstream: {StepSummarize, StepFailed},
	StepSummarize:  {StepDone, StepFailed},
}

// Terminal reports whether no transition leaves s.
func (s Step) Terminal() bool { return s == StepDone || s == StepFailed }

func canTransition(from, to Step) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition records one state change.
type Transition struct {
	From Step      `json:"from"`
	To   Step      `json:"to"`
	At   time.Time `json:"at"`
}

// State is the record threaded through one run. Each field is written at
// most once, by the stage that owns it; later writes are invariant errors.
// A State belongs to a single run and is not safe for concurrent use.
type State struct {
	runID string
	root  string

	metrics  *analyzer.CodebaseMetrics
	decision *evaluator.Decision
	summary  string

	skipReason string
	handoffErr error
	handedOff  bool

	step     Step
	failedAt Step
	err      error
	history  []Transition
	report   *metrics.RunReport
}

// NewState creates the record for a run over root.
func NewState(root string) *State {
	id := uuid.NewString()
	return &State{
		runID:  id,
		root:   root,
		step:   StepAnalyze,
		report: metrics.New(id, root),
	}
}

func (s *State) RunID() string                      { return s.runID }
func (s *State) Root() string                       { return s.root }
func (s *State) Metrics() *analyzer.CodebaseMetrics { return s.metrics }
func (s *State) Decision() *evaluator.Decision      { return s.decision }
func (s *State) Summary() string                    { return s.summary }
func (s *State) Step() Step                         { return s.step }
func (s *State) Err() error                         { return s.err }
func (s *State) Transitions() []Transition          { return append([]Transition(nil), s.history...) }
func (s *State) Report() *metrics.RunReport         { return s.report }

// FailedAt returns the step that failed, or "" if the run did not fail.
func (s *State) FailedAt() Step { return s.failedAt }

// SkipReason explains why downstream generation was not run. It is empty
// for eligible codebases.
func (s *State) SkipReason() string { return s.skipReason }

// ReadyForDownstream reports whether the generation collaborator may run.
func (s *State) ReadyForDownstream() bool {
	return s.decision != nil && s.decision.Eligible && s.step != StepFailed
}

// HandedOff reports whether the downstream hand-off completed.
func (s *State) HandedOff() bool { return s.handedOff }

// HandoffErr is the non-fatal error of a failed hand-off.
func (s *State) HandoffErr() error { return s.handoffErr }

func (s *State) setMetrics(m *analyzer.CodebaseMetrics) error {
	if m == nil {
		return apperr.New(apperr.Invariant, "analyze stage produced no metrics")
	}
	if s.metrics != nil {
		return apperr.New(apperr.Invariant, "metrics already written")
	}
	s.metrics = m
	return nil
}

func (s *State) setDecision(d *evaluator.Decision) error {
	if d == nil {
		return apperr.New(apperr.Invariant, "evaluate stage produced no decision")
	}
	if s.decision != nil {
		return apperr.New(apperr.Invariant, "decision already written")
	}
	s.decision = d
	if !d.Eligible {
		s.skipReason = d.Reasoning
	}
	return nil
}

func (s *State) setSummary(text string) error {
	if s.summary != "" {
		return apperr.New(apperr.Invariant, "summary already written")
	}
	s.summary = text
	return nil
}

func (s *State) advance(to Step) error {
	if !canTransition(s.step, to) {
		return apperr.New(apperr.Invariant, "illegal transition %s -> %s", s.step, to)
	}
	s.history = append(s.history, Transition{From: s.step, To: to, At: time.Now()})
	s.step = to
	return nil
}

// fail moves the run to FAILED, keeping every field written so far.
func (s *State) fail(err error) {
	if s.step.Terminal() {
		return
	}
	s.failedAt = s.step
	s.err = err
	s.history = append(s.history, Transition{From: s.step, To: StepFailed, At: time.Now()})
	s.step = StepFailed
}

// Restore rebuilds an evaluated run from stage outputs produced elsewhere,
// for example by separate workflow activities. The returned state is at
// EVALUATE, ready for Controller.Resume.
func Restore(runID, root string, m *analyzer.CodebaseMetrics, d *evaluator.Decision) (*State, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	s := &State{
		runID:  runID,
		root:   root,
		step:   StepAnalyze,
		report: metrics.New(runID, root),
	}
	if err := s.setMetrics(m); err != nil {
		return nil, err
	}
	if err := s.advance(StepEvaluate); err != nil {
		return nil, err
	}
	if err := s.setDecision(d); err != nil {
		return nil, err
	}
	s.report.CollectAnalysis(m)
	s.report.CollectDecision(d)
	return s, nil
}
