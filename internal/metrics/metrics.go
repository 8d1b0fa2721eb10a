// Package metrics records per-run statistics for the evaluation pipeline.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
)

// RunReport collects statistics for a single pipeline run.
type RunReport struct {
	RunID      string          `json:"run_id"`
	Root       string          `json:"root"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
	Duration   time.Duration   `json:"duration_ms,omitempty"`
	Analysis   AnalysisMetrics `json:"analysis"`
	Decision   DecisionMetrics `json:"decision"`
	Stages     []StageMetrics  `json:"stages"`
	Outcome    string          `json:"outcome"`
	Errors     []string        `json:"errors,omitempty"`
}

type AnalysisMetrics struct {
	FilesAttempted int `json:"files_attempted"`
	FilesParsed    int `json:"files_parsed"`
	FilesSkipped   int `json:"files_skipped"`
	TotalLines     int `json:"total_lines"`
	Frameworks     int `json:"frameworks"`
	Patterns       int `json:"patterns"`
}

type DecisionMetrics struct {
	Level    string  `json:"level,omitempty"`
	Score    float64 `json:"score"`
	Eligible bool    `json:"eligible"`
	Source   string  `json:"source,omitempty"`
	Attempts int     `json:"attempts"`
}

type StageMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Outcome  string        `json:"outcome"`
}

// New starts tracking a run.
func New(runID, root string) *RunReport {
	return &RunReport{RunID: runID, Root: root, StartedAt: time.Now()}
}

// CollectAnalysis copies the analyzer totals.
func (r *RunReport) CollectAnalysis(m *analyzer.CodebaseMetrics) {
	r.Analysis = AnalysisMetrics{
		FilesAttempted: m.FilesAttempted,
		FilesParsed:    m.FilesParsed,
		FilesSkipped:   len(m.Skipped),
		TotalLines:     m.TotalLines,
		Frameworks:     len(m.Frameworks),
		Patterns:       len(m.Patterns),
	}
}

// CollectDecision copies the decision outcome.
func (r *RunReport) CollectDecision(d *evaluator.Decision) {
	r.Decision = DecisionMetrics{
		Level:    d.Level.String(),
		Score:    d.Score,
		Eligible: d.Eligible,
		Source:   string(d.Source),
		Attempts: d.Attempts,
	}
}

// AddStage records a single stage's timing and outcome.
func (r *RunReport) AddStage(name string, d time.Duration, outcome string) {
	r.Stages = append(r.Stages, StageMetrics{Name: name, Duration: d, Outcome: outcome})
}

// Finish marks the run as complete.
func (r *RunReport) Finish(outcome string, errs []string) {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	r.Outcome = outcome
	r.Errors = errs
}

// PrintSummary writes a human-readable report.
func (r *RunReport) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║          ARCHSIFT RUN REPORT         ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Run:         %-23s║\n", shortID(r.RunID))
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Outcome:     %-23s║\n", r.Outcome)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ ANALYSIS\n")
	fmt.Fprintf(w, "║   Attempted:   %d\n", r.Analysis.FilesAttempted)
	fmt.Fprintf(w, "║   Parsed:      %d\n", r.Analysis.FilesParsed)
	fmt.Fprintf(w, "║   Skipped:     %d\n", r.Analysis.FilesSkipped)
	fmt.Fprintf(w, "║   Lines:       %d\n", r.Analysis.TotalLines)
	if r.Decision.Level != "" {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ DECISION\n")
		fmt.Fprintf(w, "║   Level:       %s (%.1f)\n", r.Decision.Level, r.Decision.Score)
		fmt.Fprintf(w, "║   Source:      %s\n", r.Decision.Source)
		fmt.Fprintf(w, "║   Attempts:    %d\n", r.Decision.Attempts)
	}
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ STAGES\n")
	for _, s := range r.Stages {
		fmt.Fprintf(w, "║   %-12s %8s  %s\n", s.Name, s.Duration.Round(time.Millisecond), s.Outcome)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the report as formatted JSON.
func (r *RunReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
