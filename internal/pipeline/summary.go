package pipeline

import (
	"fmt"
	"strings"

	"github.com/efebarandurmaz/archsift/internal/apperr"
)

const rule = "═══════════════════════════════════════════════════════════════"

// Render projects a state onto the fixed-structure text report. It performs
// no computation beyond formatting; a state without metrics or a decision is
// an invariant violation.
func Render(s *State) (string, error) {
	if s == nil {
		return "", apperr.New(apperr.Invariant, "render called without state")
	}
	m, d := s.Metrics(), s.Decision()
	if m == nil {
		return "", apperr.New(apperr.Invariant, "summary requires metrics")
	}
	if d == nil {
		return "", apperr.New(apperr.Invariant, "summary requires a decision")
	}

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("                    EVALUATION COMPLETE\n")
	b.WriteString(rule + "\n\n")

	fmt.Fprintf(&b, "Codebase: %s\n", s.Root())
	fmt.Fprintf(&b, "Run: %s\n\n", s.RunID())

	b.WriteString("Metrics:\n")
	fmt.Fprintf(&b, "• Files: %d attempted, %d parsed\n", m.FilesAttempted, m.FilesParsed)
	fmt.Fprintf(&b, "• Lines: %d\n", m.TotalLines)
	fmt.Fprintf(&b, "• Classes: %d\n", m.TotalClasses)
	fmt.Fprintf(&b, "• Functions: %d\n", m.TotalFunctions)
	fmt.Fprintf(&b, "• Frameworks: %s\n", joinOr(m.Frameworks, "None"))
	fmt.Fprintf(&b, "• Patterns: %s\n", joinOr(m.Patterns, "None"))
	fmt.Fprintf(&b, "• Skipped files: %d\n\n", len(m.Skipped))

	b.WriteString("Decision:\n")
	fmt.Fprintf(&b, "• Complexity: %s\n", d.Level)
	fmt.Fprintf(&b, "• Score: %.1f/10\n", d.Score)
	fmt.Fprintf(&b, "• Eligible for generation: %s\n", yesNo(d.Eligible))
	fmt.Fprintf(&b, "• Source: %s\n\n", d.Source)

	b.WriteString("Reasoning:\n")
	b.WriteString(d.Reasoning)
	b.WriteString("\n\n")

	b.WriteString("Next step: ")
	switch {
	case !d.Eligible:
		b.WriteString("manual architecture analysis recommended; automated generation skipped.\n")
	case s.HandedOff():
		b.WriteString("handed off for automated architecture generation.\n")
	case s.HandoffErr() != nil:
		fmt.Fprintf(&b, "eligible for automated architecture generation, but the hand-off failed: %v\n", s.HandoffErr())
	default:
		b.WriteString("eligible for automated architecture generation.\n")
	}
	return b.String(), nil
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}
