package evaluator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
)

const (
	// DefaultMaxContextChars bounds the brief sent to the reasoning service.
	DefaultMaxContextChars = 8000

	briefSamples      = 3
	briefSampleChars  = 500
	briefEntryPoints  = 3
	briefTopImports   = 10
	truncationMarker  = "\n[... truncated]"
	judgmentJSONShape = `{
  "complexity_level": "SIMPLE" | "MODERATE" | "COMPLEX",
  "complexity_score": <number 0-10>,
  "eligible": <true|false>,
  "reasoning": "<one paragraph>",
  "confidence": <number 0-1>
}`
)

// SystemPrompt describes the task, the configured tiers and the required
// response shape.
func SystemPrompt(th Thresholds) string {
	var b strings.Builder
	b.WriteString("You are a software architect deciding whether a Python codebase is simple enough ")
	b.WriteString("for its architecture to be summarized automatically as a diagram-ready model.\n\n")
	b.WriteString("Tiers:\n")
	fmt.Fprintf(&b, "- SIMPLE: at most %d files and %d lines, clear structure, single service (score 0-3.9)\n",
		th.Simple.MaxFiles, th.Simple.MaxLines)
	fmt.Fprintf(&b, "- MODERATE: at most %d files and %d lines, few services, standard patterns (score 4-6.9)\n",
		th.Moderate.MaxFiles, th.Moderate.MaxLines)
	b.WriteString("- COMPLEX: anything larger, many services or unclear boundaries (score 7-10)\n\n")
	eligible := "SIMPLE"
	if th.ModerateEligible {
		eligible = "SIMPLE or MODERATE"
	}
	fmt.Fprintf(&b, "Only %s codebases may be eligible.\n\n", eligible)
	b.WriteString("Respond with a single JSON object and nothing else:\n")
	b.WriteString(judgmentJSONShape)
	return b.String()
}

// BuildBrief renders the bounded textual context for a judgment. The result
// never exceeds maxChars bytes; maxChars <= 0 selects DefaultMaxContextChars.
func BuildBrief(m *analyzer.CodebaseMetrics, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	var b strings.Builder
	b.WriteString("Python codebase analysis\n\n")

	b.WriteString("Metrics:\n")
	fmt.Fprintf(&b, "- Files: %d (%d parsed, %d skipped)\n", m.FilesAttempted, m.FilesParsed, len(m.Skipped))
	fmt.Fprintf(&b, "- Lines: %d\n", m.TotalLines)
	fmt.Fprintf(&b, "- Classes: %d\n", m.TotalClasses)
	fmt.Fprintf(&b, "- Functions: %d (%d async)\n", m.TotalFunctions, m.AsyncFunctions)
	fmt.Fprintf(&b, "- Imports: %d (internal density %.2f)\n", m.TotalImports, m.ImportDensity)
	fmt.Fprintf(&b, "- Frameworks: %s\n", listOr(m.Frameworks, "None detected"))
	fmt.Fprintf(&b, "- Patterns: %s\n", listOr(m.Patterns, "None detected"))

	b.WriteString("\nStructure:\n")
	fmt.Fprintf(&b, "- Has tests: %t\n", m.Structure.HasTests)
	fmt.Fprintf(&b, "- Has docs: %t\n", m.Structure.HasDocs)
	entries := m.Structure.EntryPoints
	if len(entries) > briefEntryPoints {
		entries = entries[:briefEntryPoints]
	}
	fmt.Fprintf(&b, "- Entry points: %s\n", listOr(entries, "None found"))
	fmt.Fprintf(&b, "- Packages: %d packages found\n", len(m.Structure.Packages))

	if imports := topImports(m.TopImports, briefTopImports); len(imports) > 0 {
		fmt.Fprintf(&b, "- Most used external modules: %s\n", strings.Join(imports, ", "))
	}

	for i, s := range m.Samples {
		if i == briefSamples {
			break
		}
		fmt.Fprintf(&b, "\nCode sample from %s:\n```python\n%s\n```\n", s.Path, truncate(s.Preview, briefSampleChars))
	}
	if len(m.Samples) == 0 {
		b.WriteString("\nNo code samples available.\n")
	}

	b.WriteString("\nQuestion: can the architecture of this codebase be summarized automatically and reliably?\n")

	out := b.String()
	if len(out) > maxChars {
		keep := maxChars - len(truncationMarker)
		if keep < 0 {
			return truncate(out, maxChars)
		}
		out = truncate(out, keep) + truncationMarker
	}
	return out
}

func listOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func topImports(counts map[string]int, limit int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	for i, name := range names {
		names[i] = fmt.Sprintf("%s (%d)", name, counts[name])
	}
	return names
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
