package evaluator

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
)

func richMetrics() *analyzer.CodebaseMetrics {
	return &analyzer.CodebaseMetrics{
		FilesAttempted: 75,
		FilesParsed:    74,
		TotalLines:     10000,
		TotalClasses:   40,
		TotalFunctions: 150,
		AsyncFunctions: 12,
		Frameworks:     []string{"Flask", "SQLAlchemy"},
		Patterns:       []string{"Layered architecture"},
		Structure: analyzer.Structure{
			HasTests:    true,
			EntryPoints: []string{"app.py", "cli/__main__.py", "manage.py", "wsgi.py"},
			Packages:    []string{"src", "tests", "utils"},
		},
		Samples: []analyzer.CodeSample{
			{Path: "app.py", Lines: 120, EntryPoint: true, Preview: "from flask import Flask\n" + strings.Repeat("x", 900)},
			{Path: "manage.py", Lines: 30, EntryPoint: true, Preview: "import sys"},
		},
		Skipped:    []analyzer.SkippedFile{{Path: "broken.py", Reason: "syntax error at line 3"}},
		TopImports: map[string]int{"flask": 9, "sqlalchemy": 4, "os": 4},
	}
}

func TestBuildBrief(t *testing.T) {
	brief := BuildBrief(richMetrics(), 0)

	for _, want := range []string{
		"Files: 75 (74 parsed, 1 skipped)",
		"Lines: 10000",
		"Classes: 40",
		"Functions: 150 (12 async)",
		"Frameworks: Flask, SQLAlchemy",
		"Patterns: Layered architecture",
		"Entry points: app.py, cli/__main__.py, manage.py\n",
		"Packages: 3 packages found",
		"flask (9), os (4), sqlalchemy (4)",
		"Code sample from app.py",
		"Code sample from manage.py",
	} {
		assert.Contains(t, brief, want)
	}
	assert.NotContains(t, brief, strings.Repeat("x", briefSampleChars))
}

func TestBuildBrief_Empty(t *testing.T) {
	brief := BuildBrief(&analyzer.CodebaseMetrics{}, 0)
	assert.Contains(t, brief, "Frameworks: None detected")
	assert.Contains(t, brief, "Entry points: None found")
	assert.Contains(t, brief, "No code samples available.")
}

func TestBuildBrief_Bounded(t *testing.T) {
	m := richMetrics()
	m.Samples[1].Preview = strings.Repeat("é", 400)

	for _, limit := range []int{10, 200, 700} {
		brief := BuildBrief(m, limit)
		assert.LessOrEqual(t, len(brief), limit)
		assert.True(t, utf8.ValidString(brief))
	}
	assert.True(t, strings.HasSuffix(BuildBrief(m, 700), truncationMarker))
}

func TestSystemPrompt(t *testing.T) {
	th := DefaultThresholds()
	assert.Contains(t, SystemPrompt(th), "Only SIMPLE or MODERATE codebases may be eligible.")

	th.ModerateEligible = false
	p := SystemPrompt(th)
	assert.Contains(t, p, "Only SIMPLE codebases may be eligible.")
	assert.Contains(t, p, "at most 150 files and 20000 lines")
	assert.Contains(t, p, `"complexity_level"`)
}
