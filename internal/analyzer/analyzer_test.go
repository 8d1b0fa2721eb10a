package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/archsift/internal/apperr"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

// assignments returns n lines of valid Python.
func assignments(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "v%d = %d\n", i, i)
	}
	return b.String()
}

func TestAnalyzeIsolatesMalformedFile(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 9; i++ {
		files[fmt.Sprintf("pkg/mod%d.py", i)] = "def f():\n    return 1\n"
	}
	files["pkg/broken.py"] = "def broken(:\n    pass\n"
	root := writeTree(t, files)

	m, err := Analyze(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 10, m.FilesAttempted)
	assert.Equal(t, 9, m.FilesParsed)
	assert.Equal(t, 9, m.TotalFunctions)
	assert.Equal(t, 18, m.TotalLines)
	require.Len(t, m.Skipped, 1)
	assert.Equal(t, "pkg/broken.py", m.Skipped[0].Path)
	assert.Contains(t, m.Skipped[0].Reason, "syntax error")
}

func TestAnalyzeCountsStructure(t *testing.T) {
	src := `import os, sys
import numpy as np
from collections import OrderedDict
from . import sibling

class Service:
    def handle(self):
        pass

    async def fetch(self):
        pass

async def main():
    pass

def helper():
    def inner():
        pass
    return inner
`
	root := writeTree(t, map[string]string{"app/service.py": src})

	m, err := Analyze(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, m.TotalClasses)
	assert.Equal(t, 5, m.TotalFunctions)
	assert.Equal(t, 2, m.AsyncFunctions)
	assert.Equal(t, 5, m.TotalImports)
	assert.Equal(t, []string{"NumPy"}, m.Frameworks)
	assert.Equal(t, 19, m.TotalLines)
}

func TestAnalyzeDetectsFrameworksOnce(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": "from flask import Flask\napp = Flask(__name__)\n",
		"b.py": "import flask\n",
		"c.py": "import pytest\n\n@pytest.fixture\ndef client():\n    pass\n",
		"d.py": "from django.db import models\n",
		"e.py": "@bp.route('/x')\ndef view():\n    pass\n",
	})

	m, err := Analyze(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Django", "Flask", "pytest"}, m.Frameworks)
}

func TestAnalyzeSharedDecoratorsNeedImport(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"fastapi app.get", "from fastapi import FastAPI\napp = FastAPI()\n\n@app.get('/')\ndef index():\n    pass\n", []string{"FastAPI"}},
		{"sanic app.route", "from sanic import Sanic\napp = Sanic('svc')\n\n@app.route('/')\nasync def index(request):\n    pass\n", []string{"Sanic"}},
		{"quart app.route", "from quart import Quart\napp = Quart(__name__)\n\n@app.route('/')\nasync def index():\n    pass\n", []string{"Quart"}},
		{"bare app.route", "@app.route('/')\ndef index():\n    pass\n", nil},
		{"bare router.get", "@router.get('/items')\ndef items():\n    pass\n", nil},
		{"qualified decorator alone", "@pytest.fixture\ndef client():\n    pass\n", []string{"pytest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, map[string]string{"app.py": tt.src})
			m, err := Analyze(context.Background(), root, Options{})
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, m.Frameworks)
			} else {
				assert.Equal(t, tt.want, m.Frameworks)
			}
		})
	}
}

func TestAnalyzeCustomFrameworkSignatures(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "import streamlit as st\n"})

	reg := DefaultFrameworks()
	reg.RegisterImports(map[string]map[string]string{"ui": {"streamlit": "Streamlit"}})

	m, err := Analyze(context.Background(), root, Options{Frameworks: reg})
	require.NoError(t, err)
	assert.Equal(t, []string{"Streamlit"}, m.Frameworks)
}

func TestAnalyzeSkipDirectoriesExactSegment(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":              "x = 1\n",
		"venv/lib/site.py":     "x = 1\n",
		"venvx/kept.py":        "x = 1\n",
		"src/__pycache__/c.py": "x = 1\n",
		"README.md":            "# not python\n",
	})

	m, err := Analyze(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, m.FilesAttempted)
}

func TestAnalyzePathErrors(t *testing.T) {
	empty := t.TempDir()
	onlyText := writeTree(t, map[string]string{"notes.txt": "hello"})
	file := filepath.Join(onlyText, "notes.txt")

	tests := []struct {
		name string
		root string
	}{
		{"missing", filepath.Join(empty, "does-not-exist")},
		{"not a directory", file},
		{"empty directory", empty},
		{"no eligible files", onlyText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(context.Background(), tt.root, Options{})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.Path), "got %v", err)
		})
	}
}

func TestAnalyzeDeterministicAcrossWorkerCounts(t *testing.T) {
	files := map[string]string{
		"main.py":              "from app import views\nviews.run()\n",
		"app/__init__.py":      "",
		"app/views.py":         "from .models import User\n\ndef run():\n    pass\n",
		"app/models.py":        "class User:\n    pass\n",
		"app/services/user.py": "from app.models import User\n" + assignments(40),
		"scripts/tool.py":      "import click\n" + assignments(12),
		"bad.py":               "class :\n",
	}
	root := writeTree(t, files)

	var outputs [][]byte
	for _, workers := range []int{1, 2, 8} {
		m, err := Analyze(context.Background(), root, Options{Workers: workers})
		require.NoError(t, err)
		data, err := json.Marshal(m)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	assert.Equal(t, string(outputs[0]), string(outputs[1]))
	assert.Equal(t, string(outputs[0]), string(outputs[2]))
}

func TestAnalyzeSamplesPreferEntryPoints(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":     assignments(3),
		"big.py":      assignments(100),
		"cli/run.py":  assignments(5),
		"medium.py":   assignments(50),
		"other.py":    assignments(10),
		"another.py":  assignments(20),
		"nested/a.py": assignments(30),
	})

	m, err := Analyze(context.Background(), root, Options{MaxSamples: 3, MaxPreviewLines: 2})
	require.NoError(t, err)

	require.Len(t, m.Samples, 2)
	assert.Equal(t, "cli/run.py", m.Samples[0].Path)
	assert.Equal(t, "main.py", m.Samples[1].Path)
	assert.Equal(t, "v0 = 0\nv1 = 1", m.Samples[0].Preview)
	assert.Equal(t, []string{"cli/run.py", "main.py"}, m.Structure.EntryPoints)
}

func TestAnalyzeSamplesFallBackToLargestFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": assignments(10),
		"b.py": assignments(30),
		"c.py": assignments(20),
		"d.py": assignments(30),
	})

	m, err := Analyze(context.Background(), root, Options{MaxSamples: 2})
	require.NoError(t, err)

	require.Len(t, m.Samples, 2)
	assert.Equal(t, "b.py", m.Samples[0].Path)
	assert.Equal(t, "d.py", m.Samples[1].Path)
}

func TestAnalyzeStructureAndPatterns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app/__init__.py":              "",
		"app/models/__init__.py":       "",
		"app/models/user.py":           "class User:\n    pass\n",
		"app/views/__init__.py":        "",
		"app/views/user.py":            "from app.models.user import User\n",
		"app/controllers/user.py":      "from app.views import user\nfrom ..models import user as m\n",
		"app/services/billing.py":      "from app.models.user import User\n",
		"tests/test_user.py":           "import pytest\n",
		"docs/conf.py":                 "project = 'x'\n",
		"app/templates/placeholder.py": "",
	})

	m, err := Analyze(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.True(t, m.Structure.HasTests)
	assert.True(t, m.Structure.HasDocs)
	assert.Equal(t, []string{"app", "app/models", "app/views"}, m.Structure.Packages)
	assert.Contains(t, m.Patterns, "MVC")
	assert.Contains(t, m.Patterns, "Layered architecture")
	assert.Contains(t, m.Patterns, "Service-oriented structure")
	assert.Contains(t, m.Patterns, "Modular package structure")
}

func TestAnalyzeNoPatternDetected(t *testing.T) {
	root := writeTree(t, map[string]string{"script.py": "print('hi')\n"})

	m, err := Analyze(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Empty(t, m.Patterns)
	assert.False(t, m.Structure.HasTests)
}

func TestAnalyzeCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n", "b.py": "y = 2\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := Analyze(ctx, root, Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, m)
}

func TestAnalyzeWebScenario(t *testing.T) {
	files := map[string]string{"app.py": "from flask import Flask\n" + assignments(99)}
	for i := 1; i < 25; i++ {
		files[fmt.Sprintf("pkg/m%02d.py", i)] = assignments(100)
	}
	root := writeTree(t, files)

	m, err := Analyze(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 25, m.FilesAttempted)
	assert.Equal(t, 2500, m.TotalLines)
	assert.Equal(t, []string{"Flask"}, m.Frameworks)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative samples", Options{MaxSamples: -1}},
		{"negative preview", Options{MaxPreviewLines: -1}},
		{"negative workers", Options{Workers: -2}},
		{"bad glob", Options{EntryPointPatterns: []string{"[main.py"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts, nil)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.Configuration))
		})
	}
}

func TestNewUnknownLanguage(t *testing.T) {
	_, err := New(Options{Language: "cobol"}, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Configuration))
}

func TestAnalyzeExtensionsFromGrammar(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg/api.py":   "def f():\n    pass\n",
		"pkg/api.pyi":  "def f() -> None: ...\n",
		"pkg/notes.md": "# notes\n",
	})

	m, err := Analyze(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, m.FilesAttempted)

	m, err = Analyze(context.Background(), root, Options{SourceExtensions: []string{".py"}})
	require.NoError(t, err)
	assert.Equal(t, 1, m.FilesAttempted)
}
