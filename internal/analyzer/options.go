package analyzer

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/pkg/treesitter/languages/python"
)

// Defaults applied by Options.withDefaults.
const (
	DefaultMaxSamples      = 3
	DefaultMaxPreviewLines = 50
)

// DefaultSkipDirectories lists directory names never descended into.
var DefaultSkipDirectories = []string{
	"venv", ".venv", "env", "__pycache__", "node_modules", ".git",
	".tox", ".mypy_cache", ".pytest_cache", "build", "dist",
}

// DefaultEntryPointPatterns lists base-name globs treated as entry points.
var DefaultEntryPointPatterns = []string{
	"main.py", "app.py", "__main__.py", "run.py", "manage.py", "wsgi.py",
}

// Options configures an Analyzer.
type Options struct {
	// Language is the registered tree-sitter grammar name.
	Language string
	// SourceExtensions selects eligible files by extension. Empty means the
	// extensions the grammar registers.
	SourceExtensions []string
	// SkipDirectories are directory names excluded by exact segment match.
	SkipDirectories []string
	// EntryPointPatterns are filepath.Match globs applied to base names.
	EntryPointPatterns []string
	MaxSamples         int
	MaxPreviewLines    int
	// Workers bounds the per-file pass. Zero means GOMAXPROCS.
	Workers int
	// Frameworks overrides the built-in framework signature registry.
	Frameworks *FrameworkRegistry
	// Patterns overrides the built-in pattern detectors.
	Patterns []PatternDetector
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Language:           python.Name,
		SourceExtensions:   []string{".py"},
		SkipDirectories:    append([]string(nil), DefaultSkipDirectories...),
		EntryPointPatterns: append([]string(nil), DefaultEntryPointPatterns...),
		MaxSamples:         DefaultMaxSamples,
		MaxPreviewLines:    DefaultMaxPreviewLines,
	}
}

// Validate reports option values that would make analysis meaningless.
func (o Options) Validate() error {
	if o.MaxSamples < 0 {
		return apperr.New(apperr.Configuration, "max code samples must not be negative, got %d", o.MaxSamples)
	}
	if o.MaxPreviewLines < 0 {
		return apperr.New(apperr.Configuration, "max preview lines must not be negative, got %d", o.MaxPreviewLines)
	}
	if o.Workers < 0 {
		return apperr.New(apperr.Configuration, "workers must not be negative, got %d", o.Workers)
	}
	for _, p := range o.EntryPointPatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return apperr.Wrap(apperr.Configuration, err, "entry point pattern %q", p)
		}
	}
	return nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Language == "" {
		o.Language = d.Language
	}
	if o.SkipDirectories == nil {
		o.SkipDirectories = d.SkipDirectories
	}
	if o.EntryPointPatterns == nil {
		o.EntryPointPatterns = d.EntryPointPatterns
	}
	if o.MaxSamples == 0 {
		o.MaxSamples = d.MaxSamples
	}
	if o.MaxPreviewLines == 0 {
		o.MaxPreviewLines = d.MaxPreviewLines
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Frameworks == nil {
		o.Frameworks = DefaultFrameworks()
	}
	if o.Patterns == nil {
		o.Patterns = DefaultPatterns()
	}
	return o
}

func extensionSet(exts []string) map[string]bool {
	out := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(strings.ToLower(ext))
		if ext == "" {
			continue
		}
		if ext[0] != '.' {
			ext = "." + ext
		}
		out[ext] = true
	}
	return out
}

func (o Options) isEntryPoint(rel string) bool {
	base := filepath.Base(rel)
	for _, p := range o.EntryPointPatterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
