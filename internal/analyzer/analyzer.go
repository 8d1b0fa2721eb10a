// Package analyzer extracts structural metrics from a Python source tree.
//
// Files are parsed in parallel with tree-sitter and folded into one
// CodebaseMetrics record. The fold is order-independent, so the result is
// identical for any worker count or traversal order.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/pkg/treesitter"
	_ "github.com/efebarandurmaz/archsift/pkg/treesitter/languages/python"
)

// Analyzer walks a directory tree and produces codebase metrics.
type Analyzer struct {
	opts   Options
	logger *slog.Logger
}

// New creates an Analyzer. Zero-valued options take their defaults.
func New(opts Options, logger *slog.Logger) (*Analyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	g, ok := treesitter.Lookup(opts.Language)
	if !ok {
		return nil, apperr.New(apperr.Configuration, "no grammar registered for language %q", opts.Language)
	}
	if len(opts.SourceExtensions) == 0 {
		opts.SourceExtensions = g.Extensions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{opts: opts, logger: logger}, nil
}

// Options returns the effective options.
func (a *Analyzer) Options() Options { return a.opts }

// Analyze walks root and aggregates per-file metrics. It fails with a path
// error when root is missing, is not a directory, or holds no eligible
// files. Malformed files are recorded as skipped and do not fail the run.
// On cancellation no partial metrics are returned.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*CodebaseMetrics, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.Wrap(apperr.Path, err, "resolve %q", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, apperr.Wrap(apperr.Path, err, "root %q", root)
	}
	if !info.IsDir() {
		return nil, apperr.New(apperr.Path, "root %q is not a directory", root)
	}

	files, err := enumerate(ctx, abs, a.opts, a.logger)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.Wrap(apperr.Path, err, "walk %q", root)
	}
	if len(files) == 0 {
		return nil, apperr.New(apperr.Path, "no eligible source files under %q", root)
	}

	results, err := a.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}

	agg := newAggregate(a.opts.MaxSamples)
	for _, fm := range results {
		if !fm.Status.OK {
			a.logger.Warn("file skipped", "path", fm.Path, "reason", fm.Status.Reason)
		}
		agg.add(fm)
	}

	st := describeStructure(files, a.opts, os.DirFS(abs))
	m := agg.finish(abs, st, a.opts.Patterns)
	a.logger.Debug("analysis complete",
		"root", abs,
		"files_attempted", m.FilesAttempted,
		"files_parsed", m.FilesParsed,
		"lines", m.TotalLines,
	)
	return m, nil
}

// extractAll runs the per-file pass on a bounded pool. Each worker owns one
// parser and writes only its own result slots.
func (a *Analyzer) extractAll(ctx context.Context, files []candidate) ([]FileMetrics, error) {
	results := make([]FileMetrics, len(files))
	work := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for i := range files {
			select {
			case work <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(a.opts.Workers, len(files))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			p, err := treesitter.NewParser(a.opts.Language)
			if err != nil {
				return fmt.Errorf("create parser: %w", err)
			}
			defer p.Close()

			for i := range work {
				if err := gctx.Err(); err != nil {
					return err
				}
				fm, err := extractFile(gctx, p, files[i].abs, files[i].rel, a.opts)
				if err != nil {
					return err
				}
				results[i] = fm
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return results, nil
}

// Analyze is a convenience wrapper that builds an Analyzer from opts.
func Analyze(ctx context.Context, root string, opts Options) (*CodebaseMetrics, error) {
	a, err := New(opts, nil)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, root)
}
