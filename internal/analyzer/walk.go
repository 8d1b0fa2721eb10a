package analyzer

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// candidate is an eligible source file found by the walk.
type candidate struct {
	abs string
	rel string // slash-separated, relative to the root
}

// enumerate lists eligible files under root in path order. Directories whose
// name equals a skip entry are pruned; the root itself is never pruned.
func enumerate(ctx context.Context, root string, opts Options, logger *slog.Logger) ([]candidate, error) {
	skip := make(map[string]bool, len(opts.SkipDirectories))
	for _, d := range opts.SkipDirectories {
		skip[d] = true
	}
	exts := extensionSet(opts.SourceExtensions)

	var files []candidate
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			logger.Warn("skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !exts[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		files = append(files, candidate{abs: p, rel: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

// describeStructure derives layout facts from the eligible file list and
// the root's top-level directories.
func describeStructure(files []candidate, opts Options, fsys fs.FS) Structure {
	st := Structure{EntryPoints: []string{}, Packages: []string{}}

	for _, f := range files {
		if opts.isEntryPoint(f.rel) {
			st.EntryPoints = append(st.EntryPoints, f.rel)
		}
		if path.Base(f.rel) == "__init__.py" {
			st.Packages = append(st.Packages, path.Dir(f.rel))
		}
	}

	if entries, err := fs.ReadDir(fsys, "."); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			switch strings.ToLower(e.Name()) {
			case "tests", "test":
				st.HasTests = true
			case "docs", "doc":
				st.HasDocs = true
			}
		}
	}

	sort.Strings(st.EntryPoints)
	sort.Strings(st.Packages)
	return st
}
