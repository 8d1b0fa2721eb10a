package analyzer

import (
	"path"
	"sort"
	"strings"
)

// topImportsLimit bounds the external-module histogram in the final record.
const topImportsLimit = 10

// aggregate is the fold state over FileMetrics. add and merge are
// commutative and associative: counts are sums, name sets are unions, and
// samples are a top-k under a total order.
type aggregate struct {
	maxSamples int

	filesAttempted int
	filesParsed    int
	lines          int
	classes        int
	functions      int
	asyncFunctions int
	imports        map[string]int
	frameworks     map[string]bool
	dirs           map[string]bool
	modules        map[string]bool
	samples        []CodeSample
	skipped        []SkippedFile
}

func newAggregate(maxSamples int) *aggregate {
	return &aggregate{
		maxSamples: maxSamples,
		imports:    make(map[string]int),
		frameworks: make(map[string]bool),
		dirs:       make(map[string]bool),
		modules:    make(map[string]bool),
	}
}

// add folds one file into the aggregate.
func (a *aggregate) add(fm FileMetrics) {
	a.filesAttempted++
	if !fm.Status.OK {
		a.skipped = append(a.skipped, SkippedFile{Path: fm.Path, Reason: fm.Status.Reason})
		return
	}

	a.filesParsed++
	a.lines += fm.Lines
	a.classes += fm.Classes
	a.functions += fm.Functions
	a.asyncFunctions += fm.AsyncFunctions
	for _, imp := range fm.Imports {
		a.imports[topLevelModule(imp)]++
	}
	for _, f := range fm.Frameworks {
		a.frameworks[f] = true
	}

	dir := path.Dir(fm.Path)
	if dir != "." {
		for _, seg := range strings.Split(dir, "/") {
			a.dirs[strings.ToLower(seg)] = true
		}
	}
	a.modules[localModuleName(fm.Path)] = true

	if a.maxSamples > 0 {
		a.samples = mergeSamples(a.samples, []CodeSample{{
			Path:       fm.Path,
			Lines:      fm.Lines,
			EntryPoint: fm.EntryPoint,
			Preview:    fm.Preview,
		}}, a.maxSamples)
	}
}

// merge folds another aggregate into a.
func (a *aggregate) merge(b *aggregate) {
	a.filesAttempted += b.filesAttempted
	a.filesParsed += b.filesParsed
	a.lines += b.lines
	a.classes += b.classes
	a.functions += b.functions
	a.asyncFunctions += b.asyncFunctions
	for k, v := range b.imports {
		a.imports[k] += v
	}
	for k := range b.frameworks {
		a.frameworks[k] = true
	}
	for k := range b.dirs {
		a.dirs[k] = true
	}
	for k := range b.modules {
		a.modules[k] = true
	}
	a.samples = mergeSamples(a.samples, b.samples, a.maxSamples)
	a.skipped = append(a.skipped, b.skipped...)
}

// localImportRefs counts references that resolve inside the codebase:
// relative imports and imports of a local top-level module.
func (a *aggregate) localImportRefs() int {
	n := a.imports["."]
	for mod := range a.modules {
		n += a.imports[mod]
	}
	return n
}

func (a *aggregate) totalImports() int {
	n := 0
	for _, v := range a.imports {
		n += v
	}
	return n
}

// topExternalImports returns the most referenced non-local modules.
func (a *aggregate) topExternalImports() map[string]int {
	type entry struct {
		mod   string
		count int
	}
	var entries []entry
	for mod, count := range a.imports {
		if mod == "." || a.modules[mod] {
			continue
		}
		entries = append(entries, entry{mod, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].mod < entries[j].mod
	})
	if len(entries) > topImportsLimit {
		entries = entries[:topImportsLimit]
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.mod] = e.count
	}
	return out
}

// finish projects the aggregate into the public record. Every slice is
// sorted so the result does not depend on processing order.
func (a *aggregate) finish(root string, st Structure, patterns []PatternDetector) *CodebaseMetrics {
	density := 0.0
	if a.filesParsed > 0 {
		density = float64(a.localImportRefs()) / float64(a.filesParsed)
	}

	skipped := append([]SkippedFile{}, a.skipped...)
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })

	layout := Layout{Dirs: a.dirs, Packages: len(st.Packages), ImportDensity: density}

	return &CodebaseMetrics{
		Root:           root,
		FilesAttempted: a.filesAttempted,
		FilesParsed:    a.filesParsed,
		TotalLines:     a.lines,
		TotalClasses:   a.classes,
		TotalFunctions: a.functions,
		AsyncFunctions: a.asyncFunctions,
		TotalImports:   a.totalImports(),
		ImportDensity:  density,
		Frameworks:     sortedKeys(a.frameworks),
		Patterns:       detectPatterns(patterns, layout),
		Structure:      st,
		Samples:        append([]CodeSample{}, finalizeSamples(a.samples)...),
		Skipped:        skipped,
		TopImports:     a.topExternalImports(),
	}
}

// localModuleName is the importable top-level name a file contributes:
// "pkg" for pkg/mod.py and src/pkg/mod.py, "util" for util.py.
func localModuleName(rel string) string {
	rel = strings.TrimPrefix(rel, "src/")
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return strings.TrimSuffix(rel, path.Ext(rel))
}
