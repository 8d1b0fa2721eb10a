package analyzer

import (
	"sort"
	"strings"
	"sync"
)

// FrameworkSignature maps recognizable imports or decorators to a framework name.
type FrameworkSignature struct {
	// Label is the human-readable framework name reported in metrics.
	Label string
	// Category groups signatures (web, data, testing, ...). Informational only.
	Category string
	// Imports are top-level import identifiers, matched case-insensitively.
	Imports []string
	// Decorators are dotted decorator names qualified by the framework's own
	// module, such as "pytest.fixture". Names shared across frameworks
	// (app.route, router.get) do not belong here. A signature matches a
	// decorator equal to an entry or nested under it ("pytest.mark" matches
	// "pytest.mark.parametrize").
	Decorators []string
}

func (s FrameworkSignature) matches(fm *FileMetrics) bool {
	for _, imp := range fm.Imports {
		top := strings.ToLower(topLevelModule(imp))
		for _, want := range s.Imports {
			if top == strings.ToLower(want) {
				return true
			}
		}
	}
	for _, dec := range fm.Decorators {
		for _, want := range s.Decorators {
			if dec == want || strings.HasPrefix(dec, want+".") {
				return true
			}
		}
	}
	return false
}

// FrameworkRegistry holds framework signatures. Adding a framework is one
// Register call.
type FrameworkRegistry struct {
	mu         sync.RWMutex
	signatures []FrameworkSignature
}

// NewFrameworkRegistry creates an empty registry.
func NewFrameworkRegistry() *FrameworkRegistry {
	return &FrameworkRegistry{}
}

// Register adds a signature to the registry.
func (r *FrameworkRegistry) Register(sig FrameworkSignature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signatures = append(r.signatures, sig)
}

// All returns a copy of the registered signatures.
func (r *FrameworkRegistry) All() []FrameworkSignature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]FrameworkSignature(nil), r.signatures...)
}

// Detect returns the sorted, de-duplicated framework labels matched by fm.
func (r *FrameworkRegistry) Detect(fm *FileMetrics) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, sig := range r.signatures {
		if !seen[sig.Label] && sig.matches(fm) {
			seen[sig.Label] = true
		}
	}
	return sortedKeys(seen)
}

// RegisterImports adds one single-import signature per entry of the
// category -> import -> label layout used by the configuration file.
func (r *FrameworkRegistry) RegisterImports(categories map[string]map[string]string) {
	cats := make([]string, 0, len(categories))
	for c := range categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		imports := categories[c]
		names := make([]string, 0, len(imports))
		for imp := range imports {
			names = append(names, imp)
		}
		sort.Strings(names)
		for _, imp := range names {
			r.Register(FrameworkSignature{Label: imports[imp], Category: c, Imports: []string{imp}})
		}
	}
}

// DefaultFrameworks returns a registry holding the built-in signatures.
func DefaultFrameworks() *FrameworkRegistry {
	r := NewFrameworkRegistry()
	for _, sig := range builtinFrameworks {
		r.Register(sig)
	}
	return r
}

var builtinFrameworks = []FrameworkSignature{
	{Label: "Flask", Category: "web", Imports: []string{"flask"}},
	{Label: "Django", Category: "web", Imports: []string{"django"}, Decorators: []string{"admin.register"}},
	{Label: "FastAPI", Category: "web", Imports: []string{"fastapi"}},
	{Label: "Quart", Category: "web", Imports: []string{"quart"}},
	{Label: "Sanic", Category: "web", Imports: []string{"sanic"}},
	{Label: "Starlette", Category: "web", Imports: []string{"starlette"}},
	{Label: "Tornado", Category: "web", Imports: []string{"tornado"}},
	{Label: "aiohttp", Category: "web", Imports: []string{"aiohttp"}},
	{Label: "Pandas", Category: "data", Imports: []string{"pandas"}},
	{Label: "NumPy", Category: "data", Imports: []string{"numpy"}},
	{Label: "SQLAlchemy", Category: "data", Imports: []string{"sqlalchemy"}},
	{Label: "Celery", Category: "tasks", Imports: []string{"celery"}, Decorators: []string{"shared_task"}},
	{Label: "Click", Category: "cli", Imports: []string{"click"}, Decorators: []string{"click.command", "click.group"}},
	{Label: "pytest", Category: "testing", Imports: []string{"pytest"}, Decorators: []string{"pytest.fixture", "pytest.mark"}},
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
