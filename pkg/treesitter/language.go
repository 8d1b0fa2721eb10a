package treesitter

import (
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Grammar describes a language the parser can handle.
type Grammar struct {
	Name       string
	Language   func() *sitter.Language
	Extensions []string // lower-case, with the leading dot
}

var (
	grammarsMu sync.RWMutex
	grammars   = make(map[string]Grammar)
)

// Register makes a grammar available by name. Grammar packages call it from
// init; a later registration under the same name wins.
func Register(g Grammar) {
	exts := make([]string, len(g.Extensions))
	for i, e := range g.Extensions {
		exts[i] = strings.ToLower(e)
	}
	g.Extensions = exts

	grammarsMu.Lock()
	grammars[g.Name] = g
	grammarsMu.Unlock()
}

// Lookup returns the grammar registered under name.
func Lookup(name string) (Grammar, bool) {
	grammarsMu.RLock()
	defer grammarsMu.RUnlock()
	g, ok := grammars[name]
	return g, ok
}

// Languages returns the registered grammar names, sorted.
func Languages() []string {
	grammarsMu.RLock()
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	grammarsMu.RUnlock()
	sort.Strings(names)
	return names
}
