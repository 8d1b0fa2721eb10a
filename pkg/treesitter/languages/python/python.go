// Package python registers the tree-sitter Python grammar.
package python

import (
	"github.com/smacker/go-tree-sitter/python"

	"github.com/efebarandurmaz/archsift/pkg/treesitter"
)

// Name is the registry key for the Python grammar.
const Name = "python"

func init() {
	treesitter.Register(treesitter.Grammar{
		Name:       Name,
		Language:   python.GetLanguage,
		Extensions: []string{".py", ".pyi"},
	})
}
