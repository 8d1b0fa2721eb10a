package treesitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser wraps a tree-sitter parser bound to one registered language.
// A Parser is not safe for concurrent use; create one per goroutine.
type Parser struct {
	parser   *sitter.Parser
	language string
}

// Tree is a parsed syntax tree. Close it when done.
type Tree struct {
	tree *sitter.Tree
}

// NewParser creates a tree-sitter parser for the given language.
// The grammar must already be registered.
func NewParser(language string) (*Parser, error) {
	g, ok := Lookup(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s (not registered)", language)
	}

	p := sitter.NewParser()
	p.SetLanguage(g.Language())
	return &Parser{parser: p, language: language}, nil
}

// Language returns the parser's language name.
func (p *Parser) Language() string { return p.language }

// Parse parses source code. Parsing stops early if ctx is cancelled.
func (p *Parser) Parse(ctx context.Context, source []byte) (*Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.language, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse %s: no tree produced", p.language)
	}
	return &Tree{tree: tree}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// Root returns the root node of the tree.
func (t *Tree) Root() *sitter.Node { return t.tree.RootNode() }

// Close releases tree resources.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// FirstError returns the first ERROR or MISSING node in document order,
// or nil when the tree is clean.
func FirstError(root *sitter.Node) *sitter.Node {
	if root == nil || !root.HasError() {
		return nil
	}
	var found *sitter.Node
	Walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// Walk visits root and its descendants in pre-order using a tree cursor.
// Returning false from fn skips the children of the current node.
func Walk(root *sitter.Node, fn func(*sitter.Node) bool) {
	if root == nil {
		return
	}
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	for {
		descend := fn(cursor.CurrentNode())
		if descend && cursor.GoToFirstChild() {
			continue
		}
		for !cursor.GoToNextSibling() {
			if !cursor.GoToParent() {
				return
			}
		}
	}
}
