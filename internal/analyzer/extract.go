package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/efebarandurmaz/archsift/pkg/treesitter"
)

// Python node types counted by the extractor.
const (
	nodeFunction   = "function_definition"
	nodeClass      = "class_definition"
	nodeImport     = "import_statement"
	nodeImportFrom = "import_from_statement"
	nodeFuture     = "future_import_statement"
	nodeDecorator  = "decorator"
)

// extractFile reads and parses one file. Parse failures are reported in the
// returned status rather than as an error; the error return is reserved for
// cancellation.
func extractFile(ctx context.Context, p *treesitter.Parser, abs, rel string, opts Options) (FileMetrics, error) {
	fm := FileMetrics{Path: rel, EntryPoint: opts.isEntryPoint(rel)}

	src, err := os.ReadFile(abs)
	if err != nil {
		fm.Status = ParseStatus{Reason: fmt.Sprintf("read failed: %v", err)}
		return fm, nil
	}
	if !utf8.Valid(src) {
		fm.Status = ParseStatus{Reason: "invalid UTF-8"}
		return fm, nil
	}

	tree, err := p.Parse(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return fm, ctx.Err()
		}
		fm.Status = ParseStatus{Reason: err.Error()}
		return fm, nil
	}
	defer tree.Close()

	root := tree.Root()
	if bad := treesitter.FirstError(root); bad != nil {
		fm.Status = ParseStatus{Reason: fmt.Sprintf("syntax error at line %d", bad.StartPoint().Row+1)}
		return fm, nil
	} else if root.HasError() {
		fm.Status = ParseStatus{Reason: "syntax error"}
		return fm, nil
	}

	fm.Lines = countLines(src)
	fm.Preview = preview(src, opts.MaxPreviewLines)
	collect(root, src, &fm)
	fm.Frameworks = opts.Frameworks.Detect(&fm)
	fm.Status = ParseStatus{OK: true}
	return fm, nil
}

func collect(root *sitter.Node, src []byte, fm *FileMetrics) {
	treesitter.Walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case nodeFunction:
			fm.Functions++
			if n.ChildCount() > 0 && n.Child(0).Type() == "async" {
				fm.AsyncFunctions++
			}
		case nodeClass:
			fm.Classes++
		case nodeImport:
			for i := 0; i < int(n.NamedChildCount()); i++ {
				c := n.NamedChild(i)
				switch c.Type() {
				case "dotted_name":
					fm.Imports = append(fm.Imports, c.Content(src))
				case "aliased_import":
					if name := c.ChildByFieldName("name"); name != nil {
						fm.Imports = append(fm.Imports, name.Content(src))
					}
				}
			}
			return false
		case nodeImportFrom:
			if mod := n.ChildByFieldName("module_name"); mod != nil {
				fm.Imports = append(fm.Imports, mod.Content(src))
			}
			return false
		case nodeFuture:
			fm.Imports = append(fm.Imports, "__future__")
			return false
		case nodeDecorator:
			if name := decoratorName(n.Content(src)); name != "" {
				fm.Decorators = append(fm.Decorators, name)
			}
		}
		return true
	})
}

// decoratorName reduces "@app.route('/x')" to "app.route".
func decoratorName(text string) string {
	text = strings.TrimPrefix(strings.TrimSpace(text), "@")
	if i := strings.IndexByte(text, '('); i >= 0 {
		text = text[:i]
	}
	return strings.Join(strings.Fields(text), "")
}

// topLevelModule returns the first segment of a module reference, or "."
// for relative imports.
func topLevelModule(mod string) string {
	if strings.HasPrefix(mod, ".") {
		return "."
	}
	if i := strings.IndexByte(mod, '.'); i >= 0 {
		return mod[:i]
	}
	return mod
}

// countLines counts newline-terminated lines plus a trailing unterminated one.
func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := bytes.Count(src, []byte{'\n'})
	if src[len(src)-1] != '\n' {
		n++
	}
	return n
}

func preview(src []byte, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.SplitAfterN(string(src), "\n", maxLines+1)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.TrimRight(strings.Join(lines, ""), "\r\n")
}
