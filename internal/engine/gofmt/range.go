package gofmt

import (
	"context"
	"fmt"
	"go/format"

	"formatls/internal/engine"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// formatRange formats the top-level declarations overlapping
// [start, end) and leaves the rest of text untouched.
func formatRange(ctx context.Context, text string, start, end int) (string, error) {
	src := []byte(text)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return "", fmt.Errorf("failed to parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return "", syntaxErrorAt(root)
	}

	from, to, ok := snap(root, start, end)
	if !ok {
		log.Debugf("range %d-%d covers no declaration", start, end)
		return text, nil
	}

	out, err := format.Source(src[from:to])
	if err != nil {
		return "", asSyntaxError(err)
	}
	return text[:from] + string(out) + text[to:], nil
}

// snap widens [start, end) to the top-level nodes it overlaps. A collapsed
// range selects the node containing start.
func snap(root *sitter.Node, start, end int) (from, to int, ok bool) {
	if end < start {
		start, end = end, start
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		cs, ce := int(child.StartByte()), int(child.EndByte())
		overlaps := cs < end && ce > start
		if start == end {
			overlaps = cs <= start && start < ce
		}
		if !overlaps {
			continue
		}
		if !ok {
			from, ok = cs, true
		}
		to = ce
	}
	return from, to, ok
}

// syntaxErrorAt reports the first error or missing node below n.
func syntaxErrorAt(n *sitter.Node) error {
	bad := firstError(n)
	if bad == nil {
		return &engine.SyntaxError{Message: "invalid Go source"}
	}
	p := bad.StartPoint()
	what := "syntax error"
	if bad.IsMissing() {
		what = "missing " + bad.Type()
	}
	return &engine.SyntaxError{Message: fmt.Sprintf("%d:%d: %s", p.Row+1, p.Column+1, what)}
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}
