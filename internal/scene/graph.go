// Package scene builds the resolved scene graph of a document: normalized
// nodes in paint order with their fetched assets attached.
package scene

import (
	"fmt"
	"strings"

	"github.com/ankek/terraform-provider-preview/internal/diag"
	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/fetch"
)

// Node is one resolved element of the scene
type Node struct {
	Path     diag.Path
	Props    document.Normalized
	Asset    *fetch.Asset
	Children []*Node

	// err marks a node that failed to resolve and will be dropped
	err error
}

// Type returns the node variant
func (n *Node) Type() document.ObjectType {
	return n.Props.Type
}

// Graph is the scene of one document. Nodes are in paint order: earlier
// entries are drawn first.
type Graph struct {
	Frame      document.Frame
	Background *document.Background
	Nodes      []*Node
}

// Walk visits every node depth first in paint order. Returning false from
// fn skips the node's children.
func (g *Graph) Walk(fn func(n *Node, depth int) bool) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(g.Nodes, 0)
}

// Len returns the number of nodes in the graph, nested ones included
func (g *Graph) Len() int {
	count := 0
	g.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// String renders an indented outline of the graph, one node per line
func (g *Graph) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frame %dx%d\n", g.Frame.Width, g.Frame.Height)
	g.Walk(func(n *Node, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&b, "%s %s", n.Path, n.Type())
		if n.Asset != nil {
			fmt.Fprintf(&b, " asset=%s %gx%g", n.Asset.Kind, n.Asset.Width, n.Asset.Height)
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}
