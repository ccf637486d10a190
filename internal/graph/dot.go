package graph

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// WriteDOT renders the graph in Graphviz DOT format. Each node shows its
// capability, type, function and module; edges point provider → consumer.
// The output is diagnostic only and its layout is not a stable format.
func (g *Graph) WriteDOT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph depres {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, n := range g.Nodes() {
		f := g.Descriptor(n)
		fmt.Fprintf(&b,
			"  %d [fillcolor=\"#F0F0D0\", style=\"rounded,filled\", shape=box, label=< "+
				"<font point-size=\"20\" color=\"red\">%s</font><br/>Type: %s<br/>Function: %s<br/>Module: %s>];\n",
			n,
			html.EscapeString(f.Capability),
			html.EscapeString(f.Type),
			html.EscapeString(f.Function),
			html.EscapeString(f.Module))
	}
	for _, e := range g.edges {
		fmt.Fprintf(&b, "  %d -> %d;\n", e.Provider, e.Consumer)
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
