package critical

import (
	"fmt"
	"strings"

	"github.com/docc-lab/pythia/internal/model"
)

// wrapWidth mirrors the original's poset.rs line width for breaking a
// long tracepoint id across multiple rendered lines.
const wrapWidth = 75

// Render prints hp as an indented tree: depth follows Hierarchical
// nesting, sibling order follows the path's own HappensBefore order,
// the same two traversals BuildHierarchical produced. It is the Go
// analogue of tree_repr.rs's indented transaction tree combined with
// poset.rs's per-node Display (variant suffix, wrapped tracepoint id).
func (hp *HierarchicalCriticalPath) Render() string {
	parent := make(map[int]int, len(hp.Hierarchical))
	for _, e := range hp.Hierarchical {
		parent[e.To] = e.From
	}
	depth := make([]int, len(hp.Nodes))
	for i := range hp.Nodes {
		p, ok := parent[i]
		if !ok {
			depth[i] = 0
			continue
		}
		depth[i] = depth[p] + 1
	}

	var b strings.Builder
	for i, n := range hp.Nodes {
		b.WriteString(strings.Repeat("  ", depth[i]))
		b.WriteString(renderNode(n))
		if i+1 < len(hp.Nodes) {
			b.WriteString(fmt.Sprintf(" (+%s)", hp.EdgeDuration(i)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderNode(n model.Event) string {
	id := n.TracepointID.String()
	var wrapped strings.Builder
	for written := 0; written <= len(id); written += wrapWidth {
		end := written + wrapWidth
		if end > len(id) {
			end = len(id)
		}
		wrapped.WriteString(id[written:end])
		if end < len(id) {
			wrapped.WriteString("-\n")
		}
	}
	suffix := "A"
	switch n.Variant {
	case model.Entry:
		suffix = "S"
	case model.Exit:
		suffix = "E"
	}
	marker := ""
	if n.IsSynthetic {
		marker = "*"
	}
	return fmt.Sprintf("%s%s: %s", wrapped.String(), marker, suffix)
}
