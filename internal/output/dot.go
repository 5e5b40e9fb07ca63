// # internal/output/dot.go
package output

import (
	"fmt"
	"strings"
)

type DOTGenerator struct {
	plan Plan
}

func NewDOTGenerator(p Plan) *DOTGenerator {
	return &DOTGenerator{plan: p}
}

func (d *DOTGenerator) Generate() (string, error) {
	if d.plan.Graph == nil {
		return "", fmt.Errorf("plan has no module graph")
	}

	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	banned := d.plan.bannedSet()
	cycleEdges := cycleEdgeSet(d.plan.cutCycles())
	cycleModules := cycleModuleSet(d.plan.cutCycles())
	roots := make(map[string]bool, len(d.plan.Roots))
	for _, r := range d.plan.Roots {
		roots[r] = true
	}
	position := make(map[string]int, len(d.plan.Order))
	for i, id := range d.plan.Order {
		position[id] = i + 1
	}

	buf.WriteString("  subgraph cluster_bundle {\n")
	buf.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(d.plan.Bundle)))
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")

	for _, id := range d.plan.Graph.Nodes() {
		label := escapeDOT(d.plan.label(id))
		if n, ok := position[id]; ok {
			label = fmt.Sprintf("%s\\n(hoisted #%d)", label, n)
		}

		switch {
		case roots[id]:
			buf.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", color=\"navy\", penwidth=2.0];\n", escapeDOT(id), label))
		case cycleModules[id]:
			buf.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", escapeDOT(id), label))
		default:
			buf.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", color=\"darkslategrey\"];\n", escapeDOT(id), label))
		}
	}
	buf.WriteString("  }\n\n")

	for _, from := range d.plan.Graph.Nodes() {
		targets, err := d.plan.Graph.Outgoing(from)
		if err != nil {
			return "", err
		}
		for _, to := range targets {
			key := from + "->" + to
			switch {
			case banned[key]:
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"red\", penwidth=3.0, style=dashed, label=\"BANNED\"];\n", escapeDOT(from), escapeDOT(to)))
			case cycleEdges[key]:
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"darkorange\", penwidth=1.8];\n", escapeDOT(from), escapeDOT(to)))
			default:
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"forestgreen\", penwidth=1.8];\n", escapeDOT(from), escapeDOT(to)))
			}
		}
	}

	buf.WriteString("\n  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Legend\";\n")
	buf.WriteString("    style=dashed;\n")
	buf.WriteString("    legend_root [label=\"Entry Module\", color=\"navy\", penwidth=2.0];\n")
	buf.WriteString("    legend_cycle [label=\"Module On Broken Cycle\", fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_edge_banned [label=\"Banned Edge\", shape=plaintext, fontcolor=\"red\"];\n")
	buf.WriteString("    legend_edge_cycle [label=\"Kept Cycle Edge\", shape=plaintext, fontcolor=\"darkorange\"];\n")
	buf.WriteString("  }\n")

	buf.WriteString("}\n")

	return buf.String(), nil
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
