package output

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

type MermaidGenerator struct {
	plan Plan
}

func NewMermaidGenerator(p Plan) *MermaidGenerator {
	return &MermaidGenerator{plan: p}
}

func (m *MermaidGenerator) Generate() (string, error) {
	if m.plan.Graph == nil {
		return "", fmt.Errorf("plan has no module graph")
	}

	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	g := m.plan.Graph
	moduleNames := g.Nodes()
	ids := makeMermaidIDs(moduleNames)

	banned := m.plan.bannedSet()
	cycleEdges := cycleEdgeSet(m.plan.cutCycles())
	cycleModules := cycleModuleSet(m.plan.cutCycles())
	position := make(map[string]int, len(m.plan.Order))
	for i, id := range m.plan.Order {
		position[id] = i + 1
	}

	for _, id := range moduleNames {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[id], escapeMermaidLabel(m.moduleLabel(id, position[id]))))
	}

	b.WriteString("\n")
	if len(m.plan.Roots) > 0 {
		roots := append([]string(nil), m.plan.Roots...)
		sort.Strings(roots)
		b.WriteString("  classDef rootNode fill:#f7fbff,stroke:#1f3a93,stroke-width:2px;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(toIDs(roots, ids), ","))
		b.WriteString(" rootNode;\n")
	}
	if cycleNames := intersectOrdered(moduleNames, cycleModules); len(cycleNames) > 0 {
		b.WriteString("  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(toIDs(cycleNames, ids), ","))
		b.WriteString(" cycleNode;\n")
	}

	b.WriteString("\n")
	linkIndex := 0
	bannedLinkIndexes := make([]int, 0)
	cycleLinkIndexes := make([]int, 0)
	for _, from := range moduleNames {
		targets, err := g.Outgoing(from)
		if err != nil {
			return "", err
		}
		for _, to := range targets {
			key := from + "->" + to
			if banned[key] {
				b.WriteString(fmt.Sprintf("  %s -.->|BANNED| %s\n", ids[from], ids[to]))
				bannedLinkIndexes = append(bannedLinkIndexes, linkIndex)
			} else {
				b.WriteString(fmt.Sprintf("  %s --> %s\n", ids[from], ids[to]))
				if cycleEdges[key] {
					cycleLinkIndexes = append(cycleLinkIndexes, linkIndex)
				}
			}
			linkIndex++
		}
	}

	if len(bannedLinkIndexes) > 0 || len(cycleLinkIndexes) > 0 {
		b.WriteString("\n")
	}
	if len(bannedLinkIndexes) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#cc0000,stroke-width:3px,stroke-dasharray:5 3;\n", joinInts(bannedLinkIndexes)))
	}
	if len(cycleLinkIndexes) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#a64d00,stroke-width:2px;\n", joinInts(cycleLinkIndexes)))
	}
	b.WriteString("\n")
	b.WriteString("  subgraph legend_info[\"Legend\"]\n")
	b.WriteString("    legend_nodes[\"Node: module\\n(#N = position in hoisting order)\"]\n")
	b.WriteString("    legend_edges[\"Edge labels: BANNED=edge removed to break a cycle\"]\n")
	b.WriteString("  end\n")
	b.WriteString("  classDef legendNode fill:#fff8dc,stroke:#b8a24c,stroke-width:1px;\n")
	b.WriteString("  class legend_nodes,legend_edges legendNode;\n")

	return b.String(), nil
}

func (m *MermaidGenerator) moduleLabel(id string, position int) string {
	label := m.plan.label(id)
	if position > 0 {
		return fmt.Sprintf("%s\\n(#%d)", label, position)
	}
	return label
}

func sanitizeMermaidID(module string) string {
	if module == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range module {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	first := rune(out[0])
	if unicode.IsDigit(first) {
		return "m_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func cycleEdgeSet(cycles [][]string) map[string]bool {
	out := make(map[string]bool)
	for _, cycle := range cycles {
		for i := 0; i+1 < len(cycle); i++ {
			out[cycle[i]+"->"+cycle[i+1]] = true
		}
	}
	return out
}

func cycleModuleSet(cycles [][]string) map[string]bool {
	out := make(map[string]bool)
	for _, cycle := range cycles {
		for _, mod := range cycle {
			out[mod] = true
		}
	}
	return out
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func toIDs(names []string, ids map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := ids[name]; ok {
			out = append(out, id)
		}
	}
	return out
}

func intersectOrdered(ordered []string, set map[string]bool) []string {
	out := make([]string, 0)
	for _, item := range ordered {
		if set[item] {
			out = append(out, item)
		}
	}
	return out
}

func joinInts(v []int) string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ",")
}
