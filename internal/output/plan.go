// # internal/output/plan.go
package output

import (
	"acyclic/internal/engine/breaker"
	"acyclic/internal/engine/graph"
	"acyclic/internal/engine/patch"
	"acyclic/internal/shared/util"
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Plan is the rendered view of a prepared patcher.
type Plan struct {
	Bundle      string
	BuildID     string
	GeneratedAt time.Time
	// Graph is the module graph before any edge was banned.
	Graph *graph.Graph[string]
	// Labels maps module id to the path shown instead of the id.
	Labels map[string]string
	Roots  []string
	Order  []string
	Banned []breaker.Edge
	Cuts   []breaker.Cut
}

func FromPatcher(bundle string, p *patch.Patcher, labels map[string]string) Plan {
	return Plan{
		Bundle:      bundle,
		GeneratedAt: time.Now().UTC(),
		Graph:       p.Graph(),
		Labels:      labels,
		Roots:       p.Roots(),
		Order:       p.Order(),
		Banned:      p.BannedEdges().Pairs(),
		Cuts:        p.Cuts(),
	}
}

func (p Plan) label(id string) string {
	if l, ok := p.Labels[id]; ok && l != "" {
		return l
	}
	return id
}

func (p Plan) bannedSet() map[string]bool {
	out := make(map[string]bool, len(p.Banned))
	for _, e := range p.Banned {
		out[e.From+"->"+e.To] = true
	}
	return out
}

func (p Plan) cutCycles() [][]string {
	cycles := make([][]string, 0, len(p.Cuts))
	for _, c := range p.Cuts {
		cycles = append(cycles, c.Cycle)
	}
	return cycles
}

// PlanFile is the TOML document written next to the diagrams.
type PlanFile struct {
	Bundle      string     `toml:"bundle"`
	BuildID     string     `toml:"build_id,omitempty"`
	GeneratedAt time.Time  `toml:"generated_at"`
	Roots       []string   `toml:"roots"`
	Order       []string   `toml:"order"`
	Banned      []PlanEdge `toml:"banned"`
	Cuts        []PlanCut  `toml:"cuts"`
}

type PlanEdge struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

type PlanCut struct {
	From  string   `toml:"from"`
	To    string   `toml:"to"`
	Cycle []string `toml:"cycle"`
}

func (p Plan) File() PlanFile {
	f := PlanFile{
		Bundle:      p.Bundle,
		BuildID:     p.BuildID,
		GeneratedAt: p.GeneratedAt,
		Roots:       p.Roots,
		Order:       p.Order,
		Banned:      make([]PlanEdge, 0, len(p.Banned)),
		Cuts:        make([]PlanCut, 0, len(p.Cuts)),
	}
	for _, e := range p.Banned {
		f.Banned = append(f.Banned, PlanEdge{From: e.From, To: e.To})
	}
	for _, c := range p.Cuts {
		f.Cuts = append(f.Cuts, PlanCut{From: c.From, To: c.To, Cycle: c.Cycle})
	}
	return f
}

// EncodePlan renders p as TOML.
func EncodePlan(p Plan) (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p.File()); err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}
	return buf.String(), nil
}

// DecodePlan reads a plan written by WritePlan.
func DecodePlan(path string) (PlanFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PlanFile{}, err
	}
	var f PlanFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return PlanFile{}, fmt.Errorf("decode plan %q: %w", path, err)
	}
	return f, nil
}

func WritePlan(path string, p Plan) error {
	content, err := EncodePlan(p)
	if err != nil {
		return err
	}
	return util.WriteStringWithDirs(path, content, 0o644)
}
