package plan

import (
	"fmt"
	"path/filepath"

	"lukechampine.com/blake3"

	"github.com/kbukum/wmorder/dag"
	"github.com/kbukum/wmorder/unit"
)

// Entry is one unit in build order.
type Entry struct {
	Seq          int       `json:"seq" yaml:"seq"`
	Dir          string    `json:"dir" yaml:"dir"`
	Rel          string    `json:"rel" yaml:"rel"`
	Kind         unit.Kind `json:"kind" yaml:"kind"`
	Output       string    `json:"output" yaml:"output"`
	Level        int       `json:"level" yaml:"level"`
	Dependencies []string  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Plan is the build order computed for a target, as printed by the plan
// command and recorded by the run history.
type Plan struct {
	Root    string        `json:"root" yaml:"root"`
	Target  string        `json:"target" yaml:"target"`
	Units   int           `json:"units" yaml:"units"`
	Edges   int           `json:"edges" yaml:"edges"`
	Digest  string        `json:"digest" yaml:"digest"`
	Leaves  []string      `json:"leaves" yaml:"leaves"`
	Levels  [][]string    `json:"levels" yaml:"levels"`
	Order   []Entry       `json:"order" yaml:"order"`
	Dropped []dag.Dropped `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// FromGraph computes the single worker build order of g. root is the search
// root; entries carry their directory relative to it.
func FromGraph(root string, g *dag.Graph, dropped []dag.Dropped) (*Plan, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	levelOf := make(map[string]int, len(order))
	for i, level := range levels {
		for _, dir := range level {
			levelOf[dir] = i
		}
	}

	p := &Plan{
		Root:    root,
		Target:  g.Root(),
		Units:   len(order),
		Edges:   g.EdgeCount(),
		Leaves:  g.Leaves(g.Root()),
		Levels:  levels,
		Order:   make([]Entry, 0, len(order)),
		Dropped: dropped,
	}
	for i, dir := range order {
		n, _ := g.Node(dir)
		p.Order = append(p.Order, Entry{
			Seq:          i + 1,
			Dir:          dir,
			Rel:          relative(root, dir),
			Kind:         n.Unit.Kind,
			Output:       n.Unit.Output,
			Level:        levelOf[dir],
			Dependencies: g.Dependencies(dir),
		})
	}
	p.Digest = Digest(p)
	return p, nil
}

// Dirs returns the unit directories in build order.
func (p *Plan) Dirs() []string {
	dirs := make([]string, len(p.Order))
	for i, e := range p.Order {
		dirs[i] = e.Dir
	}
	return dirs
}

// Digest fingerprints the order and the edges of a plan, so two runs over
// the same tree can be compared.
func Digest(p *Plan) string {
	hasher := blake3.New(32, nil)
	for _, e := range p.Order {
		hasher.Write([]byte(e.Dir))
		hasher.Write([]byte("\n"))
		for _, dep := range e.Dependencies {
			hasher.Write([]byte("\t"))
			hasher.Write([]byte(dep))
			hasher.Write([]byte("\n"))
		}
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

func relative(root, dir string) string {
	if root == "" {
		return dir
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return dir
	}
	return rel
}
