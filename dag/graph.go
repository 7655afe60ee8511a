package dag

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/unit"
)

// Node is a unit in the graph together with its adjacency. deps holds the
// forward edges (units this one needs), dependents the reverse edges.
type Node struct {
	Unit       unit.Unit
	deps       []string
	dependents []string
}

// Graph is a dependency graph keyed by unit directory. An edge A -> B means
// A depends on B. Every forward edge has exactly one reverse edge and an edge
// is stored at most once per (from, to) pair.
//
// A Graph is mutated only while it is being built and is safe for concurrent
// reads afterwards.
type Graph struct {
	root  string
	nodes map[string]*Node
	edges int
}

// NewGraph creates an empty graph rooted at the given unit directory.
func NewGraph(root string) *Graph {
	return &Graph{root: root, nodes: make(map[string]*Node)}
}

// Root returns the directory of the top-level unit.
func (g *Graph) Root() string { return g.root }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return g.edges }

// AddNode adds u unless a node for u.Dir exists, and returns the node stored
// for that directory.
func (g *Graph) AddNode(u unit.Unit) *Node {
	if n, ok := g.nodes[u.Dir]; ok {
		return n
	}
	n := &Node{Unit: u}
	g.nodes[u.Dir] = n
	return n
}

// AddEdge records that from depends on to. It reports whether the edge is
// new; repeating an edge is a no-op.
func (g *Graph) AddEdge(from, to string) (bool, error) {
	src, ok := g.nodes[from]
	if !ok {
		return false, fmt.Errorf("dag: edge references unknown node %q", from)
	}
	dst, ok := g.nodes[to]
	if !ok {
		return false, fmt.Errorf("dag: edge references unknown node %q", to)
	}
	if slices.Contains(src.deps, to) {
		return false, nil
	}
	src.deps = append(src.deps, to)
	dst.dependents = append(dst.dependents, from)
	g.edges++
	return true, nil
}

// Node returns the node stored for dir.
func (g *Graph) Node(dir string) (*Node, bool) {
	n, ok := g.nodes[dir]
	return n, ok
}

// Nodes yields every node in lexical directory order.
func (g *Graph) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, dir := range slices.Sorted(maps.Keys(g.nodes)) {
			if !yield(g.nodes[dir]) {
				return
			}
		}
	}
}

// Dependencies returns the directories dir depends on, in the order the
// edges were added.
func (g *Graph) Dependencies(dir string) []string {
	if n, ok := g.nodes[dir]; ok {
		return slices.Clone(n.deps)
	}
	return nil
}

// Dependents returns the directories that depend on dir, in the order the
// edges were added.
func (g *Graph) Dependents(dir string) []string {
	if n, ok := g.nodes[dir]; ok {
		return slices.Clone(n.dependents)
	}
	return nil
}

// Leaves returns, in lexical order, the units reachable from start that have
// no dependencies. The walk uses an explicit stack and visits each node once.
func (g *Graph) Leaves(start string) []string {
	if _, ok := g.nodes[start]; !ok {
		return nil
	}
	var leaves []string
	visited := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := g.nodes[dir]
		if len(n.deps) == 0 {
			leaves = append(leaves, dir)
			continue
		}
		for _, dep := range n.deps {
			if !visited[dep] {
				visited[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	slices.Sort(leaves)
	return leaves
}

// Reachable returns the set of directories reachable from start, start
// included.
func (g *Graph) Reachable(start string) map[string]bool {
	seen := make(map[string]bool)
	if _, ok := g.nodes[start]; !ok {
		return seen
	}
	seen[start] = true
	stack := []string{start}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range g.nodes[dir].deps {
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return seen
}

// Levels groups the units reachable from the root by dependency depth using
// Kahn's algorithm: level 0 holds the leaves, and every unit sits one level
// above the deepest of its dependencies. Units within a level are sorted and
// may build in parallel. A cycle yields CYCLIC_DEPENDENCY.
func (g *Graph) Levels() ([][]string, error) {
	reachable := g.Reachable(g.root)

	pending := make(map[string]int, len(reachable))
	var queue []string
	for dir := range reachable {
		pending[dir] = len(g.nodes[dir].deps)
		if pending[dir] == 0 {
			queue = append(queue, dir)
		}
	}
	slices.Sort(queue)

	var levels [][]string
	visited := 0
	for len(queue) > 0 {
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, dir := range queue {
			for _, dependent := range g.nodes[dir].dependents {
				if !reachable[dependent] {
					continue
				}
				pending[dependent]--
				if pending[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		slices.Sort(next)
		queue = next
	}

	if visited != len(reachable) {
		return nil, cycleAmong(pending, visited)
	}
	return levels, nil
}

// Order returns the sequence a single worker builds the graph in when every
// build succeeds: FIFO release seeded with the leaves.
func (g *Graph) Order() ([]string, error) {
	reachable := g.Reachable(g.root)
	pending := make(map[string]int, len(reachable))
	for dir := range reachable {
		pending[dir] = len(g.nodes[dir].deps)
	}

	queue := g.Leaves(g.root)
	order := make([]string, 0, len(reachable))
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]
		order = append(order, dir)
		for _, dependent := range g.nodes[dir].dependents {
			if !reachable[dependent] {
				continue
			}
			pending[dependent]--
			if pending[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	if len(order) != len(reachable) {
		return nil, cycleAmong(pending, len(order))
	}
	return order, nil
}

// cycleAmong reports the units whose dependencies never drained.
func cycleAmong(pending map[string]int, processed int) *errors.AppError {
	var stuck []string
	for dir, n := range pending {
		if n > 0 {
			stuck = append(stuck, dir)
		}
	}
	slices.Sort(stuck)
	return errors.New(errors.ErrCodeCyclicDependency, "dependency cycle among "+strings.Join(stuck, ", ")).
		WithDetails(map[string]any{"units": stuck, "processed": processed, "total": len(pending)})
}
