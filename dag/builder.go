package dag

import (
	"context"
	"slices"

	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/locate"
	"github.com/kbukum/wmorder/logger"
	"github.com/kbukum/wmorder/observability"
	"github.com/kbukum/wmorder/unit"
)

// Resolution policies.
const (
	UnresolvedWarn  = "warn"
	UnresolvedError = "error"
	AmbiguousFirst  = "first"
	AmbiguousError  = "error"
)

// Policy decides what happens to dependency names the index cannot map to
// exactly one unit.
type Policy struct {
	// OnUnresolved is "warn" (drop the edge and log) or "error".
	OnUnresolved string `mapstructure:"on_unresolved" json:"on_unresolved" validate:"oneof=warn error"`
	// OnAmbiguous is "first" (take the lexically first candidate) or "error".
	OnAmbiguous string `mapstructure:"on_ambiguous" json:"on_ambiguous" validate:"oneof=first error"`
}

// DefaultPolicy warns on unresolved names and picks the first candidate.
func DefaultPolicy() Policy {
	return Policy{OnUnresolved: UnresolvedWarn, OnAmbiguous: AmbiguousFirst}
}

// ApplyDefaults fills unset policy fields.
func (p *Policy) ApplyDefaults() {
	if p.OnUnresolved == "" {
		p.OnUnresolved = UnresolvedWarn
	}
	if p.OnAmbiguous == "" {
		p.OnAmbiguous = AmbiguousFirst
	}
}

// Dropped is a dependency name left out of the graph.
type Dropped struct {
	Unit       string `json:"unit" yaml:"unit"`
	Dependency string `json:"dependency" yaml:"dependency"`
}

// Builder expands units into a Graph. It owns the graph, the resolution memo
// and the set of units currently being expanded, so a Builder serves a
// single run and must not be shared between goroutines.
type Builder struct {
	index  *locate.Index
	reader unit.Reader
	policy Policy
	log    *logger.Logger

	graph    *Graph
	declared map[string][]string
	memo     map[string]bool
	visiting map[string]bool
	dropped  []Dropped
}

// NewBuilder creates a builder resolving names through index and reading
// dependency lists through r.
func NewBuilder(index *locate.Index, r unit.Reader, policy Policy) *Builder {
	policy.ApplyDefaults()
	return &Builder{
		index:    index,
		reader:   r,
		policy:   policy,
		log:      logger.Get("resolve"),
		declared: make(map[string][]string),
		memo:     make(map[string]bool),
		visiting: make(map[string]bool),
	}
}

// Build reads the unit at root and resolves its dependency tree.
func (b *Builder) Build(ctx context.Context, root string) (*Graph, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanResolve)
	defer span.End()

	abs, err := unit.Abs(root)
	if err != nil {
		return nil, errors.InvalidInput("target", err.Error())
	}
	observability.SetSpanAttribute(ctx, observability.AttrUnit, abs)

	b.graph = NewGraph(abs)
	if _, err := b.Resolve(ctx, abs); err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrUnits, b.graph.Len())

	b.log.WithContext(ctx).Info("dependency graph built", logger.Fields(
		logger.FieldUnit, abs,
		"units", b.graph.Len(),
		"edges", b.graph.EdgeCount(),
		"dropped", len(b.dropped),
	))
	return b.graph, nil
}

// Graph returns the graph built so far.
func (b *Builder) Graph() *Graph { return b.graph }

// Dropped returns the dependency names the policy left out of the graph.
func (b *Builder) Dropped() []Dropped { return slices.Clone(b.dropped) }

type frame struct {
	dir  string
	deps []string
	next int
}

// Resolve expands dir and everything it depends on into the graph and returns
// the dependency names dir declares. A directory already in the memo is not
// expanded again. Dependencies are fully expanded before the unit depending
// on them is recorded in the memo.
func (b *Builder) Resolve(ctx context.Context, dir string) ([]string, error) {
	abs, err := unit.Abs(dir)
	if err != nil {
		return nil, errors.InvalidInput("dir", err.Error())
	}
	if b.graph == nil {
		b.graph = NewGraph(abs)
	}
	if b.memo[abs] {
		return b.declared[abs], nil
	}

	first, err := b.enter(abs)
	if err != nil {
		return nil, err
	}
	stack := []*frame{first}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.Canceled(err)
		}

		top := stack[len(stack)-1]
		if top.next == len(top.deps) {
			stack = stack[:len(stack)-1]
			delete(b.visiting, top.dir)
			b.memo[top.dir] = true
			continue
		}
		name := top.deps[top.next]
		top.next++

		target, ok, err := b.lookup(top.dir, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if target == top.dir {
			b.log.Warn("ignoring self dependency", logger.Fields(logger.FieldUnit, top.dir, logger.FieldDependency, name))
			continue
		}
		if b.visiting[target] {
			return nil, errors.CyclicDependency(cyclePath(stack, target))
		}

		if _, exists := b.graph.Node(target); !exists {
			u, _ := b.index.Unit(target)
			b.graph.AddNode(u)
		}
		if _, err := b.graph.AddEdge(top.dir, target); err != nil {
			return nil, errors.Internal(err)
		}
		if b.memo[target] {
			continue
		}

		next, err := b.enter(target)
		if err != nil {
			return nil, err
		}
		stack = append(stack, next)
	}

	return b.declared[abs], nil
}

// enter reads dir's dependency names, adds its node when missing and marks
// it as being expanded.
func (b *Builder) enter(dir string) (*frame, error) {
	if _, ok := b.graph.Node(dir); !ok {
		u, ok := b.index.Unit(dir)
		if !ok {
			kind, output, err := b.reader.ReadTarget(dir)
			if err != nil {
				return nil, err
			}
			u = unit.Unit{Dir: dir, Kind: kind, Output: output}
		}
		b.graph.AddNode(u)
	}

	deps, err := b.reader.ReadDependencies(dir)
	if err != nil {
		return nil, err
	}
	b.declared[dir] = deps
	b.visiting[dir] = true

	b.log.Debug("resolving unit", logger.Fields(
		logger.FieldUnit, dir,
		"dependencies", len(deps),
	))
	return &frame{dir: dir, deps: deps}, nil
}

// lookup maps a dependency name of unit from to a directory, applying the
// policy when the name is unknown or ambiguous.
func (b *Builder) lookup(from, name string) (string, bool, error) {
	res := b.index.Resolve(name)
	switch res.Status {
	case locate.Found:
		return res.Dir, true, nil
	case locate.Ambiguous:
		if b.policy.OnAmbiguous == AmbiguousError {
			return "", false, errors.AmbiguousDependency(from, name, res.Candidates)
		}
		b.log.Warn("ambiguous dependency, using first candidate", logger.Fields(
			logger.FieldUnit, from,
			logger.FieldDependency, name,
			"chosen", res.Dir,
			"candidates", res.Candidates,
		))
		return res.Dir, true, nil
	default:
		if b.policy.OnUnresolved == UnresolvedError {
			return "", false, errors.UnresolvedDependency(from, name)
		}
		b.log.Warn("unresolved dependency dropped", logger.Fields(
			logger.FieldUnit, from,
			logger.FieldDependency, name,
		))
		b.dropped = append(b.dropped, Dropped{Unit: from, Dependency: name})
		return "", false, nil
	}
}

// cyclePath returns the units from target to the top of the stack, closed by
// target again.
func cyclePath(stack []*frame, target string) []string {
	var path []string
	for i, f := range stack {
		if f.dir == target {
			for _, g := range stack[i:] {
				path = append(path, g.dir)
			}
			break
		}
	}
	return append(path, target)
}
