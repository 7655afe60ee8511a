package locate

import (
	"context"
	"iter"
	"maps"
	"path/filepath"
	"slices"

	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/logger"
	"github.com/kbukum/wmorder/unit"
)

// Status is the outcome of resolving a dependency name.
type Status int

const (
	NotFound Status = iota
	Found
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Resolution is the result of looking up the unit that produces a library.
type Resolution struct {
	Status Status
	// Dir is the single match for Found and the lexically first candidate
	// for Ambiguous.
	Dir string
	// Candidates lists every matching unit directory in lexical order.
	Candidates []string
}

// Invalid records a descriptor found during the scan that could not be read.
type Invalid struct {
	Path string
	Err  error
}

// Index maps library names to the unit directories producing them. It is
// built once per run by Scan and is read-only afterwards.
type Index struct {
	root    string
	units   map[string]unit.Unit
	byName  map[string][]string
	invalid []Invalid
}

// Scan walks root once and reads the target of every descriptor found.
// Descriptors that cannot be read are logged, recorded in Invalid and
// skipped; they only fail a run if something depends on them.
func Scan(ctx context.Context, root string, opts Options, r unit.Reader) (*Index, error) {
	log := logger.Get("locate")
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.InvalidInput("project.root", err.Error())
	}
	idx := &Index{
		root:   abs,
		units:  make(map[string]unit.Unit),
		byName: make(map[string][]string),
	}

	for p, walkErr := range Search(abs, opts) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Canceled(err)
		}
		if walkErr != nil {
			log.Warn("skipping unreadable path", logger.ErrorFields("scan", walkErr))
			idx.invalid = append(idx.invalid, Invalid{Err: walkErr})
			continue
		}
		dir := unitDir(p)
		kind, output, err := r.ReadTarget(dir)
		if err != nil {
			log.Warn("skipping invalid unit", logger.MergeWithError(logger.Fields(logger.FieldUnit, dir), err))
			idx.invalid = append(idx.invalid, Invalid{Path: dir, Err: err})
			continue
		}
		u := unit.Unit{Dir: dir, Kind: kind, Output: output}
		idx.units[dir] = u
		if kind == unit.Library {
			idx.byName[u.Name()] = append(idx.byName[u.Name()], dir)
		}
	}

	for name := range idx.byName {
		slices.Sort(idx.byName[name])
	}

	log.Debug("scan complete", logger.Fields(
		"root", abs,
		"units", len(idx.units),
		"libraries", len(idx.byName),
		"invalid", len(idx.invalid),
	))
	return idx, nil
}

// NewIndex builds an index from already known units.
func NewIndex(root string, units ...unit.Unit) *Index {
	idx := &Index{
		root:   root,
		units:  make(map[string]unit.Unit, len(units)),
		byName: make(map[string][]string),
	}
	for _, u := range units {
		idx.units[u.Dir] = u
		if u.Kind == unit.Library {
			idx.byName[u.Name()] = append(idx.byName[u.Name()], u.Dir)
		}
	}
	for name := range idx.byName {
		slices.Sort(idx.byName[name])
	}
	return idx
}

// unitDir strips the descriptor's "Make/files" suffix; Options.Validate
// guarantees every match ends in it.
func unitDir(descriptor string) string {
	return filepath.Dir(filepath.Dir(descriptor))
}

// Root returns the absolute directory the index was built from.
func (idx *Index) Root() string { return idx.root }

// Len returns the number of readable units found.
func (idx *Index) Len() int { return len(idx.units) }

// Invalid returns the descriptors that could not be read.
func (idx *Index) Invalid() []Invalid { return idx.invalid }

// Unit returns the unit read from dir during the scan.
func (idx *Index) Unit(dir string) (unit.Unit, bool) {
	u, ok := idx.units[dir]
	return u, ok
}

// Units yields every indexed unit in lexical directory order.
func (idx *Index) Units() iter.Seq[unit.Unit] {
	return func(yield func(unit.Unit) bool) {
		for _, dir := range slices.Sorted(maps.Keys(idx.units)) {
			if !yield(idx.units[dir]) {
				return
			}
		}
	}
}

// Candidates yields, in lexical order, the directories of the library
// units that produce dependency name.
func (idx *Index) Candidates(name string) iter.Seq[string] {
	return slices.Values(idx.byName[unit.LibraryName(name)])
}

// Resolve looks up the unit that produces dependency name.
func (idx *Index) Resolve(name string) Resolution {
	dirs := idx.byName[unit.LibraryName(name)]
	switch len(dirs) {
	case 0:
		return Resolution{Status: NotFound}
	case 1:
		return Resolution{Status: Found, Dir: dirs[0], Candidates: slices.Clone(dirs)}
	default:
		return Resolution{Status: Ambiguous, Dir: dirs[0], Candidates: slices.Clone(dirs)}
	}
}
