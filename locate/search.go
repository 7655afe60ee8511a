package locate

import (
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kbukum/wmorder/unit"
	"github.com/kbukum/wmorder/validation"
)

// Defaults for Options.
const DefaultPattern = "**/Make/files"

// DefaultExclude lists directories that never hold units: generated
// include links, VCS metadata and build output.
var DefaultExclude = []string{"**/lnInclude/**", "**/.git/**", "**/platforms/**"}

// Options controls which descriptor files Search yields.
type Options struct {
	// Pattern is a doublestar pattern matched against slash-separated paths
	// relative to the search root. Scan requires it to end in Make/files.
	Pattern string `yaml:"pattern" mapstructure:"pattern" validate:"required,glob"`
	// Exclude prunes every directory (and file) that a pattern matches.
	Exclude []string `yaml:"exclude" mapstructure:"exclude" validate:"dive,glob"`
}

// DefaultOptions returns the standard wmake layout options.
func DefaultOptions() Options {
	return Options{
		Pattern: DefaultPattern,
		Exclude: append([]string(nil), DefaultExclude...),
	}
}

// ApplyDefaults fills an empty pattern. A nil Exclude gets the defaults;
// an empty non-nil one disables exclusion.
func (o *Options) ApplyDefaults() {
	if o.Pattern == "" {
		o.Pattern = DefaultPattern
	}
	if o.Exclude == nil {
		o.Exclude = append([]string(nil), DefaultExclude...)
	}
}

// Validate reports a pattern whose matches are not unit descriptors; the
// unit directory is two levels above each match.
func (o Options) Validate() error {
	if err := validation.New().
		Custom(namesDescriptor(o.Pattern), "locate.pattern", "must end in "+unit.FilesPath).
		Validate(); err != nil {
		return err
	}
	return nil
}

func namesDescriptor(pattern string) bool {
	return pattern == unit.FilesPath || strings.HasSuffix(pattern, "/"+unit.FilesPath)
}

// Search lazily yields the absolute paths of files under root matching
// opts.Pattern. Walk errors are yielded with an empty path and the walk
// continues past the unreadable directory. Stopping the range stops the walk.
func Search(root string, opts Options) iter.Seq2[string, error] {
	opts.ApplyDefaults()
	return func(yield func(string, error) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			yield("", err)
			return
		}
		_ = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield("", err) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel, relErr := filepath.Rel(abs, p)
			if relErr != nil || rel == "." {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if excludedDir(opts.Exclude, rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if matchAny(opts.Exclude, rel) {
				return nil
			}
			if ok, _ := doublestar.Match(opts.Pattern, rel); ok {
				if !yield(p, nil) {
					return filepath.SkipAll
				}
			}
			return nil
		})
	}
}

// excludedDir reports whether a pattern matches the directory itself or
// anything inside it, e.g. "**/lnInclude/**" for "src/OpenFOAM/lnInclude".
func excludedDir(patterns []string, rel string) bool {
	return matchAny(patterns, rel) || matchAny(patterns, path.Join(rel, "_"))
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
