package unit

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kbukum/wmorder/errors"
)

// Descriptor file locations relative to a unit directory.
const (
	MakeDir     = "Make"
	FilesPath   = "Make/files"
	OptionsPath = "Make/options"
)

// Reader reads unit descriptors. Disk is the implementation used outside tests.
type Reader interface {
	ReadTarget(dir string) (Kind, string, error)
	ReadDependencies(dir string) ([]string, error)
}

// Disk reads descriptors from the local filesystem.
type Disk struct{}

func (Disk) ReadTarget(dir string) (Kind, string, error)   { return ReadTarget(dir) }
func (Disk) ReadDependencies(dir string) ([]string, error) { return ReadDependencies(dir) }

// ReadTarget reads dir/Make/files. It fails with MISSING_DESCRIPTOR when the
// file cannot be read and MALFORMED_DESCRIPTOR when it declares no target.
func ReadTarget(dir string) (Kind, string, error) {
	data, err := os.ReadFile(filepath.Join(dir, FilesPath))
	if err != nil {
		return KindUnknown, "", errors.MissingDescriptor(dir, err)
	}
	kind, output, ok := ParseTarget(string(data))
	if !ok {
		return KindUnknown, "", errors.MalformedDescriptor(dir, "Make/files declares neither EXE nor LIB")
	}
	if output == "" {
		return KindUnknown, "", errors.MalformedDescriptor(dir, kind.String()+" has an empty target")
	}
	return kind, output, nil
}

// ReadDependencies reads dir/Make/options. A unit without the file has no
// dependencies.
func ReadDependencies(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, OptionsPath))
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.MalformedDescriptor(dir, "cannot read Make/options").WithCause(err)
	}
	return ParseDependencies(string(data)), nil
}

// Read returns the unit at dir together with its dependency names.
func Read(r Reader, dir string) (Unit, []string, error) {
	abs, err := Abs(dir)
	if err != nil {
		return Unit{}, nil, errors.InvalidInput("dir", err.Error())
	}
	kind, output, err := r.ReadTarget(abs)
	if err != nil {
		return Unit{}, nil, err
	}
	deps, err := r.ReadDependencies(abs)
	if err != nil {
		return Unit{}, nil, err
	}
	return Unit{Dir: abs, Kind: kind, Output: output}, deps, nil
}

// Abs returns the absolute, cleaned form of dir; units are keyed by it.
func Abs(dir string) (string, error) {
	return filepath.Abs(dir)
}
