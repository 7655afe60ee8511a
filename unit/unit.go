package unit

import (
	"fmt"
	"path"
	"strings"
)

// Kind is the type of artifact a unit produces.
type Kind int

const (
	KindUnknown Kind = iota
	Executable
	Library
)

// String returns the Make/files keyword for the kind.
func (k Kind) String() string {
	switch k {
	case Executable:
		return "EXE"
	case Library:
		return "LIB"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "EXE":
		*k = Executable
	case "LIB":
		*k = Library
	default:
		return fmt.Errorf("unknown unit kind %q", text)
	}
	return nil
}

// Unit is one wmake build unit: a directory holding Make/files.
type Unit struct {
	// Dir is the absolute, cleaned unit directory.
	Dir string `json:"dir" yaml:"dir"`
	// Kind is EXE or LIB.
	Kind Kind `json:"kind" yaml:"kind"`
	// Output is the target path with the install placeholder removed,
	// e.g. "libfiniteVolume" or "dummy/libPstream".
	Output string `json:"output" yaml:"output"`
}

// Name returns the file name of the output, e.g. "libfiniteVolume".
func (u Unit) Name() string {
	return path.Base(u.Output)
}

// Produces reports whether the unit is the library that satisfies the
// link dependency name, i.e. it is a LIB whose output is "lib"+name.
func (u Unit) Produces(name string) bool {
	return u.Kind == Library && u.Name() == LibraryName(name)
}

// LibraryName returns the output name that provides dependency name.
func LibraryName(name string) string {
	return "lib" + name
}
