package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Tree maps slash-separated relative paths to file contents.
type Tree map[string]string

// Chain is a root executable linking libfoo, which links libbar:
// root -> foo -> bar.
var Chain = Tree{
	"Make/files":       "app.C\n\nEXE = $(FOAM_APPBIN)/root\n",
	"Make/options":     "EXE_INC = -Ifoo/lnInclude\n\nEXE_LIBS = \\\n    -lfoo\n",
	"foo/Make/files":   "foo.C\n\nLIB = $(FOAM_LIBBIN)/libfoo\n",
	"foo/Make/options": "LIB_LIBS = -lbar\n",
	"bar/Make/files":   "bar.C\n\nLIB = $(FOAM_LIBBIN)/libbar\n",
}

// Cycle is a root executable on libx, where libx and liby link each other.
var Cycle = Tree{
	"Make/files":     "app.C\n\nEXE = $(FOAM_APPBIN)/app\n",
	"Make/options":   "EXE_LIBS = -lx\n",
	"x/Make/files":   "x.C\n\nLIB = $(FOAM_LIBBIN)/libx\n",
	"x/Make/options": "LIB_LIBS = -ly\n",
	"y/Make/files":   "y.C\n\nLIB = $(FOAM_LIBBIN)/liby\n",
	"y/Make/options": "LIB_LIBS = -lx\n",
}

// Project is laid out like an OpenFOAM installation: the root holds no
// descriptor, applications/solver links libfoo from src/foo.
var Project = Tree{
	"applications/solver/Make/files":   "solver.C\n\nEXE = $(FOAM_APPBIN)/solver\n",
	"applications/solver/Make/options": "EXE_LIBS = -lfoo\n",
	"src/foo/Make/files":               "foo.C\n\nLIB = $(FOAM_LIBBIN)/libfoo\n",
}

// WriteTree writes tree into a fresh temporary directory and returns its
// path.
func WriteTree(t testing.TB, tree Tree) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range tree {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// Dirs joins root with each relative directory; "." is root itself.
func Dirs(root string, rels ...string) []string {
	out := make([]string, len(rels))
	for i, rel := range rels {
		out[i] = filepath.Join(root, filepath.FromSlash(rel))
	}
	return out
}
