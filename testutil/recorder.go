package testutil

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"github.com/kbukum/wmorder/unit"
)

// Recorder is a build invoker that records the units it is asked to build.
// Units whose directory base name is in Fail return that error.
type Recorder struct {
	Fail map[string]error

	mu    sync.Mutex
	built []string
}

// Invoke records u and returns its configured failure, if any.
func (r *Recorder) Invoke(_ context.Context, u unit.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built = append(r.built, u.Dir)
	return r.Fail[filepath.Base(u.Dir)]
}

// Built returns the invoked directories in call order.
func (r *Recorder) Built() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.built)
}
