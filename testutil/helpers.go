package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/wmorder/component"
)

// THelper binds component helpers to a test.
type THelper struct {
	t   testing.TB
	ctx context.Context
}

// T wraps a test so components started through it are stopped when the
// test ends.
//
//	store := history.New(path)
//	testutil.T(t).Setup(store)
func T(t testing.TB) *THelper {
	return &THelper{t: t, ctx: context.Background()}
}

// WithContext sets the context passed to Start and Stop.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts c and registers its Stop with t.Cleanup. A start failure
// fails the test immediately.
func (h *THelper) Setup(c component.Component) {
	h.t.Helper()
	if err := c.Start(h.ctx); err != nil {
		h.t.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	h.t.Cleanup(func() {
		if err := c.Stop(h.ctx); err != nil {
			h.t.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// Healthy fails the test unless c reports itself healthy.
func (h *THelper) Healthy(c component.Component) {
	h.t.Helper()
	if got := c.Health(h.ctx); got.Status != component.StatusHealthy {
		h.t.Errorf("component %s is %s: %s", c.Name(), got.Status, got.Message)
	}
}
