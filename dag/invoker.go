package dag

import (
	"context"

	"github.com/kbukum/wmorder/unit"
)

// Invoker builds one unit. It returns once the build has finished; a nil
// error means the unit's outputs are ready for its dependents.
type Invoker interface {
	Invoke(ctx context.Context, u unit.Unit) error
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, u unit.Unit) error

// Invoke calls f(ctx, u).
func (f InvokerFunc) Invoke(ctx context.Context, u unit.Unit) error { return f(ctx, u) }

// Noop is an Invoker that builds nothing.
var Noop Invoker = InvokerFunc(func(context.Context, unit.Unit) error { return nil })
