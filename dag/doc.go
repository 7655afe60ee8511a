// Package dag builds the dependency graph of wmake units and schedules their
// builds bottom-up.
//
// Builder expands a unit and everything it depends on into a Graph, resolving
// dependency names through a locate.Index and memoizing expanded units.
// Cycles are detected while expanding and reported with their path.
//
// Scheduler runs Kahn's algorithm over the finished graph: leaves are queued
// first and a unit is released once all of its dependencies have built. One
// Invoker call is made per unit; WithLogging, WithTracing and WithMetrics wrap
// an Invoker with the usual instrumentation.
//
//	b := dag.NewBuilder(index, unit.Disk{}, dag.DefaultPolicy())
//	g, err := b.Build(ctx, target)
//	res, err := (&dag.Scheduler{Invoker: inv, Workers: 1}).Run(ctx, g)
package dag
