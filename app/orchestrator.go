package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kbukum/wmorder/dag"
	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/history"
	"github.com/kbukum/wmorder/locate"
	"github.com/kbukum/wmorder/logger"
	"github.com/kbukum/wmorder/observability"
	"github.com/kbukum/wmorder/plan"
	"github.com/kbukum/wmorder/unit"
	"github.com/kbukum/wmorder/wmake"
)

// Orchestrator runs the pipeline: scan the root, build the graph from the
// target, order it, and hand the units to the build tool.
type Orchestrator struct {
	cfg       *Config
	reader    unit.Reader
	invoker   dag.Invoker
	history   *history.Store
	telemetry *observability.Telemetry
	stdout    io.Writer
	stderr    io.Writer
	log       *logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReader replaces the descriptor reader (unit.Disk by default).
func WithReader(r unit.Reader) Option {
	return func(o *Orchestrator) { o.reader = r }
}

// WithInvoker replaces the wmake invoker built from the build config.
func WithInvoker(inv dag.Invoker) Option {
	return func(o *Orchestrator) { o.invoker = inv }
}

// WithHistory records every build in s. The store must be started.
func WithHistory(s *history.Store) Option {
	return func(o *Orchestrator) { o.history = s }
}

// WithTelemetry records build metrics through t once it is started.
func WithTelemetry(t *observability.Telemetry) Option {
	return func(o *Orchestrator) { o.telemetry = t }
}

// WithOutput sets where the build order (stdout) and streamed tool output
// (stderr) go.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *Orchestrator) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// NewOrchestrator creates an Orchestrator for a defaulted, validated config.
func NewOrchestrator(cfg *Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		reader: unit.Disk{},
		stdout: os.Stdout,
		stderr: os.Stderr,
		log:    logger.Get("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.invoker == nil {
		var wopts []wmake.Option
		if cfg.Build.Stream {
			wopts = append(wopts, wmake.WithStream(o.stderr))
		}
		o.invoker = wmake.New(cfg.Build.Config, wopts...)
	}
	return o
}

// Graph scans the project root and builds the dependency graph reachable
// from the target. It also returns the dependencies the resolve policy
// dropped.
func (o *Orchestrator) Graph(ctx context.Context) (*dag.Graph, []dag.Dropped, error) {
	root, target, err := o.cfg.Paths()
	if err != nil {
		return nil, nil, err
	}

	scanCtx, span := observability.StartSpan(ctx, observability.SpanScan)
	observability.SetSpanAttribute(scanCtx, observability.AttrRoot, root)
	idx, err := locate.Scan(scanCtx, root, o.cfg.Locate, o.reader)
	if err != nil {
		observability.SetSpanError(scanCtx, err)
		span.End()
		return nil, nil, err
	}
	observability.SetSpanAttribute(scanCtx, observability.AttrUnits, idx.Len())
	span.End()

	b := dag.NewBuilder(idx, o.reader, o.cfg.Resolve)
	g, err := b.Build(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	return g, b.Dropped(), nil
}

// Plan builds the graph and returns the build plan without running anything.
func (o *Orchestrator) Plan(ctx context.Context) (*plan.Plan, error) {
	p, _, err := o.plan(ctx)
	return p, err
}

func (o *Orchestrator) plan(ctx context.Context) (*plan.Plan, *dag.Graph, error) {
	g, dropped, err := o.Graph(ctx)
	if err != nil {
		return nil, nil, err
	}
	root, _, err := o.cfg.Paths()
	if err != nil {
		return nil, nil, err
	}
	p, err := plan.FromGraph(root, g, dropped)
	if err != nil {
		return nil, nil, err
	}
	return p, g, nil
}

// Leaves returns the units reachable from the target that depend on nothing.
func (o *Orchestrator) Leaves(ctx context.Context) ([]string, error) {
	g, _, err := o.Graph(ctx)
	if err != nil {
		return nil, err
	}
	return g.Leaves(g.Root()), nil
}

// Report is the outcome of Build.
type Report struct {
	RunID  string
	Plan   *plan.Plan
	Result *dag.Result
}

// Build plans the target and builds every unit bottom-up. Each unit
// directory is written to stdout just before its build starts, so stdout
// carries the build order. In dry-run mode the order is printed and nothing
// is invoked. The Report is returned whenever a plan could be made.
func (o *Orchestrator) Build(ctx context.Context) (*Report, error) {
	runID := history.NewRunID()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := o.log.WithContext(ctx)

	ctx, span := observability.StartSpan(ctx, observability.SpanBuild)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrRunID, runID)

	p, g, err := o.plan(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrUnits, p.Units)
	report := &Report{RunID: runID, Plan: p}

	run := o.beginRun(ctx, history.Run{
		ID:      runID,
		Root:    p.Root,
		Target:  p.Target,
		Digest:  p.Digest,
		Units:   p.Units,
		Workers: o.cfg.Build.Workers,
		DryRun:  o.cfg.Build.DryRun,
	})

	if o.cfg.Build.DryRun {
		log.Info("dry run", logger.Fields("units", p.Units, "digest", p.Digest))
		err := plan.Render(o.stdout, p, plan.FormatText)
		run.Status = history.RunSucceeded
		if err != nil {
			run.Status = history.RunFailed
			run.Error = err.Error()
		}
		o.finishRun(ctx, run)
		return report, err
	}

	var inv dag.Invoker = o.invoker
	inv = dag.WithLogging(inv, logger.Get("build"))
	inv = dag.WithTracing(inv)
	if o.telemetry != nil {
		inv = dag.WithMetrics(inv, o.telemetry.Metrics())
	}

	sched := &dag.Scheduler{
		Invoker:   inv,
		Workers:   o.cfg.Build.Workers,
		OnFailure: o.cfg.Build.OnFailure,
		Released: func(u unit.Unit) {
			fmt.Fprintln(o.stdout, u.Dir)
		},
	}

	log.Info("build started", logger.Fields(
		"units", p.Units,
		"workers", o.cfg.Build.Workers,
		"on_failure", o.cfg.Build.OnFailure,
	))
	res, runErr := sched.Run(ctx, g)
	report.Result = res

	for i, ur := range res.Units {
		o.recordUnit(ctx, runID, i+1, ur)
	}

	run.Succeeded = res.Count(dag.StatusSucceeded)
	run.Failed = res.Count(dag.StatusFailed)
	run.Skipped = res.Count(dag.StatusSkipped)
	switch {
	case runErr == nil:
		run.Status = history.RunSucceeded
	case errors.IsCode(runErr, errors.ErrCodeCanceled):
		run.Status = history.RunInterrupted
		run.Error = runErr.Error()
	default:
		run.Status = history.RunFailed
		run.Error = runErr.Error()
	}
	o.finishRun(ctx, run)

	observability.SetSpanAttribute(ctx, observability.AttrStatus, run.Status)
	observability.SetSpanAttribute(ctx, observability.AttrDurationMs, res.Duration.Milliseconds())
	if runErr != nil {
		observability.SetSpanError(ctx, runErr)
	}
	return report, runErr
}

// History writes never fail a build; they are logged and skipped. They run
// on an uncanceled context so an interrupted build is still recorded.

func (o *Orchestrator) beginRun(ctx context.Context, run history.Run) history.Run {
	if o.history == nil {
		return run
	}
	stored, err := o.history.BeginRun(context.WithoutCancel(ctx), run)
	if err != nil {
		o.log.WithContext(ctx).Warn("run not recorded", logger.ErrorFields("history", err))
		return run
	}
	return stored
}

func (o *Orchestrator) recordUnit(ctx context.Context, runID string, seq int, ur dag.UnitResult) {
	if o.history == nil {
		return
	}
	rec := history.UnitRecord{
		RunID:    runID,
		Seq:      seq,
		Dir:      ur.Unit.Dir,
		Kind:     ur.Unit.Kind.String(),
		Output:   ur.Unit.Output,
		Status:   string(ur.Status),
		Worker:   ur.Worker,
		Duration: ur.Duration,
	}
	if ur.Err != nil {
		rec.Error = ur.Err.Error()
	}
	if err := o.history.RecordUnit(context.WithoutCancel(ctx), rec); err != nil {
		o.log.WithContext(ctx).Warn("unit not recorded", logger.ErrorFields("history", err))
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, run history.Run) {
	if o.history == nil {
		return
	}
	run.FinishedAt = time.Now()
	if err := o.history.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		o.log.WithContext(ctx).Warn("run not finalized", logger.ErrorFields("history", err))
	}
}
