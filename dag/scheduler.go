package dag

import (
	"context"
	"slices"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/logger"
	"github.com/kbukum/wmorder/unit"
)

// Failure policies.
const (
	FailFast   = "fail-fast"
	BestEffort = "best-effort"
)

// Scheduler builds a graph bottom-up. Every unit starts with a counter equal
// to its number of dependencies; the leaves are queued first, and when a unit
// succeeds each dependent's counter is decremented and the dependent is
// queued once it reaches zero. The queue is FIFO.
//
// Counters and the queue are owned by the goroutine calling Run; workers only
// invoke builds and report back, so every decrement-and-release is atomic.
type Scheduler struct {
	// Invoker builds a single unit. Nil means Noop.
	Invoker Invoker
	// Workers bounds the number of builds in flight (<= 0 means 1).
	Workers int
	// OnFailure is FailFast (default) or BestEffort.
	OnFailure string
	// Released, when set, is called just before a unit is handed to a worker,
	// in release order.
	Released func(u unit.Unit)
}

type outcome struct {
	dir      string
	worker   int
	duration time.Duration
	err      error
}

// Run builds every unit reachable from the graph root. The returned error
// combines all build failures; a canceled context is reported as CANCELED,
// and units left unreleased without either are reported as
// CYCLIC_DEPENDENCY. The Result is returned even when err is non-nil.
func (s *Scheduler) Run(ctx context.Context, g *Graph) (*Result, error) {
	start := time.Now()
	log := logger.Get("scheduler").WithContext(ctx)

	workers := max(s.Workers, 1)
	invoker := s.Invoker
	if invoker == nil {
		invoker = Noop
	}
	reachable := g.Reachable(g.Root())

	pending := make(map[string]int, len(reachable))
	for dir := range reachable {
		pending[dir] = len(g.nodes[dir].deps)
	}
	queue := g.Leaves(g.Root())

	free := make([]int, 0, workers)
	for w := workers; w >= 1; w-- {
		free = append(free, w)
	}

	var eg errgroup.Group
	eg.SetLimit(workers)
	done := make(chan outcome)

	result := &Result{}
	finished := make(map[string]bool, len(reachable))
	var failures []error
	stopping := false
	inflight := 0

	for {
		for !stopping && len(queue) > 0 && inflight < workers {
			dir := queue[0]
			queue = queue[1:]
			u := g.nodes[dir].Unit

			worker := free[len(free)-1]
			free = free[:len(free)-1]
			inflight++

			if s.Released != nil {
				s.Released(u)
			}
			log.Debug("unit released", logger.Fields(logger.FieldUnit, dir, logger.FieldWorker, worker))

			eg.Go(func() error {
				began := time.Now()
				err := invoker.Invoke(ctx, u)
				done <- outcome{dir: dir, worker: worker, duration: time.Since(began), err: err}
				return nil
			})
		}
		if inflight == 0 {
			break
		}

		o := <-done
		inflight--
		free = append(free, o.worker)
		finished[o.dir] = true

		ur := UnitResult{Unit: g.nodes[o.dir].Unit, Worker: o.worker, Duration: o.duration, Err: o.err}
		if o.err != nil {
			ur.Status = StatusFailed
			failures = append(failures, o.err)
			log.WithError(o.err).Error("unit failed", logger.Fields(logger.FieldUnit, o.dir))
			if s.OnFailure != BestEffort {
				stopping = true
			}
		} else {
			ur.Status = StatusSucceeded
			for _, dependent := range g.nodes[o.dir].dependents {
				if !reachable[dependent] {
					continue
				}
				pending[dependent]--
				if pending[dependent] == 0 {
					queue = append(queue, dependent)
				}
			}
		}
		result.Units = append(result.Units, ur)

		if ctx.Err() != nil {
			stopping = true
		}
	}
	_ = eg.Wait()

	var skipped []string
	for dir := range reachable {
		if !finished[dir] {
			skipped = append(skipped, dir)
		}
	}
	slices.Sort(skipped)
	for _, dir := range skipped {
		result.Units = append(result.Units, UnitResult{Unit: g.nodes[dir].Unit, Status: StatusSkipped})
	}
	result.Duration = time.Since(start)

	log.Info("build finished", logger.MergeWithDuration(logger.Fields(
		"succeeded", result.Count(StatusSucceeded),
		"failed", len(failures),
		"skipped", len(skipped),
	), result.Duration))

	var err error
	switch ctxErr := ctx.Err(); {
	case ctxErr != nil:
		err = errors.Canceled(ctxErr)
	case len(failures) == 0 && len(skipped) > 0:
		err = cycleAmong(pending, len(finished))
		log.WithError(err).Error("units never became ready")
	}
	return result, multierr.Append(err, multierr.Combine(failures...))
}
