package process

import (
	"context"
	stderrors "errors"
	"os/exec"

	"github.com/kbukum/wmorder/resilience"
)

// Runner retries failed runs of an Adapter.
type Runner struct {
	adapter *Adapter
	retry   resilience.RetryConfig
}

// NewRunner creates a Runner. A zero RetryConfig runs each command once.
// Without a RetryIf, a missing binary is never retried.
func NewRunner(adapter *Adapter, retry resilience.RetryConfig) *Runner {
	if retry.RetryIf == nil {
		retry.RetryIf = func(err error) bool {
			return !stderrors.Is(err, exec.ErrNotFound) && resilience.DefaultRetryIf(err)
		}
	}
	return &Runner{adapter: adapter, retry: retry}
}

// Run executes cmd through the retry policy. The returned Result belongs to
// the last attempt and records how many attempts were made.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	var last *Result
	attempts := 0
	_, err := resilience.Retry(ctx, r.retry, func(attempt int) (*Result, error) {
		attempts = attempt
		res, err := r.adapter.Run(ctx, cmd)
		if res != nil {
			last = res
		}
		return res, err
	})
	if last != nil {
		last.Attempts = attempts
	}
	return last, err
}
