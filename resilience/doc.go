// Package resilience retries failing operations with exponential backoff.
//
//	cfg := resilience.DefaultRetryConfig()
//	cfg.MaxAttempts = retries + 1
//	res, err := resilience.Retry(ctx, cfg, func(attempt int) (*process.Result, error) {
//	    return runOnce(ctx)
//	})
//
// Whether an error is retried is decided by RetryIf; the default follows the
// Retryable flag of the error's AppError.
package resilience
