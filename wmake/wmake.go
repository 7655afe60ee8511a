package wmake

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/logger"
	"github.com/kbukum/wmorder/process"
	"github.com/kbukum/wmorder/resilience"
	"github.com/kbukum/wmorder/unit"
)

// DefaultBinary is the build tool invoked per unit.
const DefaultBinary = "wmake"

// Config configures how a unit's build is invoked.
type Config struct {
	// Binary is the build tool, resolved through PATH.
	Binary string `mapstructure:"binary" json:"binary" validate:"required"`
	// Args are passed before the unit directory (or alone in chdir mode).
	Args []string `mapstructure:"args" json:"args"`
	// Chdir runs the tool inside the unit directory instead of passing the
	// directory as the last argument.
	Chdir bool `mapstructure:"chdir" json:"chdir"`
	// Timeout bounds a single attempt. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" validate:"gte=0"`
	// GracePeriod is the wait between SIGTERM and SIGKILL on cancellation.
	GracePeriod time.Duration `mapstructure:"grace_period" json:"grace_period" validate:"gte=0"`
	// Retries is the number of extra attempts after a failed build.
	Retries int `mapstructure:"retries" json:"retries" validate:"gte=0,lte=10"`
	// TailLines is how many output lines are kept in a BUILD_FAILURE.
	TailLines int `mapstructure:"tail_lines" json:"tail_lines" validate:"gte=0"`
	// Env is added to the tool's environment.
	Env []string `mapstructure:"env" json:"env"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = DefaultBinary
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 10 * time.Second
	}
	if c.TailLines == 0 {
		c.TailLines = 20
	}
}

// Invoker builds units by running the build tool once per unit.
type Invoker struct {
	cfg    Config
	runner *process.Runner
	stream io.Writer
	log    *logger.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithStream copies the tool's output to w while it runs.
func WithStream(w io.Writer) Option {
	return func(i *Invoker) { i.stream = w }
}

// WithLogger replaces the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(i *Invoker) { i.log = l }
}

// New creates an Invoker.
func New(cfg Config, opts ...Option) *Invoker {
	cfg.ApplyDefaults()
	inv := &Invoker{cfg: cfg, log: logger.Get("wmake")}
	for _, opt := range opts {
		opt(inv)
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Retries + 1
	retry.RetryIf = nil
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		inv.log.Warn("retrying build", logger.MergeWithError(logger.Fields(
			"attempt", attempt,
			"backoff", backoff.String(),
		), err))
	}

	adapter := process.NewAdapter(process.Config{
		Name:        cfg.Binary,
		GracePeriod: cfg.GracePeriod,
		Timeout:     cfg.Timeout,
		Env:         cfg.Env,
	})
	inv.runner = process.NewRunner(adapter, retry)
	return inv
}

// Command returns the command that builds u.
func (i *Invoker) Command(u unit.Unit) process.Command {
	cmd := process.Command{
		Binary: i.cfg.Binary,
		Args:   slices.Clone(i.cfg.Args),
		Stream: i.stream,
	}
	if i.cfg.Chdir {
		cmd.Dir = u.Dir
	} else {
		cmd.Args = append(cmd.Args, u.Dir)
	}
	return cmd
}

// Invoke builds u and waits for the tool to exit. A non-zero exit status is
// reported as BUILD_FAILURE with the tail of the tool's output.
func (i *Invoker) Invoke(ctx context.Context, u unit.Unit) error {
	log := i.log.WithContext(ctx)
	cmd := i.Command(u)

	res, err := i.runner.Run(ctx, cmd)
	if res != nil {
		log.Debug("build output", logger.Fields(
			logger.FieldUnit, u.Dir,
			logger.FieldExitCode, res.ExitCode,
			"attempts", res.Attempts,
			"truncated", res.Truncated,
			"tail", res.Tail(i.cfg.TailLines),
		))
	}
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Canceled(ctxErr).WithDetail("unit", u.Dir)
	}
	if errors.IsCode(err, errors.ErrCodeTimeout) {
		appErr, _ := errors.AsAppError(err)
		return appErr.WithDetail("unit", u.Dir)
	}

	exitCode := -1
	var tail string
	attempts := 1
	if res != nil {
		exitCode = res.ExitCode
		tail = res.Tail(i.cfg.TailLines)
		attempts = res.Attempts
	}
	return errors.BuildFailure(u.Dir, exitCode, err).WithDetails(map[string]any{
		"command":  append([]string{cmd.Binary}, cmd.Args...),
		"attempts": attempts,
		"output":   tail,
	})
}
