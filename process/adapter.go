package process

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kbukum/wmorder/errors"
)

// Config configures a process adapter.
type Config struct {
	// Name identifies this adapter instance in errors and logs.
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// GracePeriod is the default grace period for SIGTERM→SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period"`
	// Timeout is the per-run execution timeout. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
	// MaxOutput is the default number of trailing bytes kept per stream.
	MaxOutput int `yaml:"max_output,omitempty" mapstructure:"max_output"`
	// Env is added to every command's environment.
	Env []string `yaml:"env,omitempty" mapstructure:"env"`
}

// Adapter runs commands with shared defaults.
type Adapter struct {
	config Config
}

// NewAdapter creates a new process adapter.
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{config: cfg}
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// Run executes a command, applying adapter-level defaults. When the
// adapter's own timeout fires, the error is a TIMEOUT AppError; a canceled
// parent context is returned unchanged.
func (a *Adapter) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 && a.config.GracePeriod > 0 {
		cmd.GracePeriod = a.config.GracePeriod
	}
	if cmd.MaxOutput == 0 && a.config.MaxOutput > 0 {
		cmd.MaxOutput = a.config.MaxOutput
	}
	if len(a.config.Env) > 0 {
		cmd.Env = append(append([]string{}, a.config.Env...), cmd.Env...)
	}

	runCtx := ctx
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	result, err := Run(runCtx, cmd)
	if err != nil && ctx.Err() == nil && stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
		name := a.config.Name
		if name == "" {
			name = cmd.Binary
		}
		return result, errors.Timeout(name).
			WithDetail("timeout", a.config.Timeout.String()).
			WithCause(err)
	}
	return result, err
}
