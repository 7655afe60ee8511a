package app

import (
	"os"
	"path/filepath"

	"github.com/kbukum/wmorder/config"
	"github.com/kbukum/wmorder/dag"
	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/history"
	"github.com/kbukum/wmorder/locate"
	"github.com/kbukum/wmorder/observability"
	"github.com/kbukum/wmorder/validation"
	"github.com/kbukum/wmorder/wmake"
)

// ServiceName names the tool in config file lookup, env prefixes and logs.
const ServiceName = "wmorder"

// DefaultRootEnv is the environment variable that holds the project root.
const DefaultRootEnv = "WM_PROJECT_DIR"

// Config is the complete wmorder configuration, loaded by config.LoadConfig
// from config.yml, .env and WMORDER_* variables.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Project   ProjectConfig        `yaml:"project" mapstructure:"project"`
	Locate    locate.Options       `yaml:"locate" mapstructure:"locate"`
	Resolve   dag.Policy           `yaml:"resolve" mapstructure:"resolve"`
	Build     BuildConfig          `yaml:"build" mapstructure:"build"`
	History   history.Config       `yaml:"history" mapstructure:"history"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ProjectConfig selects the tree to search and the unit to start from.
type ProjectConfig struct {
	// Root is the directory searched for units. Empty means the value of
	// the RootEnv variable.
	Root string `yaml:"root" mapstructure:"root"`
	// RootEnv names the variable consulted when Root is empty.
	RootEnv string `yaml:"root_env" mapstructure:"root_env" validate:"required"`
	// Target is the unit the graph is built from. Empty means the current
	// directory.
	Target string `yaml:"target" mapstructure:"target"`
}

// BuildConfig controls how the plan is executed.
type BuildConfig struct {
	wmake.Config `yaml:",inline" mapstructure:",squash"`

	Workers   int    `yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=256"`
	OnFailure string `yaml:"on_failure" mapstructure:"on_failure" validate:"oneof=fail-fast best-effort"`
	// DryRun prints the order without invoking the build tool.
	DryRun bool `yaml:"dry_run" mapstructure:"dry_run"`
	// Stream copies build tool output to stderr while it runs.
	Stream bool `yaml:"stream" mapstructure:"stream"`
}

// ApplyDefaults fills every unset field, reading the project root from the
// environment when it is not configured.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	c.ServiceConfig.ApplyDefaults()

	if c.Project.RootEnv == "" {
		c.Project.RootEnv = DefaultRootEnv
	}
	if c.Project.Root == "" {
		c.Project.Root = os.Getenv(c.Project.RootEnv)
	}
	if c.Project.Target == "" {
		c.Project.Target = "."
	}

	c.Locate.ApplyDefaults()
	c.Resolve.ApplyDefaults()
	c.Build.Config.ApplyDefaults()
	if c.Build.Workers == 0 {
		c.Build.Workers = 1
	}
	if c.Build.OnFailure == "" {
		c.Build.OnFailure = dag.FailFast
	}
	c.History.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks the struct tags of every section, then that the root and
// target are existing directories.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return errors.Validation(err.Error()).WithCause(err)
	}
	if c.Project.Root == "" {
		return errors.MissingField("project.root").
			WithDetail("hint", "set --root or $"+c.Project.RootEnv)
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Locate.Validate(); err != nil {
		return err
	}
	if err := validation.New().
		Dir("project.root", c.Project.Root).
		Dir("project.target", c.Project.Target).
		Validate(); err != nil {
		return err
	}
	return nil
}

// Paths returns the absolute project root and target.
func (c *Config) Paths() (root, target string, err error) {
	root, err = filepath.Abs(c.Project.Root)
	if err != nil {
		return "", "", errors.InvalidInput("project.root", err.Error())
	}
	target, err = filepath.Abs(c.Project.Target)
	if err != nil {
		return "", "", errors.InvalidInput("project.target", err.Error())
	}
	return root, target, nil
}
