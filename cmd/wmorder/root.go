package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/wmorder/app"
	"github.com/kbukum/wmorder/bootstrap"
	"github.com/kbukum/wmorder/config"
	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/history"
	"github.com/kbukum/wmorder/observability"
	"github.com/kbukum/wmorder/version"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	envFile    string
	root       string
	target     string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "wmorder",
		Short: "Build wmake units in dependency order",
		Long: `wmorder finds every unit (a directory with Make/files) under the project
root, follows the -l<name> libraries in Make/options to the units that
produce them, and builds the target's dependency graph bottom-up with wmake.

The project root defaults to $WM_PROJECT_DIR and the target to the
current directory.`,
		Version:       version.GetShortVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "config file (default: wmorder.yml in the usual locations)")
	pf.StringVar(&g.envFile, "env-file", "", ".env file to load")
	pf.StringVar(&g.root, "root", "", "project root to search for units (default $WM_PROJECT_DIR)")
	pf.StringVar(&g.target, "target", "", "unit directory to build (default: the current directory)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "log format: console, json")

	cmd.AddCommand(
		newPlanCmd(g),
		newLeavesCmd(g),
		newBuildCmd(g),
		newHistoryCmd(g),
		newVersionCmd(),
	)
	return cmd
}

// load reads the configuration and applies the global flags on top.
func (g *globalFlags) load(cmd *cobra.Command) (*app.Config, error) {
	var opts []config.LoaderOption
	if g.configFile != "" {
		opts = append(opts, config.WithConfigFile(g.configFile))
	}
	if g.envFile != "" {
		opts = append(opts, config.WithEnvFile(g.envFile))
	}

	cfg := &app.Config{}
	if err := config.LoadConfig(app.ServiceName, cfg, opts...); err != nil {
		return nil, errors.Validation(err.Error()).WithCause(err)
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Project.Root = g.root
	}
	if flags.Changed("target") {
		cfg.Project.Target = g.target
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = g.logFormat
	}
	if cfg.Version == "" {
		cfg.Version = version.GetShortVersion()
	}
	return cfg, nil
}

// session is an App with the components the config enables.
type session struct {
	*bootstrap.App[*app.Config]
	history   *history.Store
	telemetry *observability.Telemetry
}

// newSession creates the App and registers the history store and telemetry
// when the config enables them. withHistory forces the store on.
func newSession(cfg *app.Config, withHistory bool) (*session, error) {
	a, err := bootstrap.NewApp(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{App: a}

	if cfg.Telemetry.Enabled() {
		s.telemetry = observability.NewTelemetry(cfg.Telemetry, cfg.Name, cfg.Version, cfg.Environment)
		if err := a.RegisterComponent(s.telemetry); err != nil {
			return nil, err
		}
	}
	if cfg.History.Enabled || withHistory {
		s.history = history.New(cfg.History.Path)
		if err := a.RegisterComponent(s.history); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// orchestrator wires the session's components into an Orchestrator that
// writes to the command's streams.
func (s *session) orchestrator(cmd *cobra.Command) *app.Orchestrator {
	opts := []app.Option{app.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())}
	if s.history != nil {
		opts = append(opts, app.WithHistory(s.history))
	}
	if s.telemetry != nil {
		opts = append(opts, app.WithTelemetry(s.telemetry))
	}
	return app.NewOrchestrator(s.Cfg, opts...)
}
