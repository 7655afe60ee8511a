package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/wmorder/app"
	"github.com/kbukum/wmorder/dag"
	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/plan"
	"github.com/kbukum/wmorder/validation"
	"github.com/kbukum/wmorder/version"
)

func newPlanCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the build order without building",
		Long: `Print the units reachable from the target in the order they would be built.

Formats: text (one directory per line), table, json, yaml. The structured
formats include dependency levels, edges and a digest of the plan.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.New().OneOf("format", format, plan.Formats).Validate(); err != nil {
				return err
			}
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			s, err := newSession(cfg, false)
			if err != nil {
				return err
			}
			return s.RunTask(cmd.Context(), func(ctx context.Context) error {
				p, err := s.orchestrator(cmd).Plan(ctx)
				if err != nil {
					return err
				}
				return plan.Render(cmd.OutOrStdout(), p, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", plan.FormatText, "output format: "+strings.Join(plan.Formats, ", "))
	return cmd
}

func newLeavesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "leaves",
		Short: "Print the units that depend on nothing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			s, err := newSession(cfg, false)
			if err != nil {
				return err
			}
			return s.RunTask(cmd.Context(), func(ctx context.Context) error {
				leaves, err := s.orchestrator(cmd).Leaves(ctx)
				if err != nil {
					return err
				}
				for _, dir := range leaves {
					fmt.Fprintln(cmd.OutOrStdout(), dir)
				}
				return nil
			})
		},
	}
}

type buildFlags struct {
	workers   int
	onFailure string
	dryRun    bool
	stream    bool
	chdir     bool
	binary    string
	args      []string
	retries   int
	timeout   time.Duration
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the target and everything it depends on",
		Long: `Build every unit reachable from the target, dependencies first.

Each unit's directory is printed on stdout just before its build starts.
With --on-failure=fail-fast (the default) no new unit starts after a
failure; with best-effort every unit not downstream of a failure is built.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg.Build)

			s, err := newSession(cfg, false)
			if err != nil {
				return err
			}
			return s.RunTask(cmd.Context(), func(ctx context.Context) error {
				report, err := s.orchestrator(cmd).Build(ctx)
				if report != nil && report.Result != nil {
					res := report.Result
					fmt.Fprintf(cmd.ErrOrStderr(), "built %d, failed %d, skipped %d in %s (run %s)\n",
						res.Count(dag.StatusSucceeded), res.Count(dag.StatusFailed), res.Count(dag.StatusSkipped),
						res.Duration.Round(time.Millisecond), report.RunID)
				}
				return err
			})
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.workers, "workers", "j", 1, "number of units built at the same time")
	fl.StringVar(&f.onFailure, "on-failure", dag.FailFast, "failure policy: fail-fast or best-effort")
	fl.BoolVarP(&f.dryRun, "dry-run", "n", false, "print the build order without building")
	fl.BoolVar(&f.stream, "stream", false, "copy build tool output to stderr")
	fl.BoolVar(&f.chdir, "chdir", false, "run the build tool inside each unit directory")
	fl.StringVar(&f.binary, "binary", "wmake", "build tool to invoke")
	fl.StringArrayVar(&f.args, "arg", nil, "argument passed to the build tool (repeatable)")
	fl.IntVar(&f.retries, "retries", 0, "extra attempts for a failing build")
	fl.DurationVar(&f.timeout, "timeout", 0, "limit for a single build attempt (0 means none)")
	return cmd
}

// apply copies the flags the user set onto the build config.
func (f *buildFlags) apply(cmd *cobra.Command, cfg *app.BuildConfig) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("on-failure") {
		cfg.OnFailure = f.onFailure
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if flags.Changed("stream") {
		cfg.Stream = f.stream
	}
	if flags.Changed("chdir") {
		cfg.Chdir = f.chdir
	}
	if flags.Changed("binary") {
		cfg.Binary = f.binary
	}
	if flags.Changed("arg") {
		cfg.Args = f.args
	}
	if flags.Changed("retries") {
		cfg.Retries = f.retries
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		limit  int
		runID  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded builds",
		Long: `List the most recent runs from the history ledger, or the unit outcomes
of one run with --run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID != "" {
				if _, err := validation.ValidateUUID("run", runID); err != nil {
					return err
				}
			}
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			// The ledger is usable without a project root.
			if cfg.Project.Root == "" && os.Getenv(cmp.Or(cfg.Project.RootEnv, app.DefaultRootEnv)) == "" {
				cfg.Project.Root = "."
			}
			s, err := newSession(cfg, true)
			if err != nil {
				return err
			}
			return s.RunTask(cmd.Context(), func(ctx context.Context) error {
				out := cmd.OutOrStdout()
				if runID != "" {
					units, err := s.history.Units(ctx, runID)
					if err != nil {
						return err
					}
					if len(units) == 0 {
						return errors.InvalidInput("run", fmt.Sprintf("no units recorded for run %s", runID))
					}
					if asJSON {
						return writeJSON(out, units)
					}
					tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "SEQ\tSTATUS\tWORKER\tDURATION\tUNIT")
					for _, u := range units {
						fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", u.Seq, u.Status, u.Worker, u.Duration, u.Dir)
					}
					return tw.Flush()
				}

				runs, err := s.history.Runs(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, runs)
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tUNITS\tOK\tFAILED\tSKIPPED\tDIGEST")
				for _, r := range runs {
					status := r.Status
					if r.DryRun {
						status += " (dry)"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
						r.ID, r.StartedAt.Format(time.DateTime), status,
						r.Units, r.Succeeded, r.Failed, r.Skipped, shortDigest(r.Digest))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list (0 lists all)")
	cmd.Flags().StringVar(&runID, "run", "", "show the units of this run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetVersionInfo()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
