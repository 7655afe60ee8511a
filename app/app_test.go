package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/wmorder/dag"
	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/history"
	"github.com/kbukum/wmorder/testutil"
	"github.com/kbukum/wmorder/unit"
)

// newConfig searches root and starts from root.
func newConfig(t *testing.T, root string) *Config {
	t.Helper()
	cfg := &Config{Project: ProjectConfig{Root: root, Target: root}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestConfigDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv(DefaultRootEnv, root)

	cfg := &Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Name != ServiceName {
		t.Errorf("expected name %q, got %q", ServiceName, cfg.Name)
	}
	if cfg.Project.Root != root {
		t.Errorf("expected root from $%s, got %q", DefaultRootEnv, cfg.Project.Root)
	}
	if cfg.Project.Target != "." {
		t.Errorf("expected the current directory as target, got %q", cfg.Project.Target)
	}
	if cfg.Build.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", cfg.Build.Workers)
	}
	if cfg.Build.OnFailure != dag.FailFast {
		t.Errorf("expected fail-fast, got %q", cfg.Build.OnFailure)
	}
	if cfg.Build.Binary != "wmake" {
		t.Errorf("expected wmake binary, got %q", cfg.Build.Binary)
	}
	if cfg.Resolve.OnUnresolved != dag.UnresolvedWarn || cfg.Resolve.OnAmbiguous != dag.AmbiguousFirst {
		t.Errorf("unexpected resolve defaults %+v", cfg.Resolve)
	}
	if cfg.Locate.Pattern == "" {
		t.Error("expected a default locate pattern")
	}
}

func TestConfigRootEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("FOAM_SRC", root)

	cfg := &Config{Project: ProjectConfig{RootEnv: "FOAM_SRC"}}
	cfg.ApplyDefaults()
	if cfg.Project.Root != root {
		t.Errorf("expected root from $FOAM_SRC, got %q", cfg.Project.Root)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		code   errors.ErrorCode
		field  string
	}{
		{"missing root", func(c *Config) { c.Project.Root = "" }, errors.ErrCodeMissingField, "project.root"},
		{"root is a file", func(c *Config) { c.Project.Root = file }, errors.ErrCodeInvalidInput, "project.root"},
		{"missing target", func(c *Config) { c.Project.Target = filepath.Join(dir, "nope") }, errors.ErrCodeInvalidInput, "project.target"},
		{"zero workers", func(c *Config) { c.Build.Workers = -1 }, errors.ErrCodeInvalidInput, "build.workers"},
		{"bad failure policy", func(c *Config) { c.Build.OnFailure = "sometimes" }, errors.ErrCodeInvalidInput, "build.on_failure"},
		{"bad resolve policy", func(c *Config) { c.Resolve.OnAmbiguous = "last" }, errors.ErrCodeInvalidInput, "resolve.on_ambiguous"},
		{"pattern misses descriptors", func(c *Config) { c.Locate.Pattern = "**/Make/options" }, errors.ErrCodeInvalidInput, "locate.pattern"},
		{"too many retries", func(c *Config) { c.Build.Retries = 11 }, errors.ErrCodeInvalidInput, "build.retries"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(DefaultRootEnv, "")
			cfg := &Config{Project: ProjectConfig{Root: dir}}
			cfg.ApplyDefaults()
			tc.mutate(cfg)

			err := cfg.Validate()
			if !errors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("expected %q in %q", tc.field, err.Error())
			}
			if errors.ExitCode(err) != errors.ExitUsage {
				t.Errorf("expected usage exit code, got %d", errors.ExitCode(err))
			}
		})
	}
}

func TestPlan(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Chain)
	o := NewOrchestrator(newConfig(t, root), WithInvoker(dag.Noop))

	p, err := o.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := testutil.Dirs(root, "bar", "foo", ".")
	if diff := cmp.Diff(want, p.Dirs()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if p.Digest == "" {
		t.Error("expected a digest")
	}
}

func TestLeaves(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Chain)
	o := NewOrchestrator(newConfig(t, root), WithInvoker(dag.Noop))

	leaves, err := o.Leaves(context.Background())
	if err != nil {
		t.Fatalf("Leaves: %v", err)
	}
	if diff := cmp.Diff([]string{filepath.Join(root, "bar")}, leaves); diff != "" {
		t.Errorf("leaves mismatch (-want +got):\n%s", diff)
	}
}

func TestTargetSubtree(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Chain)
	cfg := &Config{Project: ProjectConfig{Root: root, Target: filepath.Join(root, "foo")}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	p, err := NewOrchestrator(cfg, WithInvoker(dag.Noop)).Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{filepath.Join(root, "bar"), filepath.Join(root, "foo")}
	if diff := cmp.Diff(want, p.Dirs()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFromUnitBelowRoot(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Project)
	t.Setenv(DefaultRootEnv, root)
	t.Chdir(filepath.Join(root, "applications", "solver"))

	cfg := &Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	rec := &testutil.Recorder{}
	var stdout bytes.Buffer
	if _, err := NewOrchestrator(cfg, WithInvoker(rec), WithOutput(&stdout, &bytes.Buffer{})).Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := testutil.Dirs(root, "src/foo", "applications/solver")
	if diff := cmp.Diff(want, lines(stdout.String())); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, rec.Built()); diff != "" {
		t.Errorf("build order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPrintsOrderAndRecordsHistory(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Chain)
	ctx := context.Background()

	store := history.New(filepath.Join(t.TempDir(), "history.db"))
	testutil.T(t).Setup(store)

	rec := &testutil.Recorder{}
	var stdout, stderr bytes.Buffer
	o := NewOrchestrator(newConfig(t, root),
		WithInvoker(rec),
		WithHistory(store),
		WithOutput(&stdout, &stderr),
	)

	report, err := o.Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := testutil.Dirs(root, "bar", "foo", ".")
	if diff := cmp.Diff(want, rec.Built()); diff != "" {
		t.Errorf("build order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, lines(stdout.String())); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}

	runs, err := store.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != report.RunID || got.Status != history.RunSucceeded || got.Succeeded != 3 || got.Digest != report.Plan.Digest {
		t.Errorf("unexpected run %+v", got)
	}

	units, err := store.Units(ctx, report.RunID)
	if err != nil {
		t.Fatalf("Units: %v", err)
	}
	var dirs []string
	for _, u := range units {
		dirs = append(dirs, u.Dir)
	}
	if diff := cmp.Diff(want, dirs); diff != "" {
		t.Errorf("recorded units mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFailureSkipsDependents(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Chain)
	ctx := context.Background()

	store := history.New(filepath.Join(t.TempDir(), "history.db"))
	testutil.T(t).Setup(store)

	rec := &testutil.Recorder{Fail: map[string]error{
		"foo": errors.BuildFailure(filepath.Join(root, "foo"), 2, fmt.Errorf("exit status 2")),
	}}
	var stdout bytes.Buffer
	o := NewOrchestrator(newConfig(t, root), WithInvoker(rec), WithHistory(store), WithOutput(&stdout, &bytes.Buffer{}))

	report, err := o.Build(ctx)
	if !errors.IsCode(err, errors.ErrCodeBuildFailure) {
		t.Fatalf("expected BUILD_FAILURE, got %v", err)
	}
	if errors.ExitCode(err) != errors.ExitBuild {
		t.Errorf("expected build exit code, got %d", errors.ExitCode(err))
	}
	if report.Result.Count(dag.StatusSkipped) != 1 {
		t.Errorf("expected root to be skipped, got %+v", report.Result.Units)
	}
	if diff := cmp.Diff([]string{filepath.Join(root, "bar"), filepath.Join(root, "foo")}, lines(stdout.String())); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}

	runs, err := store.Runs(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].Status != history.RunFailed || runs[0].Failed != 1 || runs[0].Skipped != 1 {
		t.Errorf("unexpected run %+v", runs[0])
	}
}

func TestBuildDryRun(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Chain)
	cfg := newConfig(t, root)
	cfg.Build.DryRun = true

	rec := &testutil.Recorder{}
	var stdout bytes.Buffer
	report, err := NewOrchestrator(cfg, WithInvoker(rec), WithOutput(&stdout, &bytes.Buffer{})).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rec.Built()) != 0 {
		t.Errorf("dry run invoked the build tool for %v", rec.Built())
	}
	if report.Result != nil {
		t.Error("expected no scheduler result for a dry run")
	}
	want := testutil.Dirs(root, "bar", "foo", ".")
	if diff := cmp.Diff(want, lines(stdout.String())); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCycle(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Cycle)
	rec := &testutil.Recorder{}
	_, err := NewOrchestrator(newConfig(t, root), WithInvoker(rec), WithOutput(&bytes.Buffer{}, &bytes.Buffer{})).Build(context.Background())
	if !errors.IsCode(err, errors.ErrCodeCyclicDependency) {
		t.Fatalf("expected CYCLIC_DEPENDENCY, got %v", err)
	}
	if errors.ExitCode(err) != errors.ExitGraph {
		t.Errorf("expected graph exit code, got %d", errors.ExitCode(err))
	}
	if len(rec.Built()) != 0 {
		t.Errorf("nothing should build on a cycle, got %v", rec.Built())
	}
}

func TestBuildMissingTargetDescriptor(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Tree{
		"lib/Make/files": "a.C\n\nLIB = $(FOAM_LIBBIN)/liba\n",
	})
	_, err := NewOrchestrator(newConfig(t, root), WithInvoker(dag.Noop)).Build(context.Background())
	if !errors.IsCode(err, errors.ErrCodeMissingDescriptor) {
		t.Fatalf("expected MISSING_DESCRIPTOR, got %v", err)
	}
}

func TestBuildCanceled(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Chain)
	ctx, cancel := context.WithCancel(context.Background())
	inv := dag.InvokerFunc(func(ctx context.Context, u unit.Unit) error {
		cancel()
		return nil
	})

	_, err := NewOrchestrator(newConfig(t, root), WithInvoker(inv), WithOutput(&bytes.Buffer{}, &bytes.Buffer{})).Build(ctx)
	if !errors.IsCode(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if errors.ExitCode(err) != errors.ExitInterrupted {
		t.Errorf("expected interrupted exit code, got %d", errors.ExitCode(err))
	}
}
