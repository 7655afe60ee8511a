package wmake

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/logger"
	"github.com/kbukum/wmorder/unit"
)

func shell(script string) Config {
	return Config{Binary: "/bin/sh", Args: []string{"-c", script, "wmake"}}
}

func testUnit(t *testing.T) unit.Unit {
	t.Helper()
	return unit.Unit{Dir: t.TempDir(), Kind: unit.Library, Output: "libfoo"}
}

func TestCommand(t *testing.T) {
	u := unit.Unit{Dir: "/src/foo", Kind: unit.Library, Output: "libfoo"}

	tests := []struct {
		name     string
		cfg      Config
		wantArgs []string
		wantDir  string
	}{
		{"default", Config{}, []string{"/src/foo"}, ""},
		{"args", Config{Args: []string{"-j4"}}, []string{"-j4", "/src/foo"}, ""},
		{"chdir", Config{Args: []string{"-j4"}, Chdir: true}, []string{"-j4"}, "/src/foo"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := New(tc.cfg, WithLogger(logger.NewNop())).Command(u)
			if cmd.Binary != DefaultBinary {
				t.Errorf("expected binary %q, got %q", DefaultBinary, cmd.Binary)
			}
			if diff := cmp.Diff(tc.wantArgs, cmd.Args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
			if cmd.Dir != tc.wantDir {
				t.Errorf("expected dir %q, got %q", tc.wantDir, cmd.Dir)
			}
		})
	}
}

func TestCommandDoesNotAliasArgs(t *testing.T) {
	inv := New(Config{Args: make([]string, 1, 4)})
	a := inv.Command(unit.Unit{Dir: "/a"})
	b := inv.Command(unit.Unit{Dir: "/b"})
	if a.Args[1] != "/a" || b.Args[1] != "/b" {
		t.Errorf("commands share argument storage: %v %v", a.Args, b.Args)
	}
}

func TestInvokeSuccessStreamsOutput(t *testing.T) {
	u := testUnit(t)
	var out bytes.Buffer
	inv := New(shell(`echo "building $1"`), WithStream(&out))

	if err := inv.Invoke(context.Background(), u); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(out.String(), "building "+u.Dir) {
		t.Errorf("expected streamed output, got %q", out.String())
	}
}

func TestInvokeChdir(t *testing.T) {
	u := testUnit(t)
	var out bytes.Buffer
	cfg := Config{Binary: "/bin/sh", Args: []string{"-c", "pwd"}, Chdir: true}

	if err := New(cfg, WithStream(&out)).Invoke(context.Background(), u); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(out.String(), filepath.Base(u.Dir)) {
		t.Errorf("expected build to run in %s, got %q", u.Dir, out.String())
	}
}

func TestInvokeFailure(t *testing.T) {
	u := testUnit(t)
	inv := New(shell(`echo "no rule to make libfoo" >&2; exit 3`))

	err := inv.Invoke(context.Background(), u)
	if !errors.IsCode(err, errors.ErrCodeBuildFailure) {
		t.Fatalf("expected BUILD_FAILURE, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["exit_code"] != 3 {
		t.Errorf("expected exit code 3, got %v", appErr.Details["exit_code"])
	}
	if appErr.Details["unit"] != u.Dir {
		t.Errorf("expected unit detail, got %v", appErr.Details["unit"])
	}
	if out, _ := appErr.Details["output"].(string); !strings.Contains(out, "no rule to make libfoo") {
		t.Errorf("expected output tail in details, got %q", out)
	}
	if appErr.Details["attempts"] != 1 {
		t.Errorf("expected a single attempt, got %v", appErr.Details["attempts"])
	}
}

func TestInvokeRetries(t *testing.T) {
	u := testUnit(t)
	cfg := shell(`if [ -f "$1/.tried" ]; then exit 0; fi; touch "$1/.tried"; exit 1`)
	cfg.Retries = 1

	if err := New(cfg).Invoke(context.Background(), u); err != nil {
		t.Fatalf("expected second attempt to succeed, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(u.Dir, ".tried")); err != nil {
		t.Errorf("expected first attempt to leave a marker: %v", err)
	}
}

func TestInvokeTimeout(t *testing.T) {
	u := testUnit(t)
	cfg := shell(`sleep 5`)
	cfg.Timeout = 100 * time.Millisecond
	cfg.GracePeriod = 100 * time.Millisecond

	start := time.Now()
	err := New(cfg).Invoke(context.Background(), u)
	if !errors.IsCode(err, errors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("timeout did not stop the build promptly")
	}
}

func TestInvokeCanceled(t *testing.T) {
	u := testUnit(t)
	cfg := shell(`sleep 5`)
	cfg.GracePeriod = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := New(cfg).Invoke(ctx, u)
	if !errors.IsCode(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if errors.ExitCode(err) != errors.ExitInterrupted {
		t.Errorf("expected interrupted exit code, got %d", errors.ExitCode(err))
	}
}

func TestInvokeMissingBinary(t *testing.T) {
	u := testUnit(t)
	cfg := Config{Binary: "wmorder-no-such-wmake", Retries: 2}

	err := New(cfg).Invoke(context.Background(), u)
	if !errors.IsCode(err, errors.ErrCodeBuildFailure) {
		t.Fatalf("expected BUILD_FAILURE, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["exit_code"] != -1 {
		t.Errorf("expected exit code -1, got %v", appErr.Details["exit_code"])
	}
	if appErr.Details["attempts"] != 1 {
		t.Errorf("a missing binary must not be retried, got %v attempts", appErr.Details["attempts"])
	}
}
