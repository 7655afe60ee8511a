package process

import (
	"bytes"
	"time"
)

// Result holds the output and status of a completed subprocess.
type Result struct {
	// Stdout is the captured standard output (tail only, see Command.MaxOutput).
	Stdout []byte
	// Stderr is the captured standard error (tail only).
	Stderr []byte
	// Truncated is true when older output was dropped from either stream.
	Truncated bool
	// ExitCode is the process exit code. -1 if the process was killed or never started.
	ExitCode int
	// Duration is how long the process ran.
	Duration time.Duration
	// Attempts is how many times the command was started (set by Runner).
	Attempts int
}

// Tail returns the last n lines of stderr, or of stdout when stderr is empty.
func (r *Result) Tail(n int) string {
	if r == nil || n <= 0 {
		return ""
	}
	out := bytes.TrimRight(r.Stderr, "\n")
	if len(out) == 0 {
		out = bytes.TrimRight(r.Stdout, "\n")
	}
	lines := bytes.Split(out, []byte("\n"))
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return string(bytes.Join(lines, []byte("\n")))
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf       []byte
	max       int
	truncated bool
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.max {
		t.truncated = t.truncated || len(t.buf) > 0 || len(p) > t.max
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + len(p) - t.max; over > 0 {
		t.truncated = true
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) Bytes() []byte { return t.buf }
