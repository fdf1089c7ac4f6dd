package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/woofnb/woof/core/invariant"
)

// LocalSession runs commands as local OS processes via os/exec. It is the
// only Session implementation WOOFNB ships: the interface exists so a
// sandboxed or remote backend could be added later without touching the
// orchestrator, but remote execution itself is out of scope.
type LocalSession struct {
	id  string
	env map[string]string
	cwd string
}

// NewLocalSession creates a local session that inherits the calling
// process's environment. id is an opaque label used only for logging (e.g.
// "local:python" or "local:bash:isolated:c3").
func NewLocalSession(id, workdir string) *LocalSession {
	invariant.Precondition(id != "", "id cannot be empty")
	return &LocalSession{
		id:  id,
		env: envToMap(os.Environ()),
		cwd: workdir,
	}
}

// Run starts argv as a child process in its own process group (Unix) so
// that a timeout or cancellation can kill the whole subtree, not just the
// immediate child.
func (s *LocalSession) Run(ctx context.Context, argv []string, opts RunOpts) (Result, error) {
	invariant.Precondition(len(argv) > 0, "argv cannot be empty")
	invariant.NotNil(ctx, "ctx")

	cmd := exec.Command(argv[0], argv[1:]...)

	dir := opts.Dir
	if dir == "" {
		dir = s.cwd
	}
	cmd.Dir = dir

	env := mapToEnv(s.env)
	env = append(env, opts.Env...)
	cmd.Env = env

	configureCommandForCancellation(cmd)

	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = teeOrBuffer(opts.Stdout, &stdoutBuf)
	cmd.Stderr = teeOrBuffer(opts.Stderr, &stderrBuf)

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: ExitFailure}, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		terminateCommandOnCancel(cmd)
		<-done
		return Result{
			ExitCode: ExitCanceled,
			Stdout:   stdoutBuf.Bytes(),
			Stderr:   stderrBuf.Bytes(),
		}, ctx.Err()

	case err := <-done:
		exitCode := ExitSuccess
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = ExitFailure
			}
		}
		return Result{
			ExitCode: exitCode,
			Stdout:   stdoutBuf.Bytes(),
			Stderr:   stderrBuf.Bytes(),
		}, nil
	}
}

// ID returns the session's label.
func (s *LocalSession) ID() string { return s.id }

// Close is a no-op: LocalSession holds no resources between Run calls.
func (s *LocalSession) Close() error { return nil }

// teeOrBuffer returns w if the caller supplied one, otherwise buf, so
// Result.Stdout/Stderr is always populated even when the caller also wants
// a live copy of the stream (the eager-pump path in runner.go supplies a
// pipe writer here).
func teeOrBuffer(w io.Writer, buf *bytes.Buffer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(w, buf)
}

func envToMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			m[kv[:idx]] = kv[idx+1:]
		}
	}
	return m
}

func mapToEnv(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}
