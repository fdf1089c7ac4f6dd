package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/woofnb/woof/core/codes"
	"github.com/woofnb/woof/core/invariant"
	"github.com/woofnb/woof/core/model"
)

// Error is a Runner failure tagged with a stable code, so the
// orchestrator can tell a timeout from a policy denial from a crash without
// string-matching.
type Error struct {
	Code    codes.Code
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// extensions maps a backend language to the file suffix its interpreter
// expects the body file to carry. Backends not listed here get no
// extension, which every interpreter WOOFNB ships tolerates.
var extensions = map[string]string{
	"python": ".py",
	"bash":   ".sh",
	"sh":     ".sh",
}

// Runner executes one cell body against a Session obtained from a Pool.
// It owns the timeout/retry state machine and the stdout/stderr pump:
// the pump is the only place in WOOFNB that runs two goroutines
// concurrently against shared state, and that state is a single
// mutex-guarded output slice, appended to in arrival order.
type Runner struct {
	Backends *Registry
}

// NewRunner builds a Runner against the global backend registry.
func NewRunner() *Runner {
	return &Runner{Backends: Global()}
}

// Execute runs cell's body in sess, retrying up to cell.Retries additional
// times on a transient failure (timeout, backend crash), with 100ms*2^n
// backoff between attempts capped at 5s. Deterministic failures (non-zero
// exit, unsupported language) are never retried. It returns the ordered
// Outputs produced by the attempt that was ultimately returned, plus the
// total wall time spent across every attempt and every backoff wait.
func (r *Runner) Execute(ctx context.Context, notebookLang string, cell model.Cell, defaults model.Defaults, sess Session) ([]model.Output, time.Duration, error) {
	invariant.NotNil(ctx, "ctx")
	invariant.Precondition(cell.ID != "", "cell.ID cannot be empty")

	if cell.Type == model.CellData {
		return r.executeDataCell(cell)
	}

	lang := cell.EffectiveLang(notebookLang)
	backend, ok := r.Backends.Lookup(lang)
	if !ok {
		return nil, 0, &Error{Code: codes.BackendCrashed, Message: unsupportedLanguageError(lang).Error()}
	}

	bodyFile, cleanup, err := writeBodyFile(lang, cell.Body)
	if err != nil {
		return nil, 0, &Error{Code: codes.BackendCrashed, Message: err.Error()}
	}
	defer cleanup()

	argv := backend.Argv(bodyFile)

	attempts := cell.Retries + 1
	var lastOutputs []model.Output
	var lastErr error
	var total time.Duration

	for attempt := 0; attempt < attempts; attempt++ {
		runCtx := ctx
		var cancel context.CancelFunc
		if sec, ok := cell.EffectiveTimeout(defaults); ok {
			runCtx, cancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
		}

		start := time.Now()
		outputs, runErr := r.runOnce(runCtx, sess, argv)
		total += time.Since(start)

		if cancel != nil {
			cancel()
		}

		lastOutputs, lastErr = outputs, runErr
		if runErr == nil {
			return outputs, total, nil
		}
		if ctx.Err() != nil {
			// The caller's own context died (not just this attempt's
			// timeout); retrying cannot help.
			break
		}
		if !isRetryable(runErr) {
			// Deterministic failures (assertion, syntax error, policy
			// denial) are never retried.
			break
		}
		if attempt < attempts-1 {
			backoffStart := time.Now()
			err := sleepBackoff(ctx, attempt)
			total += time.Since(backoffStart)
			if err != nil {
				break
			}
		}
	}

	return lastOutputs, total, lastErr
}

// isRetryable reports whether runErr is a transient (non-deterministic)
// failure: timeout or backend crash. Anything else is deterministic and
// must not be retried.
func isRetryable(runErr error) bool {
	var rerr *Error
	if errors.As(runErr, &rerr) {
		return codes.IsTransient(rerr.Code)
	}
	return false
}

// sleepBackoff waits 100ms * 2^attempt, capped at 5s, before the next retry
// attempt, returning early with ctx.Err() if ctx is canceled first.
func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := 100 * time.Millisecond * time.Duration(1<<uint(attempt))
	const maxBackoff = 5 * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// executeDataCell decodes a data cell's body without spawning a process:
// JSON is tried first, then YAML. A body that is neither is
// InvalidDataBody, deterministic and never retried.
func (r *Runner) executeDataCell(cell model.Cell) ([]model.Output, time.Duration, error) {
	start := time.Now()
	value, err := decodeDataBody(cell.Body)
	elapsed := time.Since(start)
	if err != nil {
		outputs := []model.Output{model.ErrorOutput(string(codes.InvalidDataBody), err.Error(), nil)}
		return outputs, elapsed, &Error{Code: codes.InvalidDataBody, Message: err.Error()}
	}
	return []model.Output{model.ExecuteResultOutput(shortRepr(value))}, elapsed, nil
}

// decodeDataBody parses body as JSON, falling back to YAML, per the
// data cell's "JSON preferred, YAML fallback" contract.
func decodeDataBody(body string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err == nil {
		return v, nil
	}
	if err := yaml.Unmarshal([]byte(body), &v); err == nil {
		return v, nil
	}
	return nil, fmt.Errorf("data cell body is neither valid JSON nor valid YAML")
}

// shortRepr renders a decoded data value as a compact, truncated JSON
// string suitable for an execute_result repr.
func shortRepr(v any) string {
	const maxLen = 200
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	if len(b) > maxLen {
		return string(b[:maxLen]) + "..."
	}
	return string(b)
}

// runOnce runs argv to completion in sess, pumping stdout/stderr into
// model.Output stream entries as they arrive.
func (r *Runner) runOnce(ctx context.Context, sess Session, argv []string) ([]model.Output, error) {
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	var mu sync.Mutex
	var outputs []model.Output

	var pump sync.WaitGroup
	pump.Add(2)
	go pumpLines(&pump, stdoutR, model.StreamStdout, &mu, &outputs)
	go pumpLines(&pump, stderrR, model.StreamStderr, &mu, &outputs)

	result, err := sess.Run(ctx, argv, RunOpts{Stdout: stdoutW, Stderr: stderrW})

	stdoutW.Close()
	stderrW.Close()
	pump.Wait()

	if err != nil {
		if ctx.Err() != nil {
			return outputs, &Error{Code: codes.Timeout, Message: "cell execution timed out or was canceled"}
		}
		return outputs, &Error{Code: codes.BackendCrashed, Message: err.Error()}
	}

	if result.ExitCode != ExitSuccess {
		mu.Lock()
		outputs = append(outputs, model.ErrorOutput(
			"RuntimeError",
			fmt.Sprintf("process exited with code %d", result.ExitCode),
			nil,
		))
		mu.Unlock()
		return outputs, &Error{Code: codes.Runtime, Message: fmt.Sprintf("exit code %d", result.ExitCode)}
	}

	return outputs, nil
}

// pumpLines reads complete lines from r and appends a stream Output for
// each to outputs, under mu, preserving arrival order across both the
// stdout and stderr pumps.
func pumpLines(wg *sync.WaitGroup, r io.Reader, stream model.StreamName, mu *sync.Mutex, outputs *[]model.Output) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text() + "\n"
		mu.Lock()
		*outputs = append(*outputs, model.StreamOutput(stream, line))
		mu.Unlock()
	}
}

// writeBodyFile writes body to a temp file with the extension lang's
// interpreter expects, returning a cleanup func that removes it.
func writeBodyFile(lang, body string) (string, func(), error) {
	ext := extensions[lang]
	f, err := os.CreateTemp("", "woofnb-cell-*"+ext)
	if err != nil {
		return "", func() {}, err
	}
	path := f.Name()

	if _, err := f.WriteString(body); err != nil {
		f.Close()
		os.Remove(path)
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", func() {}, err
	}

	return path, func() { os.Remove(path) }, nil
}
