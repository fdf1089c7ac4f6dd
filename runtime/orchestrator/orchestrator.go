// Package orchestrator drives a full run: parse → lint → plan → (per
// cell) policy → cache → runner → sidecar. It imports the parser, lint,
// planner, policy, cache, runner, and sidecar packages; nothing downstream
// of it imports back up.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/woofnb/woof/core/codes"
	"github.com/woofnb/woof/core/model"
	"github.com/woofnb/woof/runtime/cache"
	"github.com/woofnb/woof/runtime/lint"
	"github.com/woofnb/woof/runtime/parser"
	"github.com/woofnb/woof/runtime/planner"
	"github.com/woofnb/woof/runtime/policy"
	"github.com/woofnb/woof/runtime/runner"
	"github.com/woofnb/woof/runtime/sidecar"
)

// RunnerVersion is the toolchain version hashed into every cache key
// unless WOOF_RUNNER_VERSION overrides it.
const RunnerVersion = "woof-0.1.0"

// CellStatus is the terminal state recorded for one cell.
type CellStatus string

const (
	StatusSuccess            CellStatus = "SUCCESS"
	StatusFailedDeterministic CellStatus = "FAILED-DETERMINISTIC"
	StatusFailedExhausted     CellStatus = "FAILED-EXHAUSTED"
	StatusBlocked             CellStatus = "BLOCKED"
	StatusReplayed            CellStatus = "REPLAYED"
)

// CellResult is the outcome of running, replaying, or blocking one cell.
type CellResult struct {
	CellID  string
	Status  CellStatus
	Outputs []model.Output
}

// Options configures a Run.
type Options struct {
	Selector []string
	NoDeps   bool
	Log      *logrus.Logger
}

// Run executes source (the full notebook text) according to opts and
// returns one CellResult per attempted cell, in execution order. path is
// the notebook's file path, used to derive the cache directory and
// sidecar file.
func Run(ctx context.Context, path, source string, opts Options) ([]CellResult, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	nb, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	nb.Path = path

	diags := lint.Lint(nb)
	if lint.HasError(diags) {
		return nil, fmt.Errorf("lint: %d error-severity diagnostic(s) found, run 'woof lint' for details", countErrors(diags))
	}

	plan, err := planner.Plan(nb, planner.Options{Selector: opts.Selector, NoDeps: opts.NoDeps})
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	graph := nb.Header.View.Execution.Order.Resolved() == model.OrderGraph
	cacheMode := nb.Header.View.Execution.Cache.Resolved()

	store := cache.Open(path)
	sideWriter := sidecar.Open(path)
	pool := runner.NewPool(notebookDir(path))
	defer pool.CloseAll()
	exec := runner.NewRunner()
	runID := uuid.NewString()

	byID := map[string]model.Cell{}
	for _, c := range nb.Cells {
		byID[c.ID] = c
	}

	blocked := map[string]bool{}
	var results []CellResult

	for _, cell := range plan {
		if graph && upstreamBlocked(cell, byID, blocked) {
			outputs := []model.Output{model.ErrorOutput(string(codes.UpstreamFailed), "a dependency of this cell did not succeed", nil)}
			results = append(results, CellResult{CellID: cell.ID, Status: StatusBlocked, Outputs: outputs})
			blocked[cell.ID] = true
			writeSidecar(sideWriter, runID, cell.ID, string(StatusBlocked), outputs, 0, log)
			continue
		}

		decision := policy.Evaluate(cell, nb.Header.View.IOPolicy)
		if !decision.Allowed {
			outputs := []model.Output{model.ErrorOutput(string(codes.PolicyDenied), fmt.Sprintf("capability %q denied by header policy", decision.Denied), nil)}
			results = append(results, CellResult{CellID: cell.ID, Status: StatusBlocked, Outputs: outputs})
			writeSidecar(sideWriter, runID, cell.ID, string(StatusBlocked), outputs, 0, log)
			if !graph {
				blocked[cell.ID] = true
				break
			}
			blocked[cell.ID] = true
			continue
		}

		var deps []model.Cell
		for _, id := range transitiveDeps(cell, byID) {
			deps = append(deps, byID[id])
		}

		var key string
		if cacheMode == model.CacheContentHash {
			runnerVersion := cache.RunnerVersion(RunnerVersion)
			key = cache.Key(cell, nb.Header.View.Language, deps, nb.Header.View.Env, nb.Header.View.Parameters, runnerVersion)
			if entry, ok := store.Lookup(cell.ID, key); ok {
				results = append(results, CellResult{CellID: cell.ID, Status: StatusReplayed, Outputs: entry.Outputs})
				writeSidecar(sideWriter, runID, cell.ID, string(StatusReplayed), entry.Outputs, entry.ElapsedMS, log)
				continue
			}
		}

		sess := sessionFor(pool, cell, nb.Header.View.Language)
		outputs, elapsed, runErr := exec.Execute(ctx, nb.Header.View.Language, cell, nb.Header.View.Defaults, sess)
		if cell.SideEffect.Resolved() == model.SideEffectIsolated {
			_ = sess.Close()
		}

		status := StatusSuccess
		if runErr != nil {
			status = classifyFailure(runErr)
			if !graph && status != StatusSuccess {
				results = append(results, CellResult{CellID: cell.ID, Status: status, Outputs: outputs})
				writeSidecar(sideWriter, runID, cell.ID, string(status), outputs, elapsed.Milliseconds(), log)
				blocked[cell.ID] = true
				break
			}
			blocked[cell.ID] = true
		}

		results = append(results, CellResult{CellID: cell.ID, Status: status, Outputs: outputs})
		writeSidecar(sideWriter, runID, cell.ID, string(status), outputs, elapsed.Milliseconds(), log)

		if runErr == nil && cacheMode == model.CacheContentHash {
			_ = store.Store(model.CacheEntry{
				Key:           key,
				CellID:        cell.ID,
				Outputs:       outputs,
				ElapsedMS:     elapsed.Milliseconds(),
				RunnerVersion: cache.RunnerVersion(RunnerVersion),
			})
		}
	}

	return results, nil
}

// Exit reports the process exit code for a completed run: 0 iff every
// result is SUCCESS or REPLAYED.
func Exit(results []CellResult) int {
	for _, r := range results {
		if r.Status != StatusSuccess && r.Status != StatusReplayed {
			return 1
		}
	}
	return 0
}

// classifyFailure maps a runner.Error's code onto the cell state machine's
// two failure terminals: timeouts and backend crashes are
// transient and, once retries are exhausted, FAILED-EXHAUSTED; everything
// else (assertion, syntax error, policy) is FAILED-DETERMINISTIC.
func classifyFailure(err error) CellStatus {
	var rerr *runner.Error
	if errors.As(err, &rerr) && codes.IsTransient(rerr.Code) {
		return StatusFailedExhausted
	}
	return StatusFailedDeterministic
}

func upstreamBlocked(cell model.Cell, byID map[string]model.Cell, blocked map[string]bool) bool {
	for _, dep := range cell.Deps {
		if blocked[dep] {
			return true
		}
	}
	return false
}

func transitiveDeps(cell model.Cell, byID map[string]model.Cell) []string {
	seen := map[string]bool{}
	var order []string
	var visit func(id string)
	visit = func(id string) {
		c, ok := byID[id]
		if !ok {
			return
		}
		for _, dep := range c.Deps {
			if !seen[dep] {
				seen[dep] = true
				visit(dep)
				order = append(order, dep)
			}
		}
	}
	visit(cell.ID)
	return order
}

func sessionFor(pool *runner.Pool, cell model.Cell, notebookLang string) runner.Session {
	lang := cell.EffectiveLang(notebookLang)
	if cell.SideEffect.Resolved() == model.SideEffectIsolated {
		return pool.Isolated(lang, cell.ID)
	}
	return pool.Shared(lang)
}

func writeSidecar(w *sidecar.Writer, runID, cellID, status string, outputs []model.Output, elapsedMS int64, log *logrus.Logger) {
	err := w.Append(sidecar.Record{
		RunID:     runID,
		Cell:      cellID,
		ElapsedMS: elapsedMS,
		Status:    status,
		Outputs:   outputs,
	})
	if err != nil {
		log.WithError(err).WithField("cell", cellID).Warn("failed to append sidecar record")
	}
}

func countErrors(diags []lint.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == lint.SeverityError {
			n++
		}
	}
	return n
}

func notebookDir(path string) string {
	dir := "."
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			dir = path[:i]
			break
		}
	}
	return dir
}
