package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woofnb/woof/core/codes"
	"github.com/woofnb/woof/core/model"
	"github.com/woofnb/woof/runtime/runner"
)

func TestRunnerExecuteStreamsStdout(t *testing.T) {
	r := runner.NewRunner()
	pool := runner.NewPool(t.TempDir())
	sess := pool.Shared("sh")

	cell := model.Cell{ID: "c1", Lang: "sh", Body: "echo one\necho two\n"}

	outputs, _, err := r.Execute(context.Background(), "sh", cell, model.Defaults{}, sess)
	require.NoError(t, err)

	require.Len(t, outputs, 2)
	assert.Equal(t, model.OutputStream, outputs[0].Kind)
	assert.Equal(t, "one\n", outputs[0].Text)
	assert.Equal(t, "two\n", outputs[1].Text)
}

func TestRunnerExecuteNonZeroExitProducesErrorOutput(t *testing.T) {
	r := runner.NewRunner()
	pool := runner.NewPool(t.TempDir())
	sess := pool.Shared("sh")

	cell := model.Cell{ID: "c1", Lang: "sh", Body: "exit 3\n"}

	outputs, _, err := r.Execute(context.Background(), "sh", cell, model.Defaults{}, sess)
	require.Error(t, err)

	var rerr *runner.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, codes.Runtime, rerr.Code)

	require.NotEmpty(t, outputs)
	assert.Equal(t, model.OutputError, outputs[len(outputs)-1].Kind)
}

func TestRunnerExecuteUnsupportedLanguage(t *testing.T) {
	r := runner.NewRunner()
	pool := runner.NewPool(t.TempDir())
	sess := pool.Shared("cobol")

	cell := model.Cell{ID: "c1", Lang: "cobol", Body: "DISPLAY 'HI'."}

	_, _, err := r.Execute(context.Background(), "cobol", cell, model.Defaults{}, sess)
	require.Error(t, err)

	var rerr *runner.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, codes.BackendCrashed, rerr.Code)
}

func TestRunnerExecuteDeterministicFailureIsNotRetried(t *testing.T) {
	r := runner.NewRunner()
	dir := t.TempDir()
	pool := runner.NewPool(dir)
	sess := pool.Shared("sh")

	// A non-zero exit is deterministic: Retries is ignored and only one
	// attempt is made. Each attempt appends one line to attempts.log in
	// the session's working directory.
	cell := model.Cell{ID: "c1", Lang: "sh", Body: "echo run >> attempts.log\nexit 1\n", Retries: 2}

	_, _, err := r.Execute(context.Background(), "sh", cell, model.Defaults{}, sess)
	require.Error(t, err)
	var rerr *runner.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, codes.Runtime, rerr.Code)

	attempts, err := os.ReadFile(filepath.Join(dir, "attempts.log"))
	require.NoError(t, err)
	assert.Equal(t, "run\n", string(attempts))
}

func TestRunnerExecuteTimeoutRetriesWithBackoff(t *testing.T) {
	r := runner.NewRunner()
	pool := runner.NewPool(t.TempDir())
	sess := pool.Shared("sh")

	timeout := 1
	cell := model.Cell{ID: "c1", Lang: "sh", Body: "sleep 5\n", TimeoutSec: &timeout, Retries: 1}

	_, elapsed, err := r.Execute(context.Background(), "sh", cell, model.Defaults{}, sess)

	require.Error(t, err)
	var rerr *runner.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, codes.Timeout, rerr.Code)
	// The reported elapsed time covers both timed-out attempts (1s each)
	// plus the 100ms backoff between them, not just the final attempt.
	assert.GreaterOrEqual(t, elapsed, 2*time.Second+100*time.Millisecond)
}

func TestRunnerExecuteDataCellParsesJSON(t *testing.T) {
	r := runner.NewRunner()
	pool := runner.NewPool(t.TempDir())
	sess := pool.Shared("sh")

	cell := model.Cell{ID: "cfg", Type: model.CellData, Body: `{"retries": 3}`}

	outputs, _, err := r.Execute(context.Background(), "sh", cell, model.Defaults{}, sess)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, model.OutputExecuteResult, outputs[0].Kind)
	assert.Contains(t, outputs[0].Repr, "retries")
}

func TestRunnerExecuteDataCellFallsBackToYAML(t *testing.T) {
	r := runner.NewRunner()
	pool := runner.NewPool(t.TempDir())
	sess := pool.Shared("sh")

	cell := model.Cell{ID: "cfg", Type: model.CellData, Body: "retries: 3\nname: demo\n"}

	outputs, _, err := r.Execute(context.Background(), "sh", cell, model.Defaults{}, sess)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, model.OutputExecuteResult, outputs[0].Kind)
	assert.Contains(t, outputs[0].Repr, "demo")
}

func TestRunnerExecuteDataCellInvalidBodyIsDeterministicError(t *testing.T) {
	r := runner.NewRunner()
	pool := runner.NewPool(t.TempDir())
	sess := pool.Shared("sh")

	cell := model.Cell{ID: "cfg", Type: model.CellData, Body: "not: valid: yaml: or: json: ["}

	_, _, err := r.Execute(context.Background(), "sh", cell, model.Defaults{}, sess)
	require.Error(t, err)
	var rerr *runner.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, codes.InvalidDataBody, rerr.Code)
}

func TestRunnerExecuteTimeout(t *testing.T) {
	r := runner.NewRunner()
	pool := runner.NewPool(t.TempDir())
	sess := pool.Shared("sh")

	timeout := 1
	cell := model.Cell{ID: "c1", Lang: "sh", Body: "sleep 5\n", TimeoutSec: &timeout}

	_, _, err := r.Execute(context.Background(), "sh", cell, model.Defaults{}, sess)
	require.Error(t, err)
	var rerr *runner.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, codes.Timeout, rerr.Code)
}
