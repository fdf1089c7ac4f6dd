package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woofnb/woof/runtime/runner"
)

func TestLocalSessionRunCapturesStdout(t *testing.T) {
	sess := runner.NewLocalSession("local:sh", t.TempDir())
	defer sess.Close()

	result, err := sess.Run(context.Background(), []string{"sh", "-c", "echo hello"}, runner.RunOpts{})
	require.NoError(t, err)
	assert.Equal(t, runner.ExitSuccess, result.ExitCode)
	assert.Equal(t, "hello\n", string(result.Stdout))
}

func TestLocalSessionRunNonZeroExit(t *testing.T) {
	sess := runner.NewLocalSession("local:sh", t.TempDir())
	defer sess.Close()

	result, err := sess.Run(context.Background(), []string{"sh", "-c", "exit 7"}, runner.RunOpts{})
	require.NoError(t, err)
	assert.Equal(t, 7, result.ExitCode)
}

func TestLocalSessionRunKillsOnTimeout(t *testing.T) {
	sess := runner.NewLocalSession("local:sh", t.TempDir())
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := sess.Run(ctx, []string{"sh", "-c", "sleep 5"}, runner.RunOpts{})
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Equal(t, runner.ExitCanceled, result.ExitCode)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestLocalSessionID(t *testing.T) {
	sess := runner.NewLocalSession("local:python", t.TempDir())
	defer sess.Close()
	assert.Equal(t, "local:python", sess.ID())
}
