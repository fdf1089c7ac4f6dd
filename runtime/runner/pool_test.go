package runner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/woofnb/woof/runtime/runner"
)

func TestPoolSharedReusesSession(t *testing.T) {
	pool := runner.NewPool(t.TempDir())

	a := pool.Shared("python")
	b := pool.Shared("python")
	assert.Same(t, a, b)

	c := pool.Shared("bash")
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestPoolIsolatedAlwaysDistinct(t *testing.T) {
	pool := runner.NewPool(t.TempDir())

	a := pool.Isolated("python", "c1")
	b := pool.Isolated("python", "c1")
	assert.NotSame(t, a, b)
}
