package cache_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woofnb/woof/core/model"
	"github.com/woofnb/woof/runtime/cache"
)

func TestKeyIsDeterministic(t *testing.T) {
	cell := model.Cell{ID: "a", Type: model.CellCode, Body: "x=1"}
	k1 := cache.Key(cell, "python", nil, model.Env{}, nil, "v1")
	k2 := cache.Key(cell, "python", nil, model.Env{}, nil, "v1")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64) // hex-encoded sha256
}

func TestKeyChangesWithBody(t *testing.T) {
	a := model.Cell{ID: "a", Type: model.CellCode, Body: "x=1"}
	b := model.Cell{ID: "a", Type: model.CellCode, Body: "x=2"}
	assert.NotEqual(t,
		cache.Key(a, "python", nil, model.Env{}, nil, "v1"),
		cache.Key(b, "python", nil, model.Env{}, nil, "v1"),
	)
}

func TestKeyStableUnderParameterKeyOrder(t *testing.T) {
	cell := model.Cell{ID: "a", Type: model.CellCode, Body: "x=1"}
	p1 := model.Parameters{"alpha": 1, "beta": 2}
	p2 := model.Parameters{"beta": 2, "alpha": 1}
	assert.Equal(t,
		cache.Key(cell, "python", nil, model.Env{}, p1, "v1"),
		cache.Key(cell, "python", nil, model.Env{}, p2, "v1"),
	)
}

func TestKeyIncludesTransitiveDepBodies(t *testing.T) {
	cell := model.Cell{ID: "b", Type: model.CellCode, Body: "y=2"}
	dep1 := model.Cell{ID: "a", Body: "x=1"}
	dep2 := model.Cell{ID: "a", Body: "x=2"}
	assert.NotEqual(t,
		cache.Key(cell, "python", []model.Cell{dep1}, model.Env{}, nil, "v1"),
		cache.Key(cell, "python", []model.Cell{dep2}, model.Env{}, nil, "v1"),
	)
}

func TestStoreLookupRoundTrip(t *testing.T) {
	t.Setenv("WOOF_CACHE_DIR", t.TempDir())
	s := cache.Open(filepath.Join("notebooks", "demo.woofnb"))

	entry := model.CacheEntry{Key: "abc123", CellID: "a", RunnerVersion: "v1"}
	require.NoError(t, s.Store(entry))

	got, ok := s.Lookup("a", "abc123")
	require.True(t, ok)
	assert.Equal(t, entry.CellID, got.CellID)
}

func TestLookupMissOnKeyMismatch(t *testing.T) {
	t.Setenv("WOOF_CACHE_DIR", t.TempDir())
	s := cache.Open("demo.woofnb")

	require.NoError(t, s.Store(model.CacheEntry{Key: "old", CellID: "a"}))

	_, ok := s.Lookup("a", "new")
	assert.False(t, ok)
}

func TestLookupMissOnMissingFile(t *testing.T) {
	t.Setenv("WOOF_CACHE_DIR", t.TempDir())
	s := cache.Open("demo.woofnb")

	_, ok := s.Lookup("nope", "anything")
	assert.False(t, ok)
}

func TestCleanRemovesDirectory(t *testing.T) {
	t.Setenv("WOOF_CACHE_DIR", t.TempDir())
	s := cache.Open("demo.woofnb")
	require.NoError(t, s.Store(model.CacheEntry{Key: "k", CellID: "a"}))

	require.NoError(t, s.Clean())
	_, ok := s.Lookup("a", "k")
	assert.False(t, ok)
}

func TestRunnerVersionEnvOverride(t *testing.T) {
	t.Setenv("WOOF_RUNNER_VERSION", "pinned")
	assert.Equal(t, "pinned", cache.RunnerVersion("v1"))
}

func TestRunnerVersionFallback(t *testing.T) {
	assert.Equal(t, "v1", cache.RunnerVersion("v1"))
}
