package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/woofnb/woof/core/model"
)

func TestCellTypeExecutable(t *testing.T) {
	assert.True(t, model.CellCode.Executable())
	assert.True(t, model.CellBash.Executable())
	assert.True(t, model.CellData.Executable())
	assert.True(t, model.CellTest.Executable())
	assert.False(t, model.CellMD.Executable())
	assert.False(t, model.CellViz.Executable())
	assert.False(t, model.CellRaw.Executable())
}

func TestEffectiveLang(t *testing.T) {
	c := model.Cell{}
	assert.Equal(t, "python", c.EffectiveLang("python"))

	c.Lang = "bash"
	assert.Equal(t, "bash", c.EffectiveLang("python"))
}

func TestEffectiveTimeout(t *testing.T) {
	c := model.Cell{}
	_, ok := c.EffectiveTimeout(model.Defaults{})
	assert.False(t, ok)

	def := 30
	sec, ok := c.EffectiveTimeout(model.Defaults{TimeoutSec: &def})
	assert.True(t, ok)
	assert.Equal(t, 30, sec)

	override := 5
	c.TimeoutSec = &override
	sec, ok = c.EffectiveTimeout(model.Defaults{TimeoutSec: &def})
	assert.True(t, ok)
	assert.Equal(t, 5, sec)
}

func TestExecutionOrderResolved(t *testing.T) {
	assert.Equal(t, model.OrderLinear, model.ExecutionOrder("").Resolved())
	assert.Equal(t, model.OrderGraph, model.OrderGraph.Resolved())
}

func TestCacheModeResolved(t *testing.T) {
	assert.Equal(t, model.CacheNone, model.CacheMode("").Resolved())
	assert.Equal(t, model.CacheContentHash, model.CacheContentHash.Resolved())
}

func TestNotebookCellByID(t *testing.T) {
	nb := &model.Notebook{Cells: []model.Cell{{ID: "a"}, {ID: "b"}}}

	c, ok := nb.CellByID("b")
	assert.True(t, ok)
	assert.Equal(t, "b", c.ID)

	_, ok = nb.CellByID("missing")
	assert.False(t, ok)
}
