package lint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woofnb/woof/core/codes"
	"github.com/woofnb/woof/core/model"
	"github.com/woofnb/woof/runtime/lint"
	"github.com/woofnb/woof/runtime/parser"
)

func mustParse(t *testing.T, src string) *model.Notebook {
	t.Helper()
	nb, err := parser.Parse(src)
	require.NoError(t, err)
	return nb
}

func TestLintCleanNotebookHasNoErrors(t *testing.T) {
	nb := mustParse(t, "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=a type=code\nbody\n```\n")
	diags := lint.Lint(nb)
	assert.False(t, lint.HasError(diags))
}

func TestLintMissingDep(t *testing.T) {
	nb := mustParse(t, "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=a type=code deps=ghost\nbody\n```\n")
	diags := lint.Lint(nb)
	require.True(t, lint.HasError(diags))

	found := false
	for _, d := range diags {
		if d.Code == codes.MissingDep {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintDuplicateCellID(t *testing.T) {
	nb := mustParse(t, "%WOOFNB 1.0\nname: rt\nlanguage: python\n"+
		"```cell id=a type=code\nbody\n```\n"+
		"```cell id=a type=code\nbody\n```\n")
	diags := lint.Lint(nb)

	found := false
	for _, d := range diags {
		if d.Code == codes.DuplicateCellId {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintCycleUnderGraphOrder(t *testing.T) {
	nb := mustParse(t, "%WOOFNB 1.0\nname: rt\nlanguage: python\nexecution:\n  order: graph\n"+
		"```cell id=a type=code deps=b\nbody\n```\n"+
		"```cell id=b type=code deps=a\nbody\n```\n")
	diags := lint.Lint(nb)

	found := false
	for _, d := range diags {
		if d.Code == codes.Cycle {
			found = true
			assert.Contains(t, d.Message, "a")
			assert.Contains(t, d.Message, "b")
		}
	}
	assert.True(t, found)
}

func TestLintShellSidefxOnNonBashIsError(t *testing.T) {
	nb := mustParse(t, "%WOOFNB 1.0\nname: rt\nlanguage: python\nio_policy:\n  allow_shell: true\n"+
		"```cell id=a type=code sidefx=shell\nbody\n```\n")
	diags := lint.Lint(nb)
	assert.True(t, lint.HasError(diags))
}

func TestLintNetSidefxWithoutAllowIsWarningNotError(t *testing.T) {
	nb := mustParse(t, "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=a type=code sidefx=net\nbody\n```\n")
	diags := lint.Lint(nb)
	assert.False(t, lint.HasError(diags))
	assert.NotEmpty(t, diags)
}

func TestLintUnknownTokenIsWarning(t *testing.T) {
	nb := mustParse(t, "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=a type=code future=yes\nbody\n```\n")
	diags := lint.Lint(nb)
	assert.False(t, lint.HasError(diags))

	found := false
	for _, d := range diags {
		if d.Code == codes.UnknownToken {
			found = true
		}
	}
	assert.True(t, found)
}
