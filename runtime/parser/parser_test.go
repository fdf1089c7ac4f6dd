package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woofnb/woof/core/model"
	"github.com/woofnb/woof/runtime/parser"
)

func TestParseMinimalNotebook(t *testing.T) {
	src := "%WOOFNB 1.0\n" +
		"name: rt\n" +
		"language: python\n" +
		"```cell id=a type=code\n" +
		"x=1\n" +
		"```\n"

	nb, err := parser.Parse(src)
	require.NoError(t, err)

	assert.Equal(t, "1.0", nb.Header.MagicVersion)
	assert.Equal(t, "rt", nb.Header.View.Name)
	assert.Equal(t, "python", nb.Header.View.Language)

	require.Len(t, nb.Cells, 1)
	cell := nb.Cells[0]
	assert.Equal(t, "a", cell.ID)
	assert.Equal(t, model.CellCode, cell.Type)
	assert.Equal(t, "x=1\n", cell.Body)
}

func TestParseMissingMagic(t *testing.T) {
	_, err := parser.Parse("name: rt\nlanguage: python\n")
	require.Error(t, err)

	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "MissingMagic", string(perr.Code))
}

func TestParseUnsupportedVersion(t *testing.T) {
	_, err := parser.Parse("%WOOFNB 2.0\nname: rt\nlanguage: python\n")
	require.Error(t, err)

	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "UnsupportedVersion", string(perr.Code))
}

func TestParseUnterminatedCell(t *testing.T) {
	src := "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=a type=code\nx=1\n"

	_, err := parser.Parse(src)
	require.Error(t, err)

	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "UnterminatedCell", string(perr.Code))
}

func TestParseDuplicateToken(t *testing.T) {
	src := "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=a id=b type=code\nbody\n```\n"

	_, err := parser.Parse(src)
	require.Error(t, err)

	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "DuplicateToken", string(perr.Code))
}

func TestParseQuotedValueWithSpace(t *testing.T) {
	src := "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=a type=code name=\"my cell\"\nbody\n```\n"

	nb, err := parser.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "my cell", nb.Cells[0].Name)
}

func TestParseDepsAndTagsMultiValue(t *testing.T) {
	src := "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=b type=code deps=a,c tags=x,,y\nbody\n```\n"

	nb, err := parser.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, nb.Cells[0].Deps)
	assert.Equal(t, []string{"x", "y"}, nb.Cells[0].Tags)
}

func TestParseEmptyBody(t *testing.T) {
	src := "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=a type=code\n```\n"

	nb, err := parser.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "", nb.Cells[0].Body)
}

func TestParseUnknownTokenPreserved(t *testing.T) {
	src := "%WOOFNB 1.0\nname: rt\nlanguage: python\n```cell id=a type=code future=yes\nbody\n```\n"

	nb, err := parser.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "yes", nb.Cells[0].UnknownTokens["future"])
	assert.Equal(t, []string{"future"}, nb.Cells[0].UnknownOrder)
}

func TestParseMultipleCellsPreservesOrder(t *testing.T) {
	src := "%WOOFNB 1.0\nname: rt\nlanguage: python\n" +
		"```cell id=a type=code\nbody-a\n```\n" +
		"```cell id=b type=code deps=a\nbody-b\n```\n"

	nb, err := parser.Parse(src)
	require.NoError(t, err)
	require.Len(t, nb.Cells, 2)
	assert.Equal(t, "a", nb.Cells[0].ID)
	assert.Equal(t, "b", nb.Cells[1].ID)
	assert.Equal(t, []string{"a"}, nb.Cells[1].Deps)
}
