// Package formatter re-emits a *model.Notebook as source text, either
// losslessly (Serialize) or canonically (Format). Both share the same
// cell-body emission; they differ only in header re-encoding and
// cell-header token emission.
package formatter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/woofnb/woof/core/model"
	"github.com/woofnb/woof/core/yamlheader"
)

// bareValue reports whether v can be emitted unquoted as a cell-header
// token value.
func bareValue(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '.' || r == ',' || r == ':' || r == '/' || r == '@' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// quote renders v as a double-quoted token value, escaping `"` and `\`.
func quote(v string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range v {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// renderValue emits v bare if possible, quoted otherwise.
func renderValue(v string) string {
	if bareValue(v) {
		return v
	}
	return quote(v)
}

// Serialize re-emits notebook byte-for-byte equivalent to its source
// whenever the caller has not mutated it: the header is re-emitted from
// Header.Raw and each cell's tokens from Cell.HeaderTokensRaw.
func Serialize(nb *model.Notebook) string {
	var b strings.Builder
	writeHeaderRaw(&b, nb.Header.Raw)
	for _, cell := range nb.Cells {
		writeCell(&b, cell, cell.HeaderTokensRaw)
	}
	return b.String()
}

// Format re-emits notebook canonically: the header in canonical YAML key
// order and every cell's tokens in canonical order, regardless of what was
// originally present. Format is idempotent:
// Format(Parse(Format(x))) == Format(x).
func Format(nb *model.Notebook) (string, error) {
	var b strings.Builder

	b.WriteString("%WOOFNB ")
	b.WriteString(magicVersionOrDefault(nb.Header.MagicVersion))
	b.WriteByte('\n')

	headerYAML, err := yamlheader.Encode(nb.Header.View)
	if err != nil {
		return "", err
	}
	b.WriteString(headerYAML)

	for _, cell := range nb.Cells {
		writeCell(&b, cell, canonicalTokens(cell))
	}

	return b.String(), nil
}

func magicVersionOrDefault(v string) string {
	if v == "" {
		return "1.0"
	}
	return v
}

func writeHeaderRaw(b *strings.Builder, raw string) {
	b.WriteString(raw)
	if !strings.HasSuffix(raw, "\n") {
		b.WriteByte('\n')
	}
}

func writeCell(b *strings.Builder, cell model.Cell, tokens string) {
	b.WriteString("```cell")
	if tokens != "" {
		b.WriteByte(' ')
		b.WriteString(tokens)
	}
	b.WriteByte('\n')
	b.WriteString(cell.Body)
	if cell.Body != "" && !strings.HasSuffix(cell.Body, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("```\n")
}

// canonicalTokens regenerates a cell's header-token string in the order
// mandated by: id, type, name, lang, deps, tags, sidefx,
// timeout, memory_mb, retries, priority, disabled, then unrecognized
// tokens lexicographically.
func canonicalTokens(cell model.Cell) string {
	var parts []string

	add := func(key, value string) {
		parts = append(parts, key+"="+renderValue(value))
	}
	addFlag := func(key string, value bool) {
		if value {
			parts = append(parts, key)
		}
	}

	if cell.ID != "" {
		add("id", cell.ID)
	}
	add("type", string(cell.Type))
	if cell.Name != "" {
		add("name", cell.Name)
	}
	if cell.Lang != "" {
		add("lang", cell.Lang)
	}
	if len(cell.Deps) > 0 {
		add("deps", strings.Join(cell.Deps, ","))
	}
	if len(cell.Tags) > 0 {
		add("tags", strings.Join(cell.Tags, ","))
	}
	if cell.SideEffect != "" && cell.SideEffect != model.SideEffectNone {
		add("sidefx", string(cell.SideEffect))
	}
	if cell.TimeoutSec != nil {
		add("timeout", strconv.Itoa(*cell.TimeoutSec))
	}
	if cell.MemoryMB != nil {
		add("memory_mb", strconv.Itoa(*cell.MemoryMB))
	}
	if cell.Retries != 0 {
		add("retries", strconv.Itoa(cell.Retries))
	}
	if cell.Priority != 0 {
		add("priority", strconv.Itoa(cell.Priority))
	}
	addFlag("disabled", cell.Disabled)

	keys := make([]string, 0, len(cell.UnknownTokens))
	for k := range cell.UnknownTokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := cell.UnknownTokens[k]
		if v == "true" {
			parts = append(parts, k)
			continue
		}
		add(k, v)
	}

	return strings.Join(parts, " ")
}
