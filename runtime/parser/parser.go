// Package parser turns notebook source text into a *model.Notebook. It is
// line-oriented, never regular-expression-driven: the magic line, the
// header block, and each cell fence are all recognized by scanning and
// trimming, matching the rest of the toolchain's preference for explicit
// state over pattern matching.
package parser

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/woofnb/woof/core/codes"
	"github.com/woofnb/woof/core/model"
	"github.com/woofnb/woof/core/yamlheader"
)

// magicPrefix is the literal token that must open a notebook's first
// non-empty line.
const magicPrefix = "%WOOFNB"

// supportedMajor is the only magic-line major version this parser accepts.
const supportedMajor = "1"

// Error is a positioned parse failure tagged with a stable code.
type Error struct {
	Code codes.Code
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Code, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Parse reads source, the full byte-for-byte content of a notebook file,
// and returns the Notebook it describes or a positioned *Error.
func Parse(source string) (*model.Notebook, error) {
	lines := splitKeepNone(source)

	magicLine, magicIdx, err := findMagicLine(lines)
	if err != nil {
		return nil, err
	}

	version, err := parseMagicVersion(magicLine, magicIdx+1)
	if err != nil {
		return nil, err
	}

	headerLines, cellsStart := collectHeaderBlock(lines, magicIdx)
	headerRaw := strings.Join(headerLines, "\n")
	if len(headerLines) > 0 {
		headerRaw += "\n"
	}

	headerTextForYAML := strings.Join(headerLines[1:], "\n")
	view, err := yamlheader.Decode(headerTextForYAML)
	if err != nil {
		return nil, &Error{Code: codes.BadTokenSyntax, Line: magicIdx + 2, Msg: err.Error()}
	}

	cells, err := parseCells(lines, cellsStart)
	if err != nil {
		return nil, err
	}

	return &model.Notebook{
		Header: model.Header{
			Raw:          headerRaw,
			MagicVersion: version,
			View:         view,
		},
		Cells: cells,
	}, nil
}

// findMagicLine scans for the first non-empty line; it must begin with the
// magic prefix once trimmed, or parsing fails MissingMagic.
func findMagicLine(lines []string) (string, int, error) {
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, magicPrefix) {
			return "", 0, &Error{Code: codes.MissingMagic, Line: i + 1, Msg: "first non-empty line must begin with " + magicPrefix}
		}
		return trimmed, i, nil
	}
	return "", 0, &Error{Code: codes.MissingMagic, Msg: "source contains no magic line"}
}

// parseMagicVersion extracts and validates the version token after the
// magic prefix, e.g. "1.0" from "%WOOFNB 1.0".
func parseMagicVersion(magicLine string, line int) (string, error) {
	fields := strings.Fields(magicLine)
	if len(fields) < 2 {
		return "", &Error{Code: codes.MissingMagic, Line: line, Msg: "magic line missing version token"}
	}
	version := fields[1]
	major := version
	if idx := strings.IndexByte(version, '.'); idx >= 0 {
		major = version[:idx]
	}
	if major != supportedMajor {
		return "", &Error{Code: codes.UnsupportedVersion, Line: line, Msg: "unsupported major version " + major}
	}
	return version, nil
}

// isCellFenceOpen reports whether l, once left-trimmed, opens a cell fence.
func isCellFenceOpen(l string) (remainder string, ok bool) {
	trimmed := strings.TrimLeft(l, " \t")
	const marker = "```cell"
	if !strings.HasPrefix(trimmed, marker) {
		return "", false
	}
	rest := trimmed[len(marker):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		// "```cellfoo" is not a fence open.
		return "", false
	}
	return strings.TrimLeft(rest, " \t"), true
}

// isCellFenceClose reports whether l, once trimmed, is exactly three
// backticks.
func isCellFenceClose(l string) bool {
	return strings.TrimSpace(l) == "```"
}

// collectHeaderBlock gathers the header lines starting at the magic line
// (inclusive) up to, but not including, the first cell fence open. It
// returns those lines and the index of the fence-open line (or len(lines)
// if the notebook has no cells).
func collectHeaderBlock(lines []string, magicIdx int) ([]string, int) {
	header := []string{lines[magicIdx]}
	for i := magicIdx + 1; i < len(lines); i++ {
		if _, ok := isCellFenceOpen(lines[i]); ok {
			return header, i
		}
		header = append(header, lines[i])
	}
	return header, len(lines)
}

// parseCells scans every cell fence starting at index start.
func parseCells(lines []string, start int) ([]model.Cell, error) {
	var cells []model.Cell
	i := start
	for i < len(lines) {
		remainder, ok := isCellFenceOpen(lines[i])
		if !ok {
			i++
			continue
		}
		fenceLine := i + 1

		bodyStart := i + 1
		bodyEnd := -1
		for j := bodyStart; j < len(lines); j++ {
			if isCellFenceClose(lines[j]) {
				bodyEnd = j
				break
			}
		}
		if bodyEnd == -1 {
			return nil, &Error{Code: codes.UnterminatedCell, Line: fenceLine, Msg: "cell fence never closed with ```"}
		}

		body := strings.Join(lines[bodyStart:bodyEnd], "\n")
		if bodyEnd > bodyStart {
			body += "\n"
		}

		cell, err := parseCellHeader(remainder, fenceLine)
		if err != nil {
			return nil, err
		}
		cell.Body = body
		cell.HeaderTokensRaw = remainder
		cell.FenceLine = fenceLine
		cells = append(cells, cell)

		i = bodyEnd + 1
	}
	return cells, nil
}

// isBareChar reports whether r is in the character class bare token values
// (and ids) may use without quoting.
func isBareChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == ',' || r == ':' || r == '/' || r == '@' || r == '-' || r == '_':
		return true
	}
	return false
}

// parseCellHeader tokenizes the fence-line remainder into a Cell.
func parseCellHeader(remainder string, fenceLine int) (model.Cell, error) {
	tokens, err := tokenize(remainder, fenceLine)
	if err != nil {
		return model.Cell{}, err
	}

	cell := model.Cell{
		Type:          model.CellCode,
		FenceLine:     fenceLine,
		UnknownTokens: map[string]string{},
	}

	for _, tok := range tokens {
		switch tok.key {
		case "id":
			cell.ID = tok.value
		case "type":
			cell.Type = model.CellType(tok.value)
		case "name":
			cell.Name = tok.value
		case "lang":
			cell.Lang = tok.value
		case "deps":
			cell.Deps = splitMultiValue(tok.value)
		case "tags":
			cell.Tags = splitMultiValue(tok.value)
		case "sidefx":
			cell.SideEffect = model.SideEffect(tok.value)
		case "timeout":
			n, err := strconv.Atoi(tok.value)
			if err != nil {
				return model.Cell{}, &Error{Code: codes.BadTokenSyntax, Line: fenceLine, Msg: "timeout must be an integer"}
			}
			cell.TimeoutSec = &n
		case "memory_mb":
			n, err := strconv.Atoi(tok.value)
			if err != nil {
				return model.Cell{}, &Error{Code: codes.BadTokenSyntax, Line: fenceLine, Msg: "memory_mb must be an integer"}
			}
			cell.MemoryMB = &n
		case "retries":
			n, err := strconv.Atoi(tok.value)
			if err != nil {
				return model.Cell{}, &Error{Code: codes.BadTokenSyntax, Line: fenceLine, Msg: "retries must be an integer"}
			}
			cell.Retries = n
		case "priority":
			n, err := strconv.Atoi(tok.value)
			if err != nil {
				return model.Cell{}, &Error{Code: codes.BadTokenSyntax, Line: fenceLine, Msg: "priority must be an integer"}
			}
			cell.Priority = n
		case "disabled":
			cell.Disabled = tok.value == "true"
		default:
			cell.UnknownTokens[tok.key] = tok.value
			cell.UnknownOrder = append(cell.UnknownOrder, tok.key)
		}
	}

	return cell, nil
}

// splitMultiValue splits a deps/tags value on commas, dropping empty
// segments.
func splitMultiValue(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// token is one key[=value] pair from a cell-header line.
type token struct {
	key   string
	value string
}

// tokenize splits a cell-header remainder into key[=value] tokens
// separated by ASCII whitespace.
func tokenize(s string, fenceLine int) ([]token, error) {
	var tokens []token
	seen := map[string]bool{}

	i := 0
	n := len(s)
	for i < n {
		for i < n && isSpace(s[i]) {
			i++
		}
		if i >= n {
			break
		}

		keyStart := i
		for i < n && isKeyChar(s[i]) {
			i++
		}
		if i == keyStart {
			return nil, &Error{Code: codes.BadTokenSyntax, Line: fenceLine, Msg: "expected token key at offset " + strconv.Itoa(i)}
		}
		key := s[keyStart:i]

		var value string
		if i < n && s[i] == '=' {
			i++
			if i < n && s[i] == '"' {
				v, newI, err := scanQuoted(s, i, fenceLine)
				if err != nil {
					return nil, err
				}
				value = v
				i = newI
			} else {
				valStart := i
				for i < n && !isSpace(s[i]) {
					if !isBareChar(rune(s[i])) {
						return nil, &Error{Code: codes.BadTokenSyntax, Line: fenceLine, Msg: "invalid bare value character for key " + key}
					}
					i++
				}
				value = s[valStart:i]
			}
		} else {
			value = "true"
		}

		if seen[key] {
			return nil, &Error{Code: codes.DuplicateToken, Line: fenceLine, Msg: "duplicate token key " + key}
		}
		seen[key] = true
		tokens = append(tokens, token{key: key, value: value})
	}

	return tokens, nil
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' }

func isKeyChar(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-':
		return true
	}
	return false
}

// scanQuoted reads a double-quoted value starting at s[start] == '"',
// supporting \" and \\ escapes; any other backslash sequence is preserved
// literally. Returns the unescaped value and the index just
// past the closing quote.
func scanQuoted(s string, start int, fenceLine int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	n := len(s)
	for i < n {
		c := s[i]
		if c == '"' {
			return b.String(), i + 1, nil
		}
		if c == '\\' && i+1 < n && (s[i+1] == '"' || s[i+1] == '\\') {
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, &Error{Code: codes.BadTokenSyntax, Line: fenceLine, Msg: "unterminated quoted value"}
}

// splitKeepNone splits source into lines without a trailing synthetic
// blank line for a final newline, matching bufio.Scanner's line semantics
// over the whole buffer.
func splitKeepNone(source string) []string {
	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
