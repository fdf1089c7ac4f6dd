// Package codes holds the stable error/diagnostic identifiers used across
// the parser, linter, cache, and execution engine. Keeping
// them in one place means a diagnostic's Code field and a test's
// assertion against it can never drift out of sync with a typo.
package codes

// Code is a stable identifier attached to a parse error, lint diagnostic,
// or execution-time error Output.
type Code string

const (
	// Parse
	MissingMagic      Code = "MissingMagic"
	UnsupportedVersion Code = "UnsupportedVersion"
	UnterminatedCell  Code = "UnterminatedCell"
	DuplicateToken    Code = "DuplicateToken"
	BadTokenSyntax    Code = "BadTokenSyntax"

	// Lint
	DuplicateCellId Code = "DuplicateCellId"
	BadCellId       Code = "BadCellId"
	MissingDep      Code = "MissingDep"
	Cycle           Code = "Cycle"
	PolicyConflict  Code = "PolicyConflict"
	UnknownToken    Code = "UnknownToken"

	// Policy / Exec
	PolicyDenied   Code = "PolicyDenied"
	Timeout        Code = "Timeout"
	BackendCrashed Code = "BackendCrashed"
	Runtime        Code = "Runtime"

	// Cache
	CacheCorrupt  Code = "CacheCorrupt"
	CacheIOError  Code = "CacheIOError"

	// Interop
	InvalidDataBody Code = "InvalidDataBody"

	// Orchestrator
	UpstreamFailed Code = "UpstreamFailed"
)

// IsTransient reports whether a failure under this code is non-deterministic
// (timeout, backend crash) and therefore eligible for retry. Every other
// code — assertion, syntax error, policy denial, invalid data body — is
// deterministic and must never be retried.
func IsTransient(c Code) bool {
	switch c {
	case Timeout, BackendCrashed:
		return true
	default:
		return false
	}
}
