// Package model holds the typed entities shared by every WOOFNB subsystem:
// Notebook, Header, Cell, Output, and CacheEntry. The parser builds a
// Notebook; the formatter re-emits it; the linter, planner, cache, policy,
// runner, and sidecar writer all read it. Nothing in this package parses or
// serializes source text — that belongs to the parser and formatter.
package model

// Notebook is an ordered sequence of Cells plus a Header.
type Notebook struct {
	// Path is the source file path. It is not part of the on-disk format;
	// it is carried so the cache and sidecar writer can derive their own
	// file paths without threading an extra argument everywhere.
	Path string

	Header Header
	Cells  []Cell
}

// CellByID returns the cell with the given id and true, or the zero Cell
// and false if no such cell exists.
func (n *Notebook) CellByID(id string) (Cell, bool) {
	for _, c := range n.Cells {
		if c.ID == id {
			return c, true
		}
	}
	return Cell{}, false
}

// Header holds two representations of the notebook header simultaneously:
// the verbatim source text (needed for byte-lossless round-trip) and a
// typed view decoded by the YAML collaborator.
type Header struct {
	// Raw is the exact header text as it appeared in the source, including
	// the leading magic line and its trailing newline, but excluding the
	// opening cell fence line. Preserved byte-for-byte by the parser.
	Raw string

	// MagicVersion is the version token from the magic line, e.g. "1.0".
	MagicVersion string

	View HeaderView
}

// HeaderView is the typed decode of the header YAML (everything after the
// magic line). Recognized keys are promoted to fields; everything else
// flows through Passthrough untouched.
type HeaderView struct {
	Name     string `yaml:"name"`
	Language string `yaml:"language"`

	Env        Env        `yaml:"env,omitempty"`
	Parameters Parameters `yaml:"parameters,omitempty"`
	Defaults   Defaults   `yaml:"defaults,omitempty"`
	Execution  Execution  `yaml:"execution,omitempty"`
	IOPolicy   IOPolicy   `yaml:"io_policy,omitempty"`

	// Passthrough carries every header key the typed view does not
	// recognize (provenance, metadata, tags, version, and any
	// forward-compatible addition), keyed by its original YAML name.
	Passthrough map[string]any `yaml:"-"`
}

// Env describes the notebook's interpreter environment.
type Env struct {
	InterpreterVersion string    `yaml:"interpreter_version,omitempty"`
	Requirements       []string  `yaml:"requirements,omitempty"`
	Container          Container `yaml:"container,omitempty"`
}

// Container names the container image a notebook's cells run inside,
// when the notebook declares one. Enforcing that declaration is out of
// scope; it is hashed into the cache key regardless, since it is part
// of "environment".
type Container struct {
	Image string `yaml:"image,omitempty"`
}

// Parameters is the opaque, user-supplied parameter mapping. It is never
// interpreted by the core — only hashed into the cache key — so it is kept
// as a generic mapping rather than a typed struct.
type Parameters map[string]any

// Defaults holds notebook-wide fallbacks applied when a cell does not
// declare its own timeout/memory budget.
type Defaults struct {
	TimeoutSec *int `yaml:"timeout_sec,omitempty"`
	MemoryMB   *int `yaml:"memory_mb,omitempty"`
}

// Execution controls scheduling order and caching for the notebook.
type Execution struct {
	Order ExecutionOrder `yaml:"order,omitempty"`
	Cache CacheMode      `yaml:"cache,omitempty"`
}

// ExecutionOrder selects how the Planner schedules cells.
type ExecutionOrder string

const (
	OrderLinear ExecutionOrder = "linear"
	OrderGraph  ExecutionOrder = "graph"
)

// Resolved returns the order, defaulting to OrderLinear.
func (o ExecutionOrder) Resolved() ExecutionOrder {
	if o == "" {
		return OrderLinear
	}
	return o
}

// CacheMode selects whether the Cache component participates in a run.
type CacheMode string

const (
	CacheNone        CacheMode = "none"
	CacheContentHash CacheMode = "content-hash"
)

// Resolved returns the cache mode, defaulting to CacheNone.
func (m CacheMode) Resolved() CacheMode {
	if m == "" {
		return CacheNone
	}
	return m
}

// IOPolicy is the header-level allow-list the Policy Enforcer gates
// capabilities against. All flags default to false (default-deny).
type IOPolicy struct {
	AllowFiles   bool `yaml:"allow_files,omitempty"`
	AllowNetwork bool `yaml:"allow_network,omitempty"`
	AllowShell   bool `yaml:"allow_shell,omitempty"`
}

// CellType enumerates the supported cell kinds.
type CellType string

const (
	CellCode CellType = "code"
	CellMD   CellType = "md"
	CellData CellType = "data"
	CellTest CellType = "test"
	CellViz  CellType = "viz"
	CellBash CellType = "bash"
	CellRaw  CellType = "raw"
)

// Executable reports whether cells of this type participate in the
// Runner dispatch table. md, viz, and raw cells are never executed.
func (t CellType) Executable() bool {
	switch t {
	case CellMD, CellViz, CellRaw:
		return false
	default:
		return true
	}
}

// SideEffect declares the capability intent a cell needs from the Policy
// Enforcer.
type SideEffect string

const (
	SideEffectNone     SideEffect = "none"
	SideEffectFS       SideEffect = "fs"
	SideEffectNet      SideEffect = "net"
	SideEffectShell    SideEffect = "shell"
	SideEffectIsolated SideEffect = "isolated"
)

// Resolved returns the side effect, defaulting to SideEffectNone.
func (s SideEffect) Resolved() SideEffect {
	if s == "" {
		return SideEffectNone
	}
	return s
}

// Cell is one fenced block of a notebook.
type Cell struct {
	ID   string
	Type CellType
	Name string

	// Deps is the set of cell ids this cell depends on, in the order they
	// appeared in the `deps=` token. Order affects re-emission, `woof
	// graph` output, and the order in which dependency bodies enter the
	// cache key; the Planner treats it as a set.
	Deps []string

	TimeoutSec *int
	MemoryMB   *int

	SideEffect SideEffect
	Tags       []string
	Retries    int
	Priority   int
	Disabled   bool

	// Lang overrides the notebook's default language for this cell.
	Lang string

	Body string

	// HeaderTokensRaw is the exact substring of the cell-header line after
	// ```cell until the end of the fence line, preserved for lossless
	// re-emission by Serialize. Format regenerates it from the typed
	// fields instead.
	HeaderTokensRaw string

	// UnknownTokens holds cell-header tokens the tokenizer did not
	// recognize, preserved verbatim (key -> raw value text, already
	// unescaped) so Format can re-emit them in lexicographic order
	// alongside the recognized ones, and Lint can warn on them.
	UnknownTokens map[string]string
	// UnknownOrder preserves first-seen order of UnknownTokens keys, used
	// only for deterministic diagnostics; re-emission always sorts them.
	UnknownOrder []string

	// FenceLine is the 1-based source line of the opening ```cell fence.
	// Parse errors for a cell header report this same line; lint
	// diagnostics carry no line number.
	FenceLine int
}

// EffectiveLang resolves the cell's language against the notebook-wide
// default when the cell does not declare its own.
func (c Cell) EffectiveLang(notebookLanguage string) string {
	if c.Lang != "" {
		return c.Lang
	}
	return notebookLanguage
}

// EffectiveTimeout resolves timeout_sec: cell override, then header
// default, then none.
func (c Cell) EffectiveTimeout(defaults Defaults) (sec int, ok bool) {
	if c.TimeoutSec != nil {
		return *c.TimeoutSec, true
	}
	if defaults.TimeoutSec != nil {
		return *defaults.TimeoutSec, true
	}
	return 0, false
}

// OutputKind tags the variant held by an Output value.
type OutputKind string

const (
	OutputStream        OutputKind = "stream"
	OutputDisplayData    OutputKind = "display_data"
	OutputExecuteResult OutputKind = "execute_result"
	OutputError          OutputKind = "error"
)

// StreamName distinguishes stdout from stderr within a stream Output.
type StreamName string

const (
	StreamStdout StreamName = "stdout"
	StreamStderr StreamName = "stderr"
)

// Output is a tagged union over the four output variants a cell can
// produce. Exactly one of the variant-specific fields is meaningful,
// selected by Kind, favoring a tagged sum over a stringly-typed
// dictionary.
type Output struct {
	Kind OutputKind

	// stream
	StreamName StreamName
	Text       string

	// display_data: MIME type -> string-or-bytes. Bytes are carried as
	// []byte; textual payloads as string.
	Data map[string]any

	// execute_result
	Repr string

	// error
	EName      string
	EValue     string
	Traceback []string
}

// StreamOutput constructs a stream Output in arrival order.
func StreamOutput(name StreamName, text string) Output {
	return Output{Kind: OutputStream, StreamName: name, Text: text}
}

// ErrorOutput constructs an error Output.
func ErrorOutput(ename, evalue string, traceback []string) Output {
	return Output{Kind: OutputError, EName: ename, EValue: evalue, Traceback: traceback}
}

// ExecuteResultOutput constructs an execute_result Output.
func ExecuteResultOutput(repr string) Output {
	return Output{Kind: OutputExecuteResult, Repr: repr}
}

// DisplayDataOutput constructs a display_data Output.
func DisplayDataOutput(data map[string]any) Output {
	return Output{Kind: OutputDisplayData, Data: data}
}

// CacheEntry is the persisted record of a prior cell execution.
type CacheEntry struct {
	Key           string // lowercase hex
	CellID        string
	Outputs       []Output
	ElapsedMS     int64
	RunnerVersion string
}
