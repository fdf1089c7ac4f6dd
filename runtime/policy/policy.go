// Package policy gates per-cell capabilities against the notebook header's
// allow-list: a cell acquires a capability only when both
// the header allow-flag and the cell's declared intent agree.
package policy

import (
	"github.com/woofnb/woof/core/model"
)

// Capability is a single grantable permission.
type Capability string

const (
	CapFS       Capability = "fs"
	CapNet      Capability = "net"
	CapShell    Capability = "shell"
	CapIsolated Capability = "isolated"
)

// Decision is the outcome of evaluating a cell's side-effect declaration
// against the header policy.
type Decision struct {
	Allowed  bool
	Denied   Capability
	ShellGap bool // shell needed (bash cell or sidefx=shell), but allow_shell is false
}

// Evaluate computes whether cell may run, given header's io_policy.
// `shell` implies `fs`; `isolated` and `none` are always
// permitted since they declare no external capability. Every `bash` cell
// requires `shell` regardless of its declared sidefx.
func Evaluate(cell model.Cell, header model.IOPolicy) Decision {
	if cell.Type == model.CellBash {
		if !header.AllowShell {
			return Decision{Allowed: false, Denied: CapShell, ShellGap: true}
		}
		return Decision{Allowed: true}
	}

	switch cell.SideEffect.Resolved() {
	case model.SideEffectNone, model.SideEffectIsolated:
		return Decision{Allowed: true}
	case model.SideEffectFS:
		return Decision{Allowed: header.AllowFiles, Denied: CapFS}
	case model.SideEffectNet:
		return Decision{Allowed: header.AllowNetwork, Denied: CapNet}
	case model.SideEffectShell:
		if !header.AllowShell {
			return Decision{Allowed: false, Denied: CapShell, ShellGap: true}
		}
		return Decision{Allowed: true}
	default:
		return Decision{Allowed: true}
	}
}
