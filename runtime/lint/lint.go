// Package lint checks a parsed Notebook's invariants: identifier
// well-formedness, dependency resolution, cycle-freedom under graph
// order, and policy/token consistency.
package lint

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/woofnb/woof/core/codes"
	"github.com/woofnb/woof/core/model"
)

// Severity classifies a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one lint finding.
type Diagnostic struct {
	Severity Severity
	Code     codes.Code
	CellID   string
	Message  string
}

var cellIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Lint runs every check against nb and returns the diagnostics found,
// in check order.
func Lint(nb *model.Notebook) []Diagnostic {
	var diags []Diagnostic

	diags = append(diags, checkMagicAndRequiredKeys(nb)...)
	diags = append(diags, checkCellIDs(nb)...)
	diags = append(diags, checkDepsResolve(nb)...)
	if nb.Header.View.Execution.Order.Resolved() == model.OrderGraph {
		diags = append(diags, checkAcyclic(nb)...)
	}
	diags = append(diags, checkPolicyConsistency(nb)...)
	diags = append(diags, checkUnknownTokens(nb)...)
	diags = append(diags, checkDisabledWithDependents(nb)...)

	return diags
}

// HasError reports whether diags contains any error-severity entry.
func HasError(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func checkMagicAndRequiredKeys(nb *model.Notebook) []Diagnostic {
	var diags []Diagnostic
	if nb.Header.MagicVersion == "" {
		diags = append(diags, Diagnostic{Severity: SeverityError, Code: codes.MissingMagic, Message: "notebook has no magic version"})
	}
	if nb.Header.View.Name == "" {
		diags = append(diags, Diagnostic{Severity: SeverityError, Code: codes.BadTokenSyntax, Message: "header missing required key \"name\""})
	}
	if nb.Header.View.Language == "" {
		diags = append(diags, Diagnostic{Severity: SeverityError, Code: codes.BadTokenSyntax, Message: "header missing required key \"language\""})
	}
	return diags
}

func checkCellIDs(nb *model.Notebook) []Diagnostic {
	var diags []Diagnostic
	seen := map[string]bool{}
	for _, c := range nb.Cells {
		if !cellIDPattern.MatchString(c.ID) {
			diags = append(diags, Diagnostic{Severity: SeverityError, Code: codes.BadCellId, CellID: c.ID, Message: fmt.Sprintf("cell id %q does not match [A-Za-z0-9._-]+", c.ID)})
		}
		if seen[c.ID] {
			diags = append(diags, Diagnostic{Severity: SeverityError, Code: codes.DuplicateCellId, CellID: c.ID, Message: fmt.Sprintf("duplicate cell id %q", c.ID)})
		}
		seen[c.ID] = true
	}
	return diags
}

func checkDepsResolve(nb *model.Notebook) []Diagnostic {
	var diags []Diagnostic
	ids := map[string]bool{}
	for _, c := range nb.Cells {
		ids[c.ID] = true
	}
	for _, c := range nb.Cells {
		for _, dep := range c.Deps {
			if !ids[dep] {
				diags = append(diags, Diagnostic{Severity: SeverityError, Code: codes.MissingDep, CellID: c.ID, Message: fmt.Sprintf("cell %q depends on unknown cell %q", c.ID, dep)})
			}
		}
	}
	return diags
}

// checkAcyclic finds cycles in the dependency graph via Kahn's algorithm.
// Cells left unprocessed when the queue drains are on a cycle or
// downstream of one; those that can reach themselves through dependency
// edges (the cycle members) are named in a single diagnostic.
func checkAcyclic(nb *model.Notebook) []Diagnostic {
	indegree := map[string]int{}
	adj := map[string][]string{} // dep -> dependents
	for _, c := range nb.Cells {
		if _, ok := indegree[c.ID]; !ok {
			indegree[c.ID] = 0
		}
		for _, dep := range c.Deps {
			indegree[c.ID]++
			adj[dep] = append(adj[dep], c.ID)
		}
	}

	var queue []string
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	processed := map[string]bool{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed[id] = true
		var next []string
		for _, dependent := range adj[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				next = append(next, dependent)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}

	var reaches func(from, target string, seen map[string]bool) bool
	reaches = func(from, target string, seen map[string]bool) bool {
		for _, next := range adj[from] {
			if next == target {
				return true
			}
			if !seen[next] {
				seen[next] = true
				if reaches(next, target, seen) {
					return true
				}
			}
		}
		return false
	}

	var remaining []string
	for id := range indegree {
		if !processed[id] && reaches(id, id, map[string]bool{}) {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == 0 {
		return nil
	}
	sort.Strings(remaining)

	return []Diagnostic{{
		Severity: SeverityError,
		Code:     codes.Cycle,
		Message:  fmt.Sprintf("dependency cycle among cells: %v", remaining),
	}}
}

func checkPolicyConsistency(nb *model.Notebook) []Diagnostic {
	var diags []Diagnostic
	for _, c := range nb.Cells {
		switch c.SideEffect.Resolved() {
		case model.SideEffectShell:
			if c.Type != model.CellBash {
				diags = append(diags, Diagnostic{Severity: SeverityError, Code: codes.PolicyConflict, CellID: c.ID, Message: "sidefx=shell requires cell type bash"})
			}
			if !nb.Header.View.IOPolicy.AllowShell {
				diags = append(diags, Diagnostic{Severity: SeverityWarning, Code: codes.PolicyConflict, CellID: c.ID, Message: "sidefx=shell but io_policy.allow_shell is false; execution will be denied"})
			}
		case model.SideEffectNet:
			if !nb.Header.View.IOPolicy.AllowNetwork {
				diags = append(diags, Diagnostic{Severity: SeverityWarning, Code: codes.PolicyConflict, CellID: c.ID, Message: "sidefx=net but io_policy.allow_network is false; execution will be denied"})
			}
		case model.SideEffectFS:
			if !nb.Header.View.IOPolicy.AllowFiles {
				diags = append(diags, Diagnostic{Severity: SeverityWarning, Code: codes.PolicyConflict, CellID: c.ID, Message: "sidefx=fs but io_policy.allow_files is false; execution will be denied"})
			}
		}
	}
	return diags
}

func checkUnknownTokens(nb *model.Notebook) []Diagnostic {
	var diags []Diagnostic
	for _, c := range nb.Cells {
		for _, key := range c.UnknownOrder {
			diags = append(diags, Diagnostic{Severity: SeverityWarning, Code: codes.UnknownToken, CellID: c.ID, Message: fmt.Sprintf("unrecognized cell-header token %q", key)})
		}
	}
	return diags
}

func checkDisabledWithDependents(nb *model.Notebook) []Diagnostic {
	var diags []Diagnostic
	disabled := map[string]bool{}
	for _, c := range nb.Cells {
		if c.Disabled {
			disabled[c.ID] = true
		}
	}
	for _, c := range nb.Cells {
		for _, dep := range c.Deps {
			if disabled[dep] {
				diags = append(diags, Diagnostic{Severity: SeverityWarning, CellID: c.ID, Message: fmt.Sprintf("cell %q depends on disabled cell %q", c.ID, dep)})
			}
		}
	}
	return diags
}
