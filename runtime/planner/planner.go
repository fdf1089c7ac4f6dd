// Package planner produces an ordered execution sequence from a
// Notebook: either file order (linear) or a topological sort (graph),
// optionally restricted to a selector set and its dependency closure.
package planner

import (
	"fmt"
	"sort"

	"github.com/woofnb/woof/core/model"
)

// Options configures Plan.
type Options struct {
	// Selector, if non-empty, restricts the plan to these cell ids (plus
	// their transitive dependency closure, unless NoDeps is set).
	Selector []string
	NoDeps   bool
}

// Plan computes the ordered sequence of cells to execute.
func Plan(nb *model.Notebook, opts Options) ([]model.Cell, error) {
	order := nb.Header.View.Execution.Order.Resolved()

	var sequence []model.Cell
	var err error
	switch order {
	case model.OrderGraph:
		sequence, err = planGraph(nb)
	default:
		sequence = planLinear(nb)
	}
	if err != nil {
		return nil, err
	}

	if len(opts.Selector) == 0 {
		return sequence, nil
	}
	return restrictToSelector(nb, sequence, opts.Selector, opts.NoDeps)
}

// planLinear returns executable, non-disabled cells in file order.
func planLinear(nb *model.Notebook) []model.Cell {
	var out []model.Cell
	for _, c := range nb.Cells {
		if !c.Type.Executable() || c.Disabled {
			continue
		}
		out = append(out, c)
	}
	return out
}

// planGraph performs Kahn's algorithm over the full cell set (including
// non-executable cells, which still participate in dependency
// resolution), then filters the result to executable, non-disabled
// cells. Ties break on lower priority first, then ascending file index.
func planGraph(nb *model.Notebook) ([]model.Cell, error) {
	byID := map[string]model.Cell{}
	fileIndex := map[string]int{}
	for i, c := range nb.Cells {
		byID[c.ID] = c
		fileIndex[c.ID] = i
	}

	indegree := map[string]int{}
	adj := map[string][]string{}
	for _, c := range nb.Cells {
		if _, ok := indegree[c.ID]; !ok {
			indegree[c.ID] = 0
		}
		for _, dep := range c.Deps {
			indegree[c.ID]++
			adj[dep] = append(adj[dep], c.ID)
		}
	}

	less := func(a, b string) bool {
		ca, cb := byID[a], byID[b]
		if ca.Priority != cb.Priority {
			return ca.Priority < cb.Priority
		}
		return fileIndex[a] < fileIndex[b]
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	var topo []string
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		topo = append(topo, id)

		var freed []string
		for _, dependent := range adj[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Slice(freed, func(i, j int) bool { return less(freed[i], freed[j]) })

		ready = mergeSorted(ready, freed, less)
	}

	if len(topo) != len(indegree) {
		return nil, fmt.Errorf("planner: dependency cycle detected (lint should have caught this)")
	}

	var out []model.Cell
	for _, id := range topo {
		c := byID[id]
		if !c.Type.Executable() || c.Disabled {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// mergeSorted merges two already-sorted-by-less slices, preserving order.
func mergeSorted(a, b []string, less func(x, y string) bool) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if less(a[i], b[j]) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// restrictToSelector filters sequence down to the selector set, expanded
// to its transitive dependency closure unless noDeps is set, preserving
// sequence's relative order.
func restrictToSelector(nb *model.Notebook, sequence []model.Cell, selector []string, noDeps bool) ([]model.Cell, error) {
	byID := map[string]model.Cell{}
	for _, c := range nb.Cells {
		byID[c.ID] = c
	}

	keep := map[string]bool{}
	for _, id := range selector {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("planner: selector references unknown cell id %q", id)
		}
		keep[id] = true
	}

	if !noDeps {
		var stack []string
		for id := range keep {
			stack = append(stack, id)
		}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, dep := range byID[id].Deps {
				if !keep[dep] {
					keep[dep] = true
					stack = append(stack, dep)
				}
			}
		}
	}

	var out []model.Cell
	for _, c := range sequence {
		if keep[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}
