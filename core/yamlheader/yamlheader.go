// Package yamlheader is the YAML collaborator for the notebook header:
// the core never hand-rolls a YAML lexer. Decode produces the typed
// HeaderView used by the linter, planner, and cache; Encode re-emits a
// header in the canonical key order required by `woof fmt`.
package yamlheader

import (
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/woofnb/woof/core/model"
)

// knownKeys are the header keys with dedicated HeaderView fields.
var knownKeys = map[string]bool{
	"name":       true,
	"language":   true,
	"env":        true,
	"parameters": true,
	"defaults":   true,
	"execution":  true,
	"io_policy":  true,
}

// orderedPassthroughKeys lists the passthrough keys that have a fixed
// position in the canonical header, in that order. Any other
// passthrough key is forward-compatible and sorts lexicographically after
// these.
var orderedPassthroughKeys = []string{"tags", "version", "provenance", "metadata"}

// Decode parses headerText (the header with its leading magic line already
// stripped) into a HeaderView. Unknown top-level keys are preserved in
// View.Passthrough rather than rejected.
func Decode(headerText string) (model.HeaderView, error) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(headerText), &raw); err != nil {
		return model.HeaderView{}, err
	}

	var view model.HeaderView
	if err := yaml.Unmarshal([]byte(headerText), &view); err != nil {
		return model.HeaderView{}, err
	}

	view.Passthrough = make(map[string]any, len(raw))
	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		view.Passthrough[k] = v
	}

	return view, nil
}

// Encode renders view as canonical YAML text (no leading magic line, no
// trailing blank line beyond the final newline yaml.Marshal already
// appends). Keys are emitted in canonical order: name, language, env,
// parameters, defaults, execution, io_policy, tags, version,
// provenance, metadata, then any other keys lexicographically.
func Encode(view model.HeaderView) (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	add := func(key string, value any) error {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(value); err != nil {
			return err
		}
		root.Content = append(root.Content, keyNode, valNode)
		return nil
	}

	if err := add("name", view.Name); err != nil {
		return "", err
	}
	if err := add("language", view.Language); err != nil {
		return "", err
	}
	if !isZeroEnv(view.Env) {
		if err := add("env", view.Env); err != nil {
			return "", err
		}
	}
	if len(view.Parameters) > 0 {
		if err := add("parameters", view.Parameters); err != nil {
			return "", err
		}
	}
	if !isZeroDefaults(view.Defaults) {
		if err := add("defaults", view.Defaults); err != nil {
			return "", err
		}
	}
	if !isZeroExecution(view.Execution) {
		if err := add("execution", view.Execution); err != nil {
			return "", err
		}
	}
	if !isZeroIOPolicy(view.IOPolicy) {
		if err := add("io_policy", view.IOPolicy); err != nil {
			return "", err
		}
	}

	for _, key := range orderedPassthroughKeys {
		if v, ok := view.Passthrough[key]; ok {
			if err := add(key, v); err != nil {
				return "", err
			}
		}
	}

	var rest []string
	for k := range view.Passthrough {
		if isOrderedPassthroughKey(k) {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		if err := add(k, view.Passthrough[k]); err != nil {
			return "", err
		}
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isOrderedPassthroughKey(k string) bool {
	for _, o := range orderedPassthroughKeys {
		if o == k {
			return true
		}
	}
	return false
}

func isZeroEnv(e model.Env) bool {
	return e.InterpreterVersion == "" && len(e.Requirements) == 0 && e.Container.Image == ""
}

func isZeroDefaults(d model.Defaults) bool {
	return d.TimeoutSec == nil && d.MemoryMB == nil
}

func isZeroExecution(e model.Execution) bool {
	return e.Order == "" && e.Cache == ""
}

func isZeroIOPolicy(p model.IOPolicy) bool {
	return !p.AllowFiles && !p.AllowNetwork && !p.AllowShell
}
