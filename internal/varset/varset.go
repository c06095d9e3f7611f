// Package varset implements the VariableProcessor and TemplateProcessor
// (spec.md §4.8 steps 6-7): extraction of the top-level `variables` and
// `templates` mappings, with variables resolved incrementally against
// each other and templates kept raw until `!insert` resolves them.
//
// Grounded on the teacher's ApplyConfigToSharedOptions-style layered
// precedence (internal/app/config.go) - "apply only if not already set" -
// mirrored here as "resolve a variable's value only against variables
// defined so far".
package varset

import (
	"github.com/openhab/yamlpp/internal/expr"
	"github.com/openhab/yamlpp/internal/interp"
	"github.com/openhab/yamlpp/internal/tree"
	"github.com/openhab/yamlpp/internal/walk"
)

// ResolveVariables processes the `variables:` mapping incrementally: each
// entry's value is walked (Sub/If/Include/Insert; plain strings are only
// interpolated inside a !sub) against the variables defined by every prior
// entry plus seed, so
// later entries can reference earlier ones but not vice versa. raw may be
// nil (no variables: block). seed is the already-merged scope the variables
// block resolves against - parent vars, any include/insert overrides, and
// the predefined names - and is returned as the base of the result.
// protected names (computed OPENHAB_CONF, __FILE__, and friends) cannot be
// redefined by a variables: entry of the same name.
//
// A non-nil error is a terminating condition reached while resolving one
// entry's value (spec.md §7 item 2: circular inclusion, depth exceeded) and
// must abort the whole load(), so it is returned rather than swallowed.
func ResolveVariables(raw, seed *tree.Value, protected map[string]bool, engineFor func(vars *tree.Value) *walk.Engine) (*tree.Value, error) {
	vars := tree.NewMap()
	if seed != nil {
		for i, k := range seed.Keys {
			vars.Set(k.AsString(), seed.Vals[i])
		}
	}
	if raw == nil || raw.Kind != tree.KindMap {
		return vars, nil
	}
	for i, k := range raw.Keys {
		name := k.AsString()
		if protected[name] {
			continue // predefined variables cannot be overridden
		}
		eng := engineFor(vars)
		resolved, removed, err := eng.Walk(raw.Vals[i], vars, tree.DefaultPattern, false)
		if err != nil {
			return nil, err
		}
		if removed {
			continue
		}
		vars.Set(name, resolved)
	}
	return vars, nil
}

// ExtractTemplates returns the `templates:` mapping unresolved, as-is - its
// bodies are only processed at `!insert` time against the insert site's
// variable scope (spec.md §9 Open Question resolution).
func ExtractTemplates(raw *tree.Value) *tree.Value {
	if raw == nil || raw.Kind != tree.KindMap {
		return tree.NewMap()
	}
	return raw
}

// scope builds an expr.Scope over a resolved variables map with the given
// Warn wiring; used by InterpolateString.
func scope(vars *tree.Value, warn func(string)) *expr.Scope {
	return &expr.Scope{Vars: vars, Warn: warn}
}

// InterpolateString is a small convenience wrapper that interpolates src
// with the default `${…}` pattern against vars.
func InterpolateString(src string, vars *tree.Value, warn func(string)) *tree.Value {
	return interp.Interpolate(src, tree.DefaultPattern, scope(vars, warn))
}
