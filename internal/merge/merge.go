// Package merge implements the two merge algorithms the preprocessor needs
// after the RecursiveProcessor's first pass: strict first-key-wins
// resolution of YAML merge keys (MergeKeyProcessor), and deep-merge-with-
// directives composition of packages into the main document
// (PackageProcessor). The two are deliberately separate: merge keys are a
// YAML-native, per-mapping concern with no teacher equivalent; package
// composition borrows its deep-merge shape from isometry-platform-health's
// config-include layering.
package merge

import (
	"dario.cat/mergo"

	"github.com/openhab/yamlpp/internal/tree"
)

// ResolveMergeKeys implements the MergeKeyProcessor (spec.md §4.6): every
// mapping containing `<<` entries is rebuilt with strict first-key-wins
// precedence, recursively over the whole tree. Must run after pass 1 of the
// RecursiveProcessor, since a merge value may itself have carried a dynamic
// tag that pass 1 already resolved into a plain mapping or sequence.
func ResolveMergeKeys(v *tree.Value, warn func(string)) *tree.Value {
	if v == nil {
		return tree.Null()
	}
	switch v.Kind {
	case tree.KindMap:
		return resolveMapMergeKeys(v, warn)
	case tree.KindSeq:
		out := make([]*tree.Value, len(v.Seq))
		for i, item := range v.Seq {
			out[i] = ResolveMergeKeys(item, warn)
		}
		return &tree.Value{Kind: tree.KindSeq, Pos: v.Pos, Seq: out}
	default:
		return v
	}
}

func resolveMapMergeKeys(v *tree.Value, warn func(string)) *tree.Value {
	out := tree.NewMap()
	out.Pos = v.Pos
	seen := map[string]bool{}
	insert := func(k, val *tree.Value) {
		name := k.AsString()
		if seen[name] {
			return
		}
		seen[name] = true
		out.Keys = append(out.Keys, k)
		out.Vals = append(out.Vals, val)
	}

	for i, k := range v.Keys {
		val := v.Vals[i]
		if k.Kind == tree.KindPlaceholder && k.Holder.Kind == tree.PhMergeKeyToken {
			for _, sub := range mergeSources(val, warn) {
				resolvedSub := resolveMapMergeKeys(sub, warn)
				for j, sk := range resolvedSub.Keys {
					insert(sk, resolvedSub.Vals[j])
				}
			}
			continue
		}
		insert(k, ResolveMergeKeys(val, warn))
	}
	return out
}

// mergeSources resolves a `<<` value into an ordered list of mappings to
// splice in. A single mapping is one source; a sequence is a list of
// sources processed in order. Null is a silent no-op; anything else warns
// "Expected a mapping" and contributes nothing.
func mergeSources(v *tree.Value, warn func(string)) []*tree.Value {
	if tree.IsNull(v) {
		return nil
	}
	switch v.Kind {
	case tree.KindMap:
		return []*tree.Value{v}
	case tree.KindSeq:
		var out []*tree.Value
		for _, item := range v.Seq {
			if item.Kind != tree.KindMap {
				warn("Expected a mapping")
				continue
			}
			out = append(out, item)
		}
		return out
	default:
		warn("Expected a mapping")
		return nil
	}
}

// MergePackages implements the PackageProcessor (spec.md §4.9): each
// package is deep-merged into the accumulated result in declaration order.
// Earlier packages (and the main document itself) win on shared keys;
// later packages still contribute their unique keys into shared sub-maps.
// Sequences concatenate, package items first. A key that the accumulated
// result already occupies - including one still carrying an unresolved
// !replace or !remove placeholder from pass 1 - is left untouched here;
// pass 2 of the RecursiveProcessor interprets those placeholders afterward,
// which is what gives !replace/!remove their package-overriding effect.
func MergePackages(main *tree.Value, packages []*tree.Value) *tree.Value {
	result := main
	if result == nil || result.Kind != tree.KindMap {
		result = tree.NewMap()
	}
	for _, pkg := range packages {
		result = deepMerge(result, true, pkg)
	}
	return result
}

func deepMerge(existing *tree.Value, existed bool, incoming *tree.Value) *tree.Value {
	if incoming == nil {
		if existed {
			return existing
		}
		return tree.Null()
	}
	switch incoming.Kind {
	case tree.KindMap:
		if !existed {
			return incoming.Clone()
		}
		if existing == nil || existing.Kind != tree.KindMap {
			return existing
		}
		out := existing.Clone()
		for i, k := range incoming.Keys {
			name := k.AsString()
			childExisting := out.Get(name)
			childExisted := out.Has(name)
			merged := deepMerge(childExisting, childExisted, incoming.Vals[i])
			out.Set(name, merged)
		}
		return out
	case tree.KindSeq:
		if !existed {
			return incoming.Clone()
		}
		if existing == nil || existing.Kind != tree.KindSeq {
			return existing
		}
		combined := make([]*tree.Value, 0, len(incoming.Seq)+len(existing.Seq))
		combined = append(combined, incoming.Seq...)
		combined = append(combined, existing.Seq...)
		return &tree.Value{Kind: tree.KindSeq, Seq: combined}
	default:
		if !existed {
			return incoming
		}
		return existing
	}
}

// OverlayVars merges override values onto base (override wins on
// conflicting scalar keys; maps merge recursively) for the include/insert
// `vars:` layering step. Implemented over plain Go values via mergo rather
// than hand-rolled tree recursion, matching the teacher's reach for a
// merge library whenever config layers combine.
func OverlayVars(base *tree.Value, overrides map[string]any) *tree.Value {
	baseGo, _ := tree.ToGo(base).(map[string]any)
	if baseGo == nil {
		baseGo = map[string]any{}
	}
	merged := map[string]any{}
	for k, v := range baseGo {
		merged[k] = v
	}
	if err := mergo.Merge(&merged, map[string]any(overrides), mergo.WithOverride); err != nil {
		for k, v := range overrides {
			merged[k] = v
		}
	}
	return tree.FromGo(merged)
}
