// Package walk implements the RecursiveProcessor (spec.md §4.5): a
// depth-first rewrite of the tree that dispatches placeholder nodes to
// internal/proc, threads the substitution-pattern scope per the
// opacity/transparency contract (spec.md §4.7), and interpolates string
// scalars wherever substitution is currently enabled.
package walk

import (
	"github.com/openhab/yamlpp/internal/expr"
	"github.com/openhab/yamlpp/internal/interp"
	"github.com/openhab/yamlpp/internal/proc"
	"github.com/openhab/yamlpp/internal/tree"
)

// KindSet is the set of placeholder kinds a pass resolves; any placeholder
// kind not in the set is left untouched (preserved verbatim) for a later
// pass.
type KindSet map[tree.PlaceholderKind]bool

// PassOne resolves Sub, If, Include and Insert - the dynamic-content
// placeholders (spec.md §4.8 step 9).
var PassOne = KindSet{
	tree.PhSub:     true,
	tree.PhIf:      true,
	tree.PhInclude: true,
	tree.PhInsert:  true,
}

// PassTwo resolves Remove and Replace, run after merge-key and package
// composition so both directives can affect package merging first
// (spec.md §4.8 step 12).
var PassTwo = KindSet{
	tree.PhRemove:  true,
	tree.PhReplace: true,
}

// Engine runs one RecursiveProcessor pass over a tree. It implements
// proc.Recurser - the processors themselves stay free of any dependency
// back on this package.
type Engine struct {
	Ctx    *proc.Ctx
	Filter KindSet
}

// Walk rewrites v depth-first under vars/pattern/subEnabled, dispatching
// placeholder nodes whose kind is in e.Filter and interpolating string
// scalars when subEnabled is true. The bool result reports whether v
// itself resolved to removal (a !remove placeholder, or an !if with no
// matching branch); map/seq containers use it to drop the entry entirely
// rather than keep a nil value. A non-nil error is a terminating condition
// (spec.md §7 item 2: circular inclusion, depth exceeded) and aborts the
// walk immediately - callers must stop descending and propagate it rather
// than keep merging sibling results. Satisfies proc.Recurser.
func (e *Engine) Walk(v *tree.Value, vars *tree.Value, pattern tree.Pattern, subEnabled bool) (*tree.Value, bool, error) {
	if v == nil {
		return tree.Null(), false, nil
	}
	switch v.Kind {
	case tree.KindPlaceholder:
		return e.dispatch(v, vars, pattern, subEnabled)
	case tree.KindString:
		if !subEnabled {
			return v, false, nil
		}
		return interp.Interpolate(v.Str, pattern, &expr.Scope{Vars: vars, Warn: e.Ctx.Warn}), false, nil
	case tree.KindMap:
		out, err := e.walkMap(v, vars, pattern, subEnabled)
		return out, false, err
	case tree.KindSeq:
		out := make([]*tree.Value, 0, len(v.Seq))
		for _, item := range v.Seq {
			newItem, removed, err := e.Walk(item, vars, pattern, subEnabled)
			if err != nil {
				return nil, false, err
			}
			if removed {
				continue
			}
			out = append(out, newItem)
		}
		return &tree.Value{Kind: tree.KindSeq, Pos: v.Pos, Seq: out}, false, nil
	default:
		return v, false, nil
	}
}

// WalkRoot runs Walk at document scope, where spec.md §4.4 calls for a
// removed root (e.g. a bare !remove) to become an empty mapping rather than
// disappearing.
func (e *Engine) WalkRoot(v *tree.Value, vars *tree.Value) (*tree.Value, error) {
	out, removed, err := e.Walk(v, vars, tree.DefaultPattern, false)
	if err != nil {
		return nil, err
	}
	if removed || out == nil {
		return tree.NewMap(), nil
	}
	return out, nil
}

func (e *Engine) walkMap(v *tree.Value, vars *tree.Value, pattern tree.Pattern, subEnabled bool) (*tree.Value, error) {
	out := tree.NewMap()
	out.Pos = v.Pos
	for i, k := range v.Keys {
		val := v.Vals[i]
		if k.Kind == tree.KindPlaceholder && k.Holder.Kind == tree.PhMergeKeyToken {
			newVal, removed, err := e.Walk(val, vars, pattern, subEnabled)
			if err != nil {
				return nil, err
			}
			if removed {
				continue
			}
			out.Keys = append(out.Keys, k)
			out.Vals = append(out.Vals, newVal)
			continue
		}
		newKey, keyRemoved, err := e.Walk(k, vars, pattern, subEnabled)
		if err != nil {
			return nil, err
		}
		if keyRemoved {
			continue
		}
		newVal, valRemoved, err := e.Walk(val, vars, pattern, subEnabled)
		if err != nil {
			return nil, err
		}
		if valRemoved {
			continue
		}
		out.Keys = append(out.Keys, newKey)
		out.Vals = append(out.Vals, newVal)
	}
	return out, nil
}

func (e *Engine) dispatch(v *tree.Value, vars *tree.Value, pattern tree.Pattern, subEnabled bool) (*tree.Value, bool, error) {
	node := v.Holder

	// !nosub is a scope toggle, not a resolvable kind gated by e.Filter: it
	// must always unwrap so its payload gets visited by whichever pass is
	// currently running.
	if node.Kind == tree.PhNoSub {
		return proc.NoSub(node.Payload, vars, e)
	}
	if node.Kind == tree.PhMergeKeyToken {
		return v, false, nil
	}
	if !e.Filter[node.Kind] {
		return v, false, nil
	}

	switch node.Kind {
	case tree.PhSub:
		p := pattern
		if node.Pattern != nil {
			p = *node.Pattern
		}
		return proc.Sub(node.Payload, vars, p, e)
	case tree.PhIf:
		return proc.If(node.Payload, vars, pattern, subEnabled, e.Ctx, e)
	case tree.PhInclude:
		val, err := proc.Include(node.Payload, vars, pattern, e.Ctx)
		return val, false, err
	case tree.PhInsert:
		return proc.Insert(node.Payload, vars, e.Ctx, e)
	case tree.PhRemove:
		return nil, true, nil
	case tree.PhReplace:
		return proc.Replace(node.Payload, vars, pattern, subEnabled, e)
	}
	return v, false, nil
}
