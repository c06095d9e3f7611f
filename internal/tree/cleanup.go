package tree

import "strings"

// Cleanup recursively drops Null map keys and keys beginning with "." from
// v, per spec.md §3's invariants. It mutates and returns v.
func Cleanup(v *Value) *Value {
	if v == nil {
		return v
	}
	switch v.Kind {
	case KindMap:
		keys := make([]*Value, 0, len(v.Keys))
		vals := make([]*Value, 0, len(v.Vals))
		for i, k := range v.Keys {
			if IsNull(k) {
				continue
			}
			if k.Kind == KindString && strings.HasPrefix(k.Str, ".") {
				continue
			}
			keys = append(keys, k)
			vals = append(vals, Cleanup(v.Vals[i]))
		}
		v.Keys, v.Vals = keys, vals
	case KindSeq:
		for i, item := range v.Seq {
			v.Seq[i] = Cleanup(item)
		}
	}
	return v
}
