// Package tree defines the in-memory representation of a preprocessed
// YAML document: a tagged union of scalars, sequences, ordered mappings,
// and placeholder nodes awaiting resolution.
package tree

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind discriminates the variant stored in a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSeq
	KindMap
	KindPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	case KindPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Pos is a 1-based source position, used for diagnostics.
type Pos struct {
	Line   int
	Column int
}

// Value is a tagged-union YAML node. Exactly one of the typed fields is
// meaningful, selected by Kind. Map preserves insertion order via Keys/Vals
// running in parallel.
type Value struct {
	Kind Kind
	Pos  Pos

	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Seq    []*Value
	Keys   []*Value // parallel to Vals; Kind == KindMap only
	Vals   []*Value
	Holder *PlaceholderNode // Kind == KindPlaceholder only
}

// Null returns the Null singleton-shaped value (a fresh instance, since
// Value carries position info that must not be shared).
func Null() *Value { return &Value{Kind: KindNull} }

func NewBool(b bool) *Value { return &Value{Kind: KindBool, Bool: b} }

func NewInt(i int64) *Value { return &Value{Kind: KindInt, Int: i} }

func NewFloat(f float64) *Value { return &Value{Kind: KindFloat, Float: f} }

func NewString(s string) *Value { return &Value{Kind: KindString, Str: s} }

func NewSeq(items ...*Value) *Value { return &Value{Kind: KindSeq, Seq: items} }

// NewMap creates an empty, insertion-ordered mapping.
func NewMap() *Value { return &Value{Kind: KindMap} }

// IsNull reports whether v is nil or the Null variant.
func IsNull(v *Value) bool { return v == nil || v.Kind == KindNull }

// Clone performs a deep copy, used whenever a subtree must be duplicated
// to avoid aliasing (e.g. package and variable merging in internal/merge).
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{Kind: v.Kind, Pos: v.Pos, Bool: v.Bool, Int: v.Int, Float: v.Float, Str: v.Str}
	switch v.Kind {
	case KindSeq:
		out.Seq = make([]*Value, len(v.Seq))
		for i, item := range v.Seq {
			out.Seq[i] = item.Clone()
		}
	case KindMap:
		out.Keys = make([]*Value, len(v.Keys))
		out.Vals = make([]*Value, len(v.Vals))
		for i := range v.Keys {
			out.Keys[i] = v.Keys[i].Clone()
			out.Vals[i] = v.Vals[i].Clone()
		}
	case KindPlaceholder:
		if v.Holder != nil {
			clone := *v.Holder
			clone.Payload = v.Holder.Payload.Clone()
			out.Holder = &clone
		}
	}
	return out
}

// Get returns the value mapped to a string key, or nil if absent / not a map.
func (v *Value) Get(key string) *Value {
	if v == nil || v.Kind != KindMap {
		return nil
	}
	for i, k := range v.Keys {
		if k.Kind == KindString && k.Str == key {
			return v.Vals[i]
		}
	}
	return nil
}

// Set inserts or overwrites a string-keyed entry, preserving insertion order
// for new keys and in-place replacement for existing ones.
func (v *Value) Set(key string, val *Value) {
	if v.Kind != KindMap {
		return
	}
	for i, k := range v.Keys {
		if k.Kind == KindString && k.Str == key {
			v.Vals[i] = val
			return
		}
	}
	v.Keys = append(v.Keys, NewString(key))
	v.Vals = append(v.Vals, val)
}

// Delete removes a string-keyed entry if present.
func (v *Value) Delete(key string) {
	if v.Kind != KindMap {
		return
	}
	for i, k := range v.Keys {
		if k.Kind == KindString && k.Str == key {
			v.Keys = append(v.Keys[:i], v.Keys[i+1:]...)
			v.Vals = append(v.Vals[:i], v.Vals[i+1:]...)
			return
		}
	}
}

// Has reports whether key is present in a map value.
func (v *Value) Has(key string) bool {
	if v == nil || v.Kind != KindMap {
		return false
	}
	for _, k := range v.Keys {
		if k.Kind == KindString && k.Str == key {
			return true
		}
	}
	return false
}

// Truthy implements the spec's truthiness rule: falsy = null, false, 0,
// empty string (after trimming whitespace-only strings), empty list, empty
// map, the string 'false'. Everything else is truthy.
func (v *Value) Truthy() bool {
	if IsNull(v) {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		trimmed := trimSpace(v.Str)
		if trimmed == "" {
			return false
		}
		if trimmed == "false" {
			return false
		}
		return true
	case KindSeq:
		return len(v.Seq) > 0
	case KindMap:
		return len(v.Keys) > 0
	default:
		return true
	}
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// AsString renders v using the standard scalar-to-string conversion used
// when splicing interpolation results back into literal text.
func (v *Value) AsString() string {
	if IsNull(v) {
		return ""
	}
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	default:
		return fmt.Sprintf("%v", toGo(v))
	}
}

// Equal implements structural equality, per spec.md §3.
func Equal(a, b *Value) bool {
	an, bn := IsNull(a), IsNull(b)
	if an || bn {
		return an && bn
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString:
		return a.Str == b.Str
	case KindSeq:
		if len(a.Seq) != len(b.Seq) {
			return false
		}
		for i := range a.Seq {
			if !Equal(a.Seq[i], b.Seq[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.Keys) != len(b.Keys) {
			return false
		}
		for i := range a.Keys {
			if !Equal(a.Keys[i], b.Keys[i]) || !Equal(a.Vals[i], b.Vals[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// toGo converts a Value into a plain Go any, used by collection-returning
// filters (VARS, dig results passed to method calls) and diagnostics.
func toGo(v *Value) any {
	if IsNull(v) {
		return nil
	}
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindSeq:
		out := make([]any, len(v.Seq))
		for i, item := range v.Seq {
			out[i] = toGo(item)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Keys))
		for i, k := range v.Keys {
			out[k.AsString()] = toGo(v.Vals[i])
		}
		return out
	default:
		return nil
	}
}

// ToGo is the exported form of toGo, used by callers outside this package
// that need a plain Go representation (e.g. YAML marshaling in the CLI).
func ToGo(v *Value) any { return toGo(v) }

// FromGo is the inverse of ToGo: it builds a Value tree out of plain Go
// values produced by YAML unmarshaling or by library calls (e.g. mergo)
// that operate on map[string]any. Map key order is not meaningful for
// these values, so keys are emitted in sorted order for determinism.
func FromGo(v any) *Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return NewBool(t)
	case int:
		return NewInt(int64(t))
	case int64:
		return NewInt(t)
	case float64:
		return NewFloat(t)
	case string:
		return NewString(t)
	case []any:
		out := make([]*Value, len(t))
		for i, item := range t {
			out[i] = FromGo(item)
		}
		return NewSeq(out...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewMap()
		for _, k := range keys {
			out.Set(k, FromGo(t[k]))
		}
		return out
	default:
		return NewString(fmt.Sprintf("%v", t))
	}
}
