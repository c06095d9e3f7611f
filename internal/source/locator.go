// Package source maps top-level document keys to their (line, column)
// position in the original YAML bytes, for use in diagnostics.
package source

import "github.com/openhab/yamlpp/internal/tree"

// Locator records, for each top-level key of a document, the source
// position of that key's value, keyed by key name. Built once per file by
// internal/pp from the loaded root, before any top-level key is consumed.
type Locator struct {
	positions map[string]tree.Pos
}

// NewLocator builds a Locator from a parsed, still-tagged root map value.
func NewLocator(root *tree.Value) *Locator {
	l := &Locator{positions: map[string]tree.Pos{}}
	if root == nil || root.Kind != tree.KindMap {
		return l
	}
	for i, k := range root.Keys {
		if k.Kind == tree.KindString {
			l.positions[k.Str] = root.Vals[i].Pos
		}
	}
	return l
}

// Position returns the (line, column) of a top-level key, or the zero Pos
// if the key was not present at the top level.
func (l *Locator) Position(key string) tree.Pos {
	if l == nil {
		return tree.Pos{}
	}
	return l.positions[key]
}
