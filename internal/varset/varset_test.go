package varset

import (
	"testing"

	"github.com/openhab/yamlpp/internal/proc"
	"github.com/openhab/yamlpp/internal/tree"
	"github.com/openhab/yamlpp/internal/walk"
)

func engineFor(vars *tree.Value) *walk.Engine {
	return &walk.Engine{
		Ctx:    &proc.Ctx{Warn: func(string) {}},
		Filter: walk.PassOne,
	}
}

func TestResolveVariablesSeedIsBase(t *testing.T) {
	seed := tree.NewMap()
	seed.Set("OPENHAB_CONF", tree.NewString("/conf"))

	out, err := ResolveVariables(nil, seed, nil, engineFor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Get("OPENHAB_CONF").AsString(); got != "/conf" {
		t.Fatalf("got %q, want /conf", got)
	}
}

func TestResolveVariablesLaterReferencesEarlier(t *testing.T) {
	raw := tree.NewMap()
	raw.Set("first", tree.NewString("a"))
	second := tree.NewPlaceholder(&tree.PlaceholderNode{
		Kind:    tree.PhSub,
		Payload: tree.NewString("${first}b"),
	})
	raw.Set("second", second)

	out, err := ResolveVariables(raw, tree.NewMap(), nil, engineFor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Get("second").AsString(); got != "ab" {
		t.Fatalf("got %q, want ab", got)
	}
}

func TestResolveVariablesProtectedNamesCannotBeOverridden(t *testing.T) {
	seed := tree.NewMap()
	seed.Set("__FILE__", tree.NewString("/a/b.yaml"))

	raw := tree.NewMap()
	raw.Set("__FILE__", tree.NewString("attempted-override"))

	protected := map[string]bool{"__FILE__": true}
	out, err := ResolveVariables(raw, seed, protected, engineFor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := out.Get("__FILE__").AsString(); got != "/a/b.yaml" {
		t.Fatalf("__FILE__ = %q, want untouched seed value", got)
	}
}

func TestResolveVariablesRemovedEntrySkipped(t *testing.T) {
	removeNode := tree.NewPlaceholder(&tree.PlaceholderNode{Kind: tree.PhIf, Payload: tree.NewSeq(
		func() *tree.Value {
			b := tree.NewMap()
			b.Set("if", tree.NewBool(false))
			b.Set("then", tree.NewString("unused"))
			return b
		}(),
	)})

	raw := tree.NewMap()
	raw.Set("maybe", removeNode)

	out, err := ResolveVariables(raw, tree.NewMap(), nil, engineFor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Has("maybe") {
		t.Fatal("a variable whose value resolves to removal must not appear in the result")
	}
}

// A variables: entry whose value hits a depth-exceeded !include must abort
// the whole resolution (spec.md §7 item 2), not silently drop that entry.
func TestResolveVariablesPropagatesAbortError(t *testing.T) {
	includeNode := tree.NewPlaceholder(&tree.PlaceholderNode{
		Kind:    tree.PhInclude,
		Payload: tree.NewString("deep.yaml"),
	})
	raw := tree.NewMap()
	raw.Set("broken", includeNode)

	deepEngineFor := func(vars *tree.Value) *walk.Engine {
		return &walk.Engine{
			Ctx: &proc.Ctx{
				BaseDir:  ".",
				Depth:    5,
				MaxDepth: 5,
				Warn:     func(string) {},
			},
			Filter: walk.PassOne,
		}
	}

	_, err := ResolveVariables(raw, tree.NewMap(), nil, deepEngineFor)
	if err == nil {
		t.Fatal("expected the depth-exceeded abort to propagate out of ResolveVariables")
	}
}

func TestExtractTemplatesNilIsEmptyMap(t *testing.T) {
	out := ExtractTemplates(nil)
	if out.Kind != tree.KindMap || len(out.Keys) != 0 {
		t.Fatalf("got %+v, want empty map", out)
	}
}

func TestExtractTemplatesReturnsRawUnresolved(t *testing.T) {
	raw := tree.NewMap()
	body := tree.NewPlaceholder(&tree.PlaceholderNode{Kind: tree.PhSub, Payload: tree.NewString("${x}")})
	raw.Set("t1", body)

	out := ExtractTemplates(raw)
	if out.Get("t1") != body {
		t.Fatal("ExtractTemplates must not resolve template bodies")
	}
}

func TestInterpolateStringUsesDefaultPattern(t *testing.T) {
	vars := tree.NewMap()
	vars.Set("x", tree.NewString("y"))

	out := InterpolateString("${x}", vars, func(string) {})
	if out.AsString() != "y" {
		t.Fatalf("got %q, want y", out.AsString())
	}
}
