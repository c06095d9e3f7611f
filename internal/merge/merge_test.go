package merge

import (
	"testing"

	"github.com/openhab/yamlpp/internal/tree"
)

func noWarn(string) {}

func TestResolveMergeKeysFirstKeyWins(t *testing.T) {
	// { a: local, <<: {a: m1, b: m1} }
	m1 := tree.NewMap()
	m1.Set("a", tree.NewString("m1"))
	m1.Set("b", tree.NewString("m1"))

	target := tree.NewMap()
	target.Set("a", tree.NewString("local"))
	target.Keys = append(target.Keys, tree.NewPlaceholder(&tree.PlaceholderNode{Kind: tree.PhMergeKeyToken}))
	target.Vals = append(target.Vals, m1)

	out := ResolveMergeKeys(target, noWarn)
	if got := out.Get("a").AsString(); got != "local" {
		t.Fatalf("a = %q, want local", got)
	}
	if got := out.Get("b").AsString(); got != "m1" {
		t.Fatalf("b = %q, want m1", got)
	}
}

func TestResolveMergeKeysTwoMergesFirstWins(t *testing.T) {
	// <<: *m1, <<: *m2 where m1.k=a, m2.k=b -> k=a
	m1 := tree.NewMap()
	m1.Set("k", tree.NewString("a"))
	m2 := tree.NewMap()
	m2.Set("k", tree.NewString("b"))

	target := tree.NewMap()
	target.Keys = append(target.Keys,
		tree.NewPlaceholder(&tree.PlaceholderNode{Kind: tree.PhMergeKeyToken}),
		tree.NewPlaceholder(&tree.PlaceholderNode{Kind: tree.PhMergeKeyToken}),
	)
	target.Vals = append(target.Vals, m1, m2)

	out := ResolveMergeKeys(target, noWarn)
	if got := out.Get("k").AsString(); got != "a" {
		t.Fatalf("k = %q, want a", got)
	}
}

func TestResolveMergeKeysNonMapWarns(t *testing.T) {
	var warned string
	warn := func(msg string) { warned = msg }

	target := tree.NewMap()
	target.Keys = append(target.Keys, tree.NewPlaceholder(&tree.PlaceholderNode{Kind: tree.PhMergeKeyToken}))
	target.Vals = append(target.Vals, tree.NewString("not a map"))

	ResolveMergeKeys(target, warn)
	if warned != "Expected a mapping" {
		t.Fatalf("warned = %q, want 'Expected a mapping'", warned)
	}
}

func TestResolveMergeKeysNullIsSilentNoOp(t *testing.T) {
	var warned bool
	warn := func(string) { warned = true }

	target := tree.NewMap()
	target.Keys = append(target.Keys, tree.NewPlaceholder(&tree.PlaceholderNode{Kind: tree.PhMergeKeyToken}))
	target.Vals = append(target.Vals, tree.Null())

	out := ResolveMergeKeys(target, warn)
	if warned {
		t.Fatal("Null merge source should not warn")
	}
	if len(out.Keys) != 0 {
		t.Fatalf("expected empty result, got %d keys", len(out.Keys))
	}
}

// S3: package deep merge.
func TestMergePackagesDeepMerge(t *testing.T) {
	pkgThing := tree.NewMap()
	pkgThing.Set("scalar", tree.NewString("p"))
	pkgThing.Set("list1", tree.NewSeq(tree.NewString("p")))
	pkgThings := tree.NewMap()
	pkgThings.Set("t", pkgThing)
	pkg := tree.NewMap()
	pkg.Set("things", pkgThings)

	mainThing := tree.NewMap()
	mainThing.Set("main_only", tree.NewString("keep"))
	mainThing.Set("list1", tree.NewSeq(tree.NewString("m")))
	mainThings := tree.NewMap()
	mainThings.Set("t", mainThing)
	main := tree.NewMap()
	main.Set("things", mainThings)

	out := MergePackages(main, []*tree.Value{pkg})
	t2 := out.Get("things").Get("t")

	if got := t2.Get("scalar").AsString(); got != "p" {
		t.Fatalf("scalar = %q, want p", got)
	}
	if got := t2.Get("main_only").AsString(); got != "keep" {
		t.Fatalf("main_only = %q, want keep", got)
	}
	list1 := t2.Get("list1")
	if len(list1.Seq) != 2 || list1.Seq[0].AsString() != "p" || list1.Seq[1].AsString() != "m" {
		t.Fatalf("list1 = %+v, want [p m]", list1.Seq)
	}
}

// S4: !remove directive already occupies the key, so the package's
// contribution there is discarded wholesale - no recursion, no warning.
func TestMergePackagesRemoveWins(t *testing.T) {
	pkgThing := tree.NewMap()
	pkgThing.Set("label", tree.NewString("keep"))
	pkgThing.Set("scalar", tree.NewString("s"))
	pkgThings := tree.NewMap()
	pkgThings.Set("t", pkgThing)
	pkg := tree.NewMap()
	pkg.Set("things", pkgThings)

	mainThing := tree.NewMap()
	mainThing.Set("label", tree.NewPlaceholder(&tree.PlaceholderNode{Kind: tree.PhRemove}))
	mainThings := tree.NewMap()
	mainThings.Set("t", mainThing)
	main := tree.NewMap()
	main.Set("things", mainThings)

	out := MergePackages(main, []*tree.Value{pkg})
	t2 := out.Get("things").Get("t")

	if got := t2.Get("scalar").AsString(); got != "s" {
		t.Fatalf("scalar = %q, want s", got)
	}
	if label := t2.Get("label"); label == nil || label.Kind != tree.KindPlaceholder {
		t.Fatalf("label should remain an unresolved !remove placeholder for pass 2, got %+v", label)
	}
}

func TestOverlayVarsOverrideWins(t *testing.T) {
	base := tree.NewMap()
	base.Set("a", tree.NewString("base"))
	base.Set("b", tree.NewString("base"))

	overrides := map[string]any{"b": "override", "c": "new"}
	out := OverlayVars(base, overrides)

	if got := out.Get("a").AsString(); got != "base" {
		t.Fatalf("a = %q, want base", got)
	}
	if got := out.Get("b").AsString(); got != "override" {
		t.Fatalf("b = %q, want override", got)
	}
	if got := out.Get("c").AsString(); got != "new" {
		t.Fatalf("c = %q, want new", got)
	}
}
