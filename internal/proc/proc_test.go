package proc

import (
	"errors"
	"strings"
	"testing"

	"github.com/openhab/yamlpp/internal/tree"
)

// fakeRecurser records the arguments it was called with and returns a fixed
// (value, removed, error) triple, so each processor can be tested in
// isolation from the real walk.Engine.
type fakeRecurser struct {
	gotVars       *tree.Value
	gotPattern    tree.Pattern
	gotSubEnabled bool
	ret           *tree.Value
	retRemoved    bool
	retErr        error
}

func (f *fakeRecurser) Walk(v *tree.Value, vars *tree.Value, pattern tree.Pattern, subEnabled bool) (*tree.Value, bool, error) {
	f.gotVars = vars
	f.gotPattern = pattern
	f.gotSubEnabled = subEnabled
	if f.ret != nil {
		return f.ret, f.retRemoved, f.retErr
	}
	return v, f.retRemoved, f.retErr
}

func TestSubEnablesInterpolation(t *testing.T) {
	payload := tree.NewString("x")
	vars := tree.NewMap()
	f := &fakeRecurser{}

	out, removed, err := Sub(payload, vars, tree.DefaultPattern, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatal("unexpected removal")
	}
	if !f.gotSubEnabled {
		t.Fatal("Sub must enable substitution on the recursive call")
	}
	if out != payload {
		t.Fatal("Sub should pass the walked payload through")
	}
}

func TestSubPropagatesAbortError(t *testing.T) {
	f := &fakeRecurser{retErr: errors.New("max include depth exceeded")}

	_, _, err := Sub(tree.NewString("x"), tree.NewMap(), tree.DefaultPattern, f)
	if err == nil {
		t.Fatal("Sub must propagate an abort error from the recursive walk")
	}
}

func TestNoSubDisablesInterpolationAndResetsPattern(t *testing.T) {
	payload := tree.NewString("x")
	vars := tree.NewMap()
	custom := tree.Pattern{Open: "<<", Close: ">>"}
	f := &fakeRecurser{}

	NoSub(payload, vars, f)
	if f.gotSubEnabled {
		t.Fatal("NoSub must disable substitution")
	}
	if f.gotPattern != tree.DefaultPattern {
		t.Fatalf("NoSub must reset to DefaultPattern, got %+v", f.gotPattern)
	}
	_ = custom
}

func TestIfTakesFirstTrueBranchThen(t *testing.T) {
	then1 := tree.NewString("branch1")
	b1 := tree.NewMap()
	b1.Set("if", tree.NewBool(true))
	b1.Set("then", then1)

	then2 := tree.NewString("branch2")
	b2 := tree.NewMap()
	b2.Set("if", tree.NewBool(true))
	b2.Set("then", then2)

	payload := tree.NewSeq(b1, b2)
	ctx := &Ctx{Warn: func(string) {}}
	f := &fakeRecurser{}

	out, removed, err := If(payload, tree.NewMap(), tree.DefaultPattern, false, ctx, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatal("unexpected removal")
	}
	if out != then1 {
		t.Fatal("If must short-circuit on the first true branch and never touch the second")
	}
}

func TestIfNoMatchRemoves(t *testing.T) {
	b1 := tree.NewMap()
	b1.Set("if", tree.NewBool(false))
	b1.Set("then", tree.NewString("nope"))

	ctx := &Ctx{Warn: func(string) {}}
	f := &fakeRecurser{}

	_, removed, err := If(tree.NewSeq(b1), tree.NewMap(), tree.DefaultPattern, false, ctx, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Fatal("If with no matching branch and no else must signal removal")
	}
}

func TestIfFallsThroughToElse(t *testing.T) {
	b1 := tree.NewMap()
	b1.Set("if", tree.NewBool(false))
	b1.Set("then", tree.NewString("nope"))
	elseVal := tree.NewString("fallback")
	b1.Set("else", elseVal)

	ctx := &Ctx{Warn: func(string) {}}
	f := &fakeRecurser{}

	out, removed, err := If(b1, tree.NewMap(), tree.DefaultPattern, false, ctx, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatal("unexpected removal")
	}
	if out != elseVal {
		t.Fatal("single-mapping If with a false condition must take else")
	}
}

func TestReplacePassesThroughAmbientScope(t *testing.T) {
	payload := tree.NewString("x")
	f := &fakeRecurser{}

	Replace(payload, tree.NewMap(), tree.DefaultPattern, true, f)
	if !f.gotSubEnabled {
		t.Fatal("Replace must preserve the ambient subEnabled flag, not force it")
	}
}

func TestIncludeMalformedPayloadWarnsAndReturnsNull(t *testing.T) {
	var warned string
	ctx := &Ctx{Warn: func(m string) { warned = m }}

	out, err := Include(tree.NewBool(true), tree.NewMap(), tree.DefaultPattern, ctx)
	if err != nil {
		t.Fatalf("a malformed directive must warn and continue, not abort: %v", err)
	}
	if out.Kind != tree.KindNull {
		t.Fatalf("expected Null, got %+v", out)
	}
	if warned == "" {
		t.Fatal("expected a warning for a malformed !include payload")
	}
}

// Circular inclusion is a category-2 error (spec.md §7): it must abort
// load() via a non-nil error, not warn-and-continue with Null.
func TestIncludeCircularDetection(t *testing.T) {
	ctx := &Ctx{
		BaseDir:      "/cfg",
		IncludeStack: []string{"/cfg/a.yaml", "/cfg/b.yaml"},
		MaxDepth:     10,
		Warn:         func(m string) { t.Fatalf("circular inclusion must abort, not warn: %s", m) },
	}

	out, err := Include(tree.NewString("b.yaml"), tree.NewMap(), tree.DefaultPattern, ctx)
	if err == nil {
		t.Fatal("expected a terminating error on circular inclusion")
	}
	if out != nil {
		t.Fatalf("expected a nil value alongside the abort error, got %+v", out)
	}
	if !strings.Contains(err.Error(), "Circular inclusion detected") {
		t.Fatalf("error %q does not name the circular-inclusion chain", err.Error())
	}
	if !strings.Contains(err.Error(), "/cfg/a.yaml -> /cfg/b.yaml -> /cfg/b.yaml") {
		t.Fatalf("error %q does not name the full include chain", err.Error())
	}
}

// Depth-limit breach is the other category-2 error (spec.md §7): same
// abort treatment as circular inclusion.
func TestIncludeDepthExceeded(t *testing.T) {
	ctx := &Ctx{
		BaseDir:  "/cfg",
		Depth:    2,
		MaxDepth: 2,
		Warn:     func(m string) { t.Fatalf("depth exceeded must abort, not warn: %s", m) },
	}

	out, err := Include(tree.NewString("c.yaml"), tree.NewMap(), tree.DefaultPattern, ctx)
	if err == nil {
		t.Fatal("expected a terminating error when depth is exceeded")
	}
	if out != nil {
		t.Fatalf("expected a nil value alongside the abort error, got %+v", out)
	}
	if !strings.Contains(err.Error(), "Maximum include depth") {
		t.Fatalf("error %q does not name the depth-limit breach", err.Error())
	}
}

func TestIncludeDelegatesToLoadFile(t *testing.T) {
	resolved := tree.NewString("loaded")
	var seenAbs string
	var seenOverrides map[string]any
	ctx := &Ctx{
		BaseDir:  "/cfg",
		MaxDepth: 32,
		Warn:     func(string) {},
		LoadFile: func(absPath string, baseVars *tree.Value, overrides map[string]any, stack []string, depth int) (*tree.Value, error) {
			seenAbs = absPath
			seenOverrides = overrides
			return resolved, nil
		},
	}

	payload := tree.NewString("sub/thing.yaml?flag&k=v")
	out, err := Include(payload, tree.NewMap(), tree.DefaultPattern, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != resolved {
		t.Fatal("Include must return exactly what LoadFile returns on success")
	}
	if seenAbs != "/cfg/sub/thing.yaml" {
		t.Fatalf("seenAbs = %q, want /cfg/sub/thing.yaml", seenAbs)
	}
	if seenOverrides["k"] != "v" || seenOverrides["flag"] != true {
		t.Fatalf("seenOverrides = %+v", seenOverrides)
	}
}

func TestIncludeLoadFileErrorWarnsAndReturnsNull(t *testing.T) {
	var warned string
	ctx := &Ctx{
		BaseDir:  "/cfg",
		MaxDepth: 32,
		Warn:     func(m string) { warned = m },
		LoadFile: func(absPath string, baseVars *tree.Value, overrides map[string]any, stack []string, depth int) (*tree.Value, error) {
			return nil, errors.New("boom")
		},
	}

	out, err := Include(tree.NewString("x.yaml"), tree.NewMap(), tree.DefaultPattern, ctx)
	if err != nil {
		t.Fatalf("an include IO error must warn and continue, not abort: %v", err)
	}
	if out.Kind != tree.KindNull {
		t.Fatalf("expected Null, got %+v", out)
	}
	if warned == "" {
		t.Fatal("expected a warning when LoadFile fails")
	}
}

func TestInsertMissingTemplateWarns(t *testing.T) {
	var warned string
	ctx := &Ctx{Templates: tree.NewMap(), Warn: func(m string) { warned = m }}
	f := &fakeRecurser{}

	out, removed, err := Insert(tree.NewString("nope"), tree.NewMap(), ctx, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatal("unexpected removal")
	}
	if out.Kind != tree.KindNull {
		t.Fatalf("expected Null, got %+v", out)
	}
	if warned == "" {
		t.Fatal("expected a template-not-found warning")
	}
}

func TestInsertOverlaysVarsAndWalksOpaque(t *testing.T) {
	templates := tree.NewMap()
	body := tree.NewString("body")
	templates.Set("greeting", body)

	ctx := &Ctx{Templates: templates, Warn: func(string) {}}
	f := &fakeRecurser{}

	payload := tree.NewMap()
	payload.Set("template", tree.NewString("greeting"))
	insertVars := tree.NewMap()
	insertVars.Set("name", tree.NewString("World"))
	payload.Set("vars", insertVars)

	parentVars := tree.NewMap()
	parentVars.Set("name", tree.NewString("parent"))
	parentVars.Set("other", tree.NewString("kept"))

	Insert(payload, parentVars, ctx, f)

	if f.gotSubEnabled {
		t.Fatal("Insert must walk the template body opaque (subEnabled=false)")
	}
	if f.gotPattern != tree.DefaultPattern {
		t.Fatal("Insert must reset to DefaultPattern for the template body")
	}
	if got := f.gotVars.Get("name").AsString(); got != "World" {
		t.Fatalf("insert-site vars must win over parent vars, got %q", got)
	}
	if got := f.gotVars.Get("other").AsString(); got != "kept" {
		t.Fatal("parent vars not overridden by the insert should still be present")
	}
}
