// Package proc implements the Placeholder Processors (spec.md §4.4): one
// pure function per placeholder kind. Each consumes a Ctx describing the
// current file/variable scope and a Recurser to re-enter the tree walk for
// its payload. This package never imports internal/walk - the Engine that
// performs the walk lives there and implements Recurser, keeping the
// dependency one-directional.
package proc

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/openhab/yamlpp/internal/expr"
	"github.com/openhab/yamlpp/internal/interp"
	"github.com/openhab/yamlpp/internal/merge"
	"github.com/openhab/yamlpp/internal/tree"
)

// Recurser re-enters the RecursiveProcessor for a payload subtree under a
// given variable scope and substitution-pattern scope. The bool result
// reports whether the subtree resolved to removal (e.g. an !if with no
// matching branch, or a !remove placeholder reached during pass 2) - the
// caller's container (map/seq) must then drop the entry rather than keep
// whatever non-value comes back. A non-nil error reports a terminating
// condition (spec.md §7 item 2: circular inclusion, depth exceeded) that
// must abort the whole load() rather than resolve to Null and continue.
// Implemented by walk.Engine.
type Recurser interface {
	Walk(v *tree.Value, vars *tree.Value, pattern tree.Pattern, subEnabled bool) (*tree.Value, bool, error)
}

// Ctx is the static, per-file context threaded through every placeholder
// resolution in a single RecursiveProcessor pass.
type Ctx struct {
	Templates *tree.Value // KindMap of raw (unresolved) template bodies, by name
	BaseDir   string      // directory the current file resolves relative includes against
	RelPath   string      // config-root-relative path of the current file, for diagnostics

	IncludeStack []string // canonical absolute paths currently being loaded
	Depth        int
	MaxDepth     int

	Warn            func(string)
	IncludeObserver func(absPath string)

	// LoadFile resolves an !include target: parses and fully runs the load
	// pipeline for absPath, with baseVars overlaid by overrideVars. Errors
	// (parse failures, IO failures, circular inclusion, depth exceeded) are
	// all reported this way; the caller (Include, below) converts parse and
	// IO failures into a warning and a Null substitution, and passes a
	// circular-inclusion or depth-limit error raised inside the included
	// file back up so that it aborts the whole load(). Injected by
	// internal/pp to avoid a pp<->proc import cycle.
	LoadFile func(absPath string, baseVars *tree.Value, overrideVars map[string]any, stack []string, depth int) (*tree.Value, error)
}

func (c *Ctx) warn(msg string) {
	if c != nil && c.Warn != nil {
		c.Warn(msg)
	}
}

func scopeOf(vars *tree.Value, warn func(string)) *expr.Scope {
	return &expr.Scope{Vars: vars, Warn: warn}
}

// Sub implements SubstitutionProcessor (!sub[:pattern=...]): walks the
// payload with interpolation turned on under the given pattern.
func Sub(payload, vars *tree.Value, pattern tree.Pattern, w Recurser) (*tree.Value, bool, error) {
	return w.Walk(payload, vars, pattern, true)
}

// NoSub implements NoSubProcessor (!nosub): walks the payload with
// interpolation turned off, and resets the ambient pattern scope so any
// nested bare !sub (no explicit :pattern=) falls back to the default
// delimiters rather than inheriting whatever was active outside.
func NoSub(payload, vars *tree.Value, w Recurser) (*tree.Value, bool, error) {
	return w.Walk(payload, vars, tree.DefaultPattern, false)
}

// If implements IfProcessor (!if): payload is either a single mapping
// {if, then, else?} or a sequence of branch mappings ({if|elseif, then} ...
// optionally ending in a bare {else}). Branches are evaluated in order and
// short-circuit - the chosen branch is the only one ever walked; everything
// else is discarded untouched. No matching branch removes the node.
func If(payload, vars *tree.Value, pattern tree.Pattern, subEnabled bool, ctx *Ctx, w Recurser) (*tree.Value, bool, error) {
	branches := []*tree.Value{payload}
	if payload.Kind == tree.KindSeq {
		branches = payload.Seq
	}
	scope := scopeOf(vars, ctx.Warn)

	for _, b := range branches {
		if b.Kind != tree.KindMap {
			continue
		}
		cond := b.Get("if")
		if cond == nil && payload.Kind == tree.KindSeq {
			cond = b.Get("elseif")
		}
		if cond == nil {
			if elseVal := b.Get("else"); elseVal != nil {
				return w.Walk(elseVal, vars, pattern, subEnabled)
			}
			continue
		}
		if evalCond(cond, scope).Truthy() {
			if thenVal := b.Get("then"); thenVal != nil {
				return w.Walk(thenVal, vars, pattern, subEnabled)
			}
			return nil, true, nil
		}
		if len(branches) == 1 {
			if elseVal := b.Get("else"); elseVal != nil {
				return w.Walk(elseVal, vars, pattern, subEnabled)
			}
		}
	}
	return nil, true, nil
}

func evalCond(v *tree.Value, scope *expr.Scope) *tree.Value {
	if v.Kind == tree.KindString {
		return expr.Eval(v.Str, scope)
	}
	return v
}

// Replace implements ReplaceProcessor (!replace): strips the tag and
// returns the payload, recursed transparently under the ambient scope. Its
// effect on package composition comes entirely from PackageProcessor
// treating a !replace-tagged value as "already occupied" (internal/merge);
// here it is just another value.
func Replace(payload, vars *tree.Value, pattern tree.Pattern, subEnabled bool, w Recurser) (*tree.Value, bool, error) {
	return w.Walk(payload, vars, pattern, subEnabled)
}

// Include implements IncludeProcessor (!include). Accepts the scalar form
// (`path`, optionally with a `?k=v&flag` query fragment), and the mapping
// form ({file, vars}). The file/vars metadata is interpolated in the
// parent's active scope before resolution (transparent per spec.md §4.7);
// the included file's own content is opaque to the parent's pattern scope.
//
// Circular inclusion and depth-limit breach are category-2 errors
// (spec.md §7): they abort load() entirely rather than resolving this site
// to Null, so both are reported back to the caller as a non-nil error
// instead of going through ctx.warn. Malformed directives and include IO
// failures stay category 3/5 - warn and continue, same as before.
func Include(payload, vars *tree.Value, pattern tree.Pattern, ctx *Ctx) (*tree.Value, error) {
	scope := scopeOf(vars, ctx.Warn)
	ref, overrides, ok := parseRef(payload, pattern, scope)
	if !ok {
		ctx.warn("Malformed !include directive: expected a path or {file, vars}")
		return tree.Null(), nil
	}

	absPath := resolveRelative(ctx.BaseDir, ref)
	for _, p := range ctx.IncludeStack {
		if p == absPath {
			chain := append(append([]string{}, ctx.IncludeStack...), absPath)
			return nil, fmt.Errorf("Circular inclusion detected: %s", strings.Join(chain, " -> "))
		}
	}
	if ctx.Depth+1 > ctx.MaxDepth {
		return nil, fmt.Errorf("Maximum include depth of %d exceeded while including %q", ctx.MaxDepth, ref)
	}

	if ctx.IncludeObserver != nil {
		ctx.IncludeObserver(absPath)
	}
	newStack := append(append([]string{}, ctx.IncludeStack...), absPath)
	result, err := ctx.LoadFile(absPath, vars, overrides, newStack, ctx.Depth+1)
	if err != nil {
		// A circular-inclusion or depth-limit abort raised inside the
		// included file is terminating for this load() too.
		if msg := err.Error(); strings.HasPrefix(msg, "Circular inclusion detected") || strings.HasPrefix(msg, "Maximum include depth") {
			return nil, err
		}
		ctx.warn(friendlyFileError(err, ref))
		return tree.Null(), nil
	}
	return result, nil
}

// Insert implements InsertProcessor (!insert): looks the named template up
// in the current file's template table, overlays vars: onto the current
// scope (insert-site vars win), and processes the template body fresh -
// opaque to the parent's pattern scope, same as an include's payload.
func Insert(payload, vars *tree.Value, ctx *Ctx, w Recurser) (*tree.Value, bool, error) {
	scope := scopeOf(vars, ctx.Warn)
	name, overrides, ok := parseInsertRef(payload, scope)
	if !ok {
		ctx.warn("Malformed !insert directive: expected a template name or {template, vars}")
		return tree.Null(), false, nil
	}

	body := ctx.Templates.Get(name)
	if body == nil {
		ctx.warn(fmt.Sprintf("Template not found: %q", name))
		return tree.Null(), false, nil
	}

	overlay := merge.OverlayVars(vars, overrides)
	return w.Walk(body, overlay, tree.DefaultPattern, false)
}

// parseRef extracts the include target path and a raw override-vars map
// from an !include payload, interpolating the file/vars metadata strings
// against the parent scope as it goes.
func parseRef(payload *tree.Value, pattern tree.Pattern, scope *expr.Scope) (string, map[string]any, bool) {
	switch payload.Kind {
	case tree.KindString:
		path, query := splitQuery(payload.Str)
		path = interp.Interpolate(path, pattern, scope).AsString()
		return path, queryToVars(query), true
	case tree.KindMap:
		fileVal := payload.Get("file")
		if fileVal == nil {
			return "", nil, false
		}
		file := interpolateMetadata(fileVal, pattern, scope).AsString()
		overrides := map[string]any{}
		if varsVal := payload.Get("vars"); varsVal != nil && varsVal.Kind == tree.KindMap {
			for i, k := range varsVal.Keys {
				overrides[k.AsString()] = tree.ToGo(interpolateMetadata(varsVal.Vals[i], pattern, scope))
			}
		}
		return file, overrides, true
	default:
		return "", nil, false
	}
}

func parseInsertRef(payload *tree.Value, scope *expr.Scope) (string, map[string]any, bool) {
	switch payload.Kind {
	case tree.KindString:
		return payload.Str, nil, true
	case tree.KindMap:
		nameVal := payload.Get("template")
		if nameVal == nil {
			return "", nil, false
		}
		name := interpolateMetadata(nameVal, tree.DefaultPattern, scope).AsString()
		overrides := map[string]any{}
		if varsVal := payload.Get("vars"); varsVal != nil && varsVal.Kind == tree.KindMap {
			for i, k := range varsVal.Keys {
				overrides[k.AsString()] = tree.ToGo(interpolateMetadata(varsVal.Vals[i], tree.DefaultPattern, scope))
			}
		}
		return name, overrides, true
	default:
		return "", nil, false
	}
}

func interpolateMetadata(v *tree.Value, pattern tree.Pattern, scope *expr.Scope) *tree.Value {
	if v.Kind != tree.KindString {
		return v
	}
	return interp.Interpolate(v.Str, pattern, scope)
}

func splitQuery(s string) (path, query string) {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func queryToVars(query string) map[string]any {
	if query == "" {
		return nil
	}
	out := map[string]any{}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		if i := strings.IndexByte(pair, '='); i >= 0 {
			out[queryUnescape(pair[:i])] = queryUnescape(pair[i+1:])
		} else {
			out[queryUnescape(pair)] = true
		}
	}
	return out
}

// queryUnescape URL-decodes one query-fragment key or value, keeping the
// raw text when it is not a valid escape sequence.
func queryUnescape(s string) string {
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}
	return s
}

func resolveRelative(baseDir, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Clean(filepath.Join(baseDir, ref))
}

func friendlyFileError(err error, ref string) string {
	return fmt.Sprintf("Could not include %q: %s", ref, err.Error())
}
