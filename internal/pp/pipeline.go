package pp

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/openhab/yamlpp/internal/config"
	"github.com/openhab/yamlpp/internal/diag"
	"github.com/openhab/yamlpp/internal/include"
	"github.com/openhab/yamlpp/internal/loader"
	"github.com/openhab/yamlpp/internal/merge"
	"github.com/openhab/yamlpp/internal/proc"
	"github.com/openhab/yamlpp/internal/source"
	"github.com/openhab/yamlpp/internal/tree"
	"github.com/openhab/yamlpp/internal/varset"
	"github.com/openhab/yamlpp/internal/walk"
)

// SkipError is returned when a top-level file's preprocessor.load_into_openhab
// setting is false (spec.md §6, §7 taxonomy item 8): a terminating but
// non-exceptional "processing skipped" signal.
type SkipError struct {
	RelativePath string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("processing skipped: %s has preprocessor.load_into_openhab: false", e.RelativePath)
}

// IncludeObserver is invoked once per distinct included file (spec.md §6).
type IncludeObserver func(path string)

// Options configures a Load call. The zero value is not ready to use;
// call DefaultOptions.
type Options struct {
	ConfigRoot string // OPENHAB_CONF-equivalent root used for RelativePath diagnostics
	MaxDepth   int
	Printer    diag.Printer
}

// DefaultOptions builds Options from internal/config's layered defaults,
// rooted at the current working directory.
func DefaultOptions() Options {
	cfg := config.NewDefault()
	root, _ := os.Getwd()
	return Options{
		ConfigRoot: root,
		MaxDepth:   cfg.Include.MaxDepth,
		Printer:    diag.DefaultPrinter(),
	}
}

// Load runs the full preprocessing pipeline (spec.md §4.8) on path and
// returns the resolved tree. observer, if non-nil, is invoked once per
// distinct file reached via !include.
func Load(path string, observer IncludeObserver) (*tree.Value, error) {
	return LoadWithOptions(path, observer, DefaultOptions())
}

// LoadWithOptions is Load with explicit Options (config root, include depth
// limit, diagnostic formatting).
func LoadWithOptions(path string, observer IncludeObserver, opts Options) (*tree.Value, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, newPlainError(fmt.Sprintf("cannot resolve path %q: %s", path, err))
	}

	session := newLogSession(opts.Printer)
	cache := include.NewCache()

	pl := &pipeline{
		cache:    cache,
		session:  session,
		opts:     opts,
		observer: observer,
	}

	result, err := pl.loadFile(absPath, nil, nil, nil, 0)
	session.flush(relativeTo(opts.ConfigRoot, absPath))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// pipeline carries the state shared across one Load call and every file it
// transitively includes: the IncludeCache, the LogSession, and the
// caller's options/observer. One pipeline per top-level Load invocation.
type pipeline struct {
	cache    *include.Cache
	session  *LogSession
	opts     Options
	observer IncludeObserver
	observed map[string]bool
}

// loadFile is the per-file body of the pipeline (spec.md §4.8 steps 1-15).
// baseVars is the parent scope (nil at the top level); overrideVars are the
// !include/!insert vars: overrides to overlay on top before predefined vars
// are (re-)applied; stack is the include chain so far including this file.
func (pl *pipeline) loadFile(absPath string, baseVars *tree.Value, overrideVars map[string]any, stack []string, depth int) (*tree.Value, error) {
	relPath := relativeTo(pl.opts.ConfigRoot, absPath)

	// stack, as passed in by proc.Include, already ends with absPath (it
	// builds parentStack+[absPath] before invoking LoadFile); the top-level
	// call passes an empty stack, so this file is its own first entry.
	includeStack := stack
	if len(includeStack) == 0 || includeStack[len(includeStack)-1] != absPath {
		includeStack = append(append([]string{}, stack...), absPath)
	}

	// Steps 1-2: acquire bytes via the shared IncludeCache. Include-stack
	// cycle detection and depth-limiting (spec.md §4.4) already happened in
	// proc.Include before it invoked this function via ctx.LoadFile - the
	// only caller that reaches loadFile with a non-empty stack - so there is
	// nothing left to validate here.
	entry, err := pl.cache.Read(absPath)
	if err != nil {
		return nil, newPlainError(friendlyIOError(err, relPath))
	}

	// Step 3: predefined variables and overlay of parent/override vars.
	scopeVars := merge.OverlayVars(baseVars, overrideVars)
	predef := predefinedVars(absPath)
	for i, k := range predef.Keys {
		scopeVars.Set(k.AsString(), predef.Vals[i])
	}

	// Step 4: parse.
	root, perr := loader.Load(entry.Bytes)
	if perr != nil {
		if pe, ok := perr.(*loader.ParseError); ok {
			return nil, newLocatedError(relPath, pe.Line, pe.Column, pe.Class, pe.Message)
		}
		return nil, newPlainError(perr.Error())
	}

	// Step 5: non-mapping root returns as-is, except that a bare !remove
	// document yields an empty mapping.
	if root.Kind != tree.KindMap {
		if root.Kind == tree.KindPlaceholder && root.Holder.Kind == tree.PhRemove {
			return tree.NewMap(), nil
		}
		return root, nil
	}

	warn := func(msg string) { pl.session.warn(relPath, msg) }

	// Step 3 (cont'd): SourceLocator, built from the still-tagged root
	// before any top-level key is consumed, so later steps can attach a
	// (line,column) to diagnostics about a reserved top-level key's shape.
	loc := source.NewLocator(root)

	// Step 6: variables:.
	rawVars := root.Get("variables")
	root.Delete("variables")
	engineFor := func(vars *tree.Value) *walk.Engine {
		return &walk.Engine{Ctx: pl.ctxFor(absPath, relPath, vars, nil, includeStack, depth, warn), Filter: walk.PassOne}
	}
	vars, err := varset.ResolveVariables(rawVars, scopeVars, predefinedNames, engineFor)
	if err != nil {
		return nil, newPlainError(err.Error())
	}

	// Step 7: templates:.
	rawTemplates := root.Get("templates")
	root.Delete("templates")
	templates := varset.ExtractTemplates(rawTemplates)

	// Step 8: packages: extraction, deferred to step 11.
	rawPackages := root.Get("packages")
	root.Delete("packages")
	if rawPackages != nil && rawPackages.Kind != tree.KindMap {
		pos := loc.Position("packages")
		warn(fmt.Sprintf("Expected a mapping for top-level 'packages' at %s:%d:%d", relPath, pos.Line, pos.Column))
		rawPackages = nil
	}

	ctx := pl.ctxFor(absPath, relPath, vars, templates, includeStack, depth, warn)

	// Step 9: pass 1 (Sub, If, Include, Insert) over the main document.
	passOne := &walk.Engine{Ctx: ctx, Filter: walk.PassOne}
	root, err = passOne.WalkRoot(root, vars)
	if err != nil {
		return nil, newPlainError(err.Error())
	}

	// Step 10: merge keys in the main document.
	root = merge.ResolveMergeKeys(root, warn)

	// Step 11: packages, walked and merge-keyed the same way, then folded
	// into the main document in declaration order (spec.md §4.9).
	if rawPackages != nil && rawPackages.Kind == tree.KindMap {
		var packages []*tree.Value
		for i, k := range rawPackages.Keys {
			pkgID := k.AsString()
			pkgVars := vars.Clone()
			pkgVars.Set("package_id", tree.NewString(pkgID))
			pkgCtx := pl.ctxFor(absPath, relPath, pkgVars, templates, includeStack, depth, warn)
			pkgEngine := &walk.Engine{Ctx: pkgCtx, Filter: walk.PassOne}
			pkgVal, err := pkgEngine.WalkRoot(rawPackages.Vals[i], pkgVars)
			if err != nil {
				return nil, newPlainError(err.Error())
			}
			pkgVal = merge.ResolveMergeKeys(pkgVal, warn)
			packages = append(packages, pkgVal)
		}
		root = merge.MergePackages(root, packages)
	}

	// Step 12: pass 2 (Remove, Replace), run after merge-key/package
	// composition so both directives can still affect it.
	passTwo := &walk.Engine{Ctx: ctx, Filter: walk.PassTwo}
	root, err = passTwo.WalkRoot(root, vars)
	if err != nil {
		return nil, newPlainError(err.Error())
	}

	// Step 13: cleanup - drop Null keys and hidden (`.`-prefixed) keys.
	root = tree.Cleanup(root)

	// Step 14: in-file preprocessor: settings (top-level file only).
	if depth == 0 {
		if skip := pl.checkPreprocessorSettings(root, relPath, loc, warn); skip != nil {
			return nil, skip
		}
	}
	root.Delete("preprocessor")

	return root, nil
}

// ctxFor builds the per-file proc.Ctx, wiring LoadFile back into this
// pipeline's loadFile so !include can recurse without internal/proc ever
// importing internal/pp. includeStack must already end with absPath.
func (pl *pipeline) ctxFor(absPath, relPath string, vars, templates *tree.Value, includeStack []string, depth int, warn func(string)) *proc.Ctx {
	return &proc.Ctx{
		Templates:       templates,
		BaseDir:         filepath.Dir(absPath),
		RelPath:         relPath,
		IncludeStack:    includeStack,
		Depth:           depth,
		MaxDepth:        pl.opts.MaxDepth,
		Warn:            warn,
		IncludeObserver: pl.observeInclude,
		LoadFile: func(childAbs string, baseVars *tree.Value, overrides map[string]any, childStack []string, childDepth int) (*tree.Value, error) {
			return pl.loadFile(childAbs, baseVars, overrides, childStack, childDepth)
		},
	}
}

func (pl *pipeline) observeInclude(absPath string) {
	if pl.observer == nil || pl.observed[absPath] {
		return
	}
	if pl.observed == nil {
		pl.observed = map[string]bool{}
	}
	pl.observed[absPath] = true
	pl.observer(absPath)
}

// checkPreprocessorSettings implements the preprocessor: block's
// load_into_openhab setting. generate_resolved_file is not acted on: the
// whole preprocessor: block is removed from the result and no resolved
// file is written.
func (pl *pipeline) checkPreprocessorSettings(root *tree.Value, relPath string, loc *source.Locator, warn func(string)) error {
	block := root.Get("preprocessor")
	if block == nil {
		return nil
	}
	if block.Kind != tree.KindMap {
		pos := loc.Position("preprocessor")
		warn(fmt.Sprintf("Expected a mapping for top-level 'preprocessor' at %s:%d:%d", relPath, pos.Line, pos.Column))
		return nil
	}
	if v := block.Get("load_into_openhab"); v != nil && !v.Truthy() {
		return &SkipError{RelativePath: relPath}
	}
	return nil
}

func friendlyIOError(err error, ref string) string {
	if os.IsNotExist(err) {
		return fmt.Sprintf("No such file: %s", ref)
	}
	if os.IsPermission(err) {
		return fmt.Sprintf("Permission denied: %s", ref)
	}
	return fmt.Sprintf("%s: %s", ref, err.Error())
}
