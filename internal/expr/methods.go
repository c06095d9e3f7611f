package expr

import (
	"fmt"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/openhab/yamlpp/internal/tree"
)

var titleCaser = cases.Title(language.English)

// sprigFuncs is the curated subset of sprig's text-template function map
// this package reaches into for pure string helpers the spec's whitelist
// names but that duplicate logic sprig already gets right (spec.md §4.2's
// "a whitelisted set of string methods" reads as exactly the kind of
// safe, host-free helper set sprig curates for template authors).
var sprigFuncs = sprig.TxtFuncMap()

func sprigTrunc(c int, s string) string {
	return sprigFuncs["trunc"].(func(int, string) string)(c, s)
}

func sprigInitials(s string) string {
	return sprigFuncs["initials"].(func(string) string)(s)
}

func sprigSwapCase(s string) string {
	return sprigFuncs["swapcase"].(func(string) string)(s)
}

// evalMethodCall dispatches a `.method(...)` call against its receiver.
// Only the whitelist below is reachable from expressions (spec.md §4.2);
// anything else is a parse-time-looking error surfaced through Eval's
// diagnostic path.
func evalMethodCall(m MethodCall, scope *Scope) (*tree.Value, bool, error) {
	recv, _, err := evalNode(m.Recv, scope)
	if err != nil {
		return nil, false, err
	}
	args := make([]*tree.Value, len(m.Args))
	for i, a := range m.Args {
		av, _, err := evalNode(a, scope)
		if err != nil {
			return nil, false, err
		}
		args[i] = av
	}

	switch m.Name {
	case "upper":
		return tree.NewString(strings.ToUpper(recv.AsString())), false, nil
	case "lower":
		return tree.NewString(strings.ToLower(recv.AsString())), false, nil
	case "trim":
		return tree.NewString(strings.TrimSpace(recv.AsString())), false, nil
	case "title":
		return tree.NewString(titleCaser.String(recv.AsString())), false, nil
	case "swapcase":
		return tree.NewString(sprigSwapCase(recv.AsString())), false, nil
	case "initials":
		return tree.NewString(sprigInitials(recv.AsString())), false, nil
	case "repeat":
		if len(args) != 1 {
			return nil, false, fmt.Errorf("repeat() requires one argument")
		}
		n, ok := asIndex(args[0])
		if !ok || n < 0 {
			return nil, false, fmt.Errorf("repeat() count must be a non-negative integer")
		}
		return tree.NewString(strings.Repeat(recv.AsString(), n)), false, nil
	case "trunc":
		if len(args) != 1 {
			return nil, false, fmt.Errorf("trunc() requires one argument")
		}
		n, ok := asIndex(args[0])
		if !ok || n < 0 {
			return nil, false, fmt.Errorf("trunc() length must be a non-negative integer")
		}
		return tree.NewString(sprigTrunc(n, recv.AsString())), false, nil
	case "split":
		if len(args) != 1 {
			return nil, false, fmt.Errorf("split() requires one argument")
		}
		parts := strings.Split(recv.AsString(), args[0].AsString())
		seq := make([]*tree.Value, len(parts))
		for i, p := range parts {
			seq[i] = tree.NewString(p)
		}
		return tree.NewSeq(seq...), false, nil
	case "replace":
		if len(args) != 2 {
			return nil, false, fmt.Errorf("replace() requires two arguments")
		}
		return tree.NewString(strings.ReplaceAll(recv.AsString(), args[0].AsString(), args[1].AsString())), false, nil
	case "contains":
		if len(args) != 1 {
			return nil, false, fmt.Errorf("contains() requires one argument")
		}
		return tree.NewBool(strings.Contains(recv.AsString(), args[0].AsString())), false, nil
	case "length":
		return methodLength(recv)
	case "join":
		if len(args) != 1 {
			return nil, false, fmt.Errorf("join() requires one argument")
		}
		return methodJoin(recv, args[0].AsString())
	default:
		return nil, false, fmt.Errorf("unknown method %q", m.Name)
	}
}

func methodLength(recv *tree.Value) (*tree.Value, bool, error) {
	switch recv.Kind {
	case tree.KindString:
		return tree.NewInt(int64(len([]rune(recv.Str)))), false, nil
	case tree.KindSeq:
		return tree.NewInt(int64(len(recv.Seq))), false, nil
	case tree.KindMap:
		return tree.NewInt(int64(len(recv.Keys))), false, nil
	default:
		return nil, false, fmt.Errorf("length() is not defined for %s", recv.Kind)
	}
}

func methodJoin(recv *tree.Value, sep string) (*tree.Value, bool, error) {
	if recv.Kind != tree.KindSeq {
		return nil, false, fmt.Errorf("join() requires a sequence receiver")
	}
	parts := make([]string, len(recv.Seq))
	for i, v := range recv.Seq {
		parts[i] = v.AsString()
	}
	return tree.NewString(strings.Join(parts, sep)), false, nil
}
