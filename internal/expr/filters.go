package expr

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/openhab/yamlpp/internal/tree"
)

func evalPipe(p Pipe, scope *Scope) (*tree.Value, bool, error) {
	val, undef, err := evalNode(p.X, scope)
	if err != nil {
		return nil, false, err
	}
	args := make([]*tree.Value, len(p.Args))
	for i, a := range p.Args {
		av, _, err := evalNode(a, scope)
		if err != nil {
			return nil, false, err
		}
		args[i] = av
	}
	switch p.Filter {
	case "default":
		return filterDefault(val, undef, args)
	case "label":
		return filterLabel(val)
	case "dig":
		return filterDig(val, args)
	case "humanize":
		return filterHumanize(val, args)
	default:
		return nil, false, fmt.Errorf("unknown filter %q", p.Filter)
	}
}

// filterHumanize renders a number for diagnostics and templates: comma
// grouping by default, or "ordinal"/"bytes" when named as the first
// argument (SPEC_FULL.md's DOMAIN note on the teacher's humanizeBytes/
// humanizeNumber/ordinal funcmap entries).
func filterHumanize(val *tree.Value, args []*tree.Value) (*tree.Value, bool, error) {
	mode := "comma"
	if len(args) > 0 {
		mode = args[0].AsString()
	}
	n, _, ok := numOf(val)
	if !ok {
		return nil, false, fmt.Errorf("humanize() requires a numeric value")
	}
	switch mode {
	case "comma":
		return tree.NewString(humanize.Comma(int64(n))), false, nil
	case "ordinal":
		return tree.NewString(humanize.Ordinal(int(n))), false, nil
	case "bytes":
		return tree.NewString(humanize.Bytes(uint64(n))), false, nil
	default:
		return nil, false, fmt.Errorf("unknown humanize mode %q", mode)
	}
}

// filterDefault: returns fallback when the value is undefined; when
// strict is true, also when the value is empty (spec.md §4.2).
func filterDefault(val *tree.Value, undef bool, args []*tree.Value) (*tree.Value, bool, error) {
	if len(args) == 0 {
		return nil, false, fmt.Errorf("default() requires a fallback argument")
	}
	fallback := args[0]
	strict := false
	if len(args) > 1 {
		strict = args[1].Truthy()
	}
	if undef {
		return fallback, false, nil
	}
	if strict && isEmptyValue(val) {
		return fallback, false, nil
	}
	return val, false, nil
}

func isEmptyValue(v *tree.Value) bool {
	if tree.IsNull(v) {
		return true
	}
	switch v.Kind {
	case tree.KindString:
		return v.Str == ""
	case tree.KindSeq:
		return len(v.Seq) == 0
	case tree.KindMap:
		return len(v.Keys) == 0
	default:
		return false
	}
}

// filterLabel converts camelCase/snake_case/kebab-case/space-separated
// tokens into Title Case, preserving all-caps acronym runs
// (e.g. "StatusLED" -> "Status LED").
func filterLabel(v *tree.Value) (*tree.Value, bool, error) {
	if v.Kind != tree.KindString {
		return v, false, nil
	}
	words := splitLabelWords(v.Str)
	for i, w := range words {
		words[i] = titleCaseWord(w)
	}
	return tree.NewString(strings.Join(words, " ")), false, nil
}

func splitLabelWords(s string) []string {
	// Normalize separators to spaces first.
	s = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, s)

	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		if r == ' ' {
			flush()
			continue
		}
		if i > 0 && len(cur) > 0 {
			prev := runes[i-1]
			// lower -> Upper boundary: "statusLED" -> "status|LED"
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				flush()
			} else if unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				// acronym -> next word boundary: "LEDStrip" -> "LED|Strip"
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func titleCaseWord(w string) string {
	if w == "" {
		return w
	}
	upperCount := 0
	for _, r := range w {
		if unicode.IsUpper(r) {
			upperCount++
		}
	}
	if upperCount == len([]rune(w)) && upperCount > 1 {
		return w // preserve all-caps acronyms
	}
	// titleCaser (methods.go) does the actual casing so label's non-acronym
	// words go through the same golang.org/x/text/cases machinery as .title().
	return titleCaser.String(strings.ToLower(w))
}

// filterDig walks maps/sequences by successive keys. Integer-valued string
// keys index sequences (negative indices count from the end); out-of-bounds
// or missing keys return Null; digging into a primitive returns Null. Never
// warns (spec.md §4.2, §9 Open Question).
func filterDig(v *tree.Value, keys []*tree.Value) (*tree.Value, bool, error) {
	cur := v
	for _, k := range keys {
		if tree.IsNull(cur) {
			return tree.Null(), true, nil
		}
		switch cur.Kind {
		case tree.KindMap:
			next := cur.Get(k.AsString())
			if next == nil {
				return tree.Null(), true, nil
			}
			cur = next
		case tree.KindSeq:
			i, ok := digSeqIndex(k)
			if !ok {
				return tree.Null(), true, nil
			}
			if i < 0 {
				i += len(cur.Seq)
			}
			if i < 0 || i >= len(cur.Seq) {
				return tree.Null(), true, nil
			}
			cur = cur.Seq[i]
		default:
			return tree.Null(), true, nil
		}
	}
	return cur, false, nil
}

func digSeqIndex(k *tree.Value) (int, bool) {
	switch k.Kind {
	case tree.KindInt:
		return int(k.Int), true
	case tree.KindString:
		s := k.Str
		neg := strings.HasPrefix(s, "-")
		digits := s
		if neg {
			digits = s[1:]
		}
		if digits == "" {
			return 0, false
		}
		for _, r := range digits {
			if r < '0' || r > '9' {
				return 0, false
			}
		}
		n := 0
		for _, r := range digits {
			n = n*10 + int(r-'0')
		}
		if neg {
			n = -n
		}
		return n, true
	default:
		return 0, false
	}
}
