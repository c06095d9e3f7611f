// Package interp implements the StringInterpolator: one left-to-right scan
// of a template string that finds balanced substitution-delimiter pairs and
// splices in the ExpressionEvaluator's results.
package interp

import (
	"strings"

	"github.com/openhab/yamlpp/internal/expr"
	"github.com/openhab/yamlpp/internal/tree"
)

// span is one balanced occurrence of the active delimiter pair.
type span struct {
	start, end int
	inner      string
}

// Interpolate evaluates every top-level substitution in src using pat as
// the active delimiter pair. A template consisting of exactly one
// substitution spanning the whole string returns the evaluator's value
// directly, preserving its type; otherwise the result is a string with
// each substitution's string form spliced back into the literal text.
func Interpolate(src string, pat tree.Pattern, scope *expr.Scope) *tree.Value {
	spans := findSpans(src, pat)
	if len(spans) == 0 {
		return tree.NewString(src)
	}
	if len(spans) == 1 && spans[0].start == 0 && spans[0].end == len(src) {
		return expr.Eval(spans[0].inner, scope)
	}

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(src[last:sp.start])
		b.WriteString(expr.Eval(sp.inner, scope).AsString())
		last = sp.end
	}
	b.WriteString(src[last:])
	return tree.NewString(b.String())
}

// HasSubstitution reports whether src contains at least one occurrence of
// pat, without evaluating anything. Used by processors that need to decide
// whether a scalar is a template before committing to interpolation.
func HasSubstitution(src string, pat tree.Pattern) bool {
	return len(findSpans(src, pat)) > 0
}

// findSpans scans src left to right for balanced pat.Open/pat.Close pairs.
// Single- and double-quoted runs inside a substitution are opaque to brace
// and delimiter matching (quotes may contain stray braces or delimiter
// text without closing the substitution early); `{`/`}` pairs inside a
// substitution (map literals) nest independently of the active delimiter.
func findSpans(src string, pat tree.Pattern) []span {
	open, close := pat.Open, pat.Close
	if open == "" || close == "" {
		return nil
	}

	var spans []span
	i, n := 0, len(src)
	for i < n {
		if !strings.HasPrefix(src[i:], open) {
			i++
			continue
		}
		start := i
		j := i + len(open)
		innerStart := j
		depth := 0
		var quote byte
		inQuote := false
		closed := false

		for j < n {
			c := src[j]
			if inQuote {
				if c == '\\' && j+1 < n {
					j += 2
					continue
				}
				if c == quote {
					inQuote = false
				}
				j++
				continue
			}
			if c == '\'' || c == '"' {
				inQuote = true
				quote = c
				j++
				continue
			}
			if c == '{' {
				depth++
				j++
				continue
			}
			if c == '}' && depth > 0 {
				depth--
				j++
				continue
			}
			if strings.HasPrefix(src[j:], close) {
				spans = append(spans, span{start: start, end: j + len(close), inner: src[innerStart:j]})
				i = j + len(close)
				closed = true
				break
			}
			j++
		}
		if !closed {
			// Unterminated delimiter: the rest of the string is literal.
			break
		}
	}
	return spans
}
