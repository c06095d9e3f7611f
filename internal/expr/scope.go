package expr

import (
	"fmt"
	"os"
	"strings"

	"github.com/openhab/yamlpp/internal/tree"
)

// Scope is the evaluation environment for one expression: the current
// variables map and a sink for diagnostics (spec.md §4.2).
type Scope struct {
	Vars *tree.Value // KindMap
	Warn func(string)
}

func (s *Scope) warn(msg string) {
	if s != nil && s.Warn != nil {
		s.Warn(msg)
	}
}

// envValue builds the ENV namespace value, exposing only OPENHAB_-prefixed
// environment variables (spec.md §4.2, §9).
func envValue() *tree.Value {
	m := tree.NewMap()
	for _, kv := range os.Environ() {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		name, val := kv[:idx], kv[idx+1:]
		if strings.HasPrefix(name, "OPENHAB_") {
			m.Set(name, tree.NewString(val))
		}
	}
	return m
}

// lookupIdent resolves a bare identifier against VARS/ENV/the variables
// map, reporting an "Undefined variable" warning with an edit-distance
// suggestion when nothing matches.
func (s *Scope) lookupIdent(name string) (val *tree.Value, undefined bool) {
	switch name {
	case "VARS":
		if s.Vars != nil {
			return s.Vars, false
		}
		return tree.NewMap(), false
	case "ENV":
		return envValue(), false
	}
	if s.Vars != nil {
		if v := s.Vars.Get(name); v != nil {
			return v, false
		}
	}
	s.warn(undefinedMessage(name, s.varNames()))
	return tree.Null(), true
}

func (s *Scope) varNames() []string {
	if s == nil || s.Vars == nil {
		return nil
	}
	names := make([]string, 0, len(s.Vars.Keys))
	for _, k := range s.Vars.Keys {
		if k.Kind == tree.KindString {
			names = append(names, k.Str)
		}
	}
	return names
}

func undefinedMessage(name string, candidates []string) string {
	msg := fmt.Sprintf("Undefined variable '%s'", name)
	if best, dist := closest(name, candidates); best != "" && dist <= 2 {
		msg += fmt.Sprintf(". Did you mean '%s'?", best)
	}
	return msg
}

// closest returns the candidate with the smallest Levenshtein distance to
// name, and that distance.
func closest(name string, candidates []string) (string, int) {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		if c == name {
			continue
		}
		d := levenshtein(name, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	la, lb := len(ar), len(br)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}
