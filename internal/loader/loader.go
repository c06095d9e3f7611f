// Package loader tokenizes and parses YAML source bytes into a tree.Value,
// recognizing the preprocessor's custom tags and materializing them as
// Placeholder variants (spec.md §4.1).
package loader

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/openhab/yamlpp/internal/tree"
	"gopkg.in/yaml.v3"
)

// ParseError carries a located YAML syntax diagnostic (spec.md §4.1, §6).
type ParseError struct {
	Line    int
	Column  int
	Class   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Class, e.Line, e.Column, e.Message)
}

var lineColRe = regexp.MustCompile(`line (\d+)(?:, column (\d+))?`)

// Load parses raw YAML bytes into a tree.Value, dispatching recognized
// custom tags into Placeholder nodes. Aliases are resolved by re-walking
// the anchor's node at each use site, so the returned tree has no sharing.
func Load(data []byte) (*tree.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, wrapParseErr(err)
	}
	if len(doc.Content) == 0 {
		return tree.Null(), nil
	}
	root := doc.Content[0]
	v, err := convert(root)
	if err != nil {
		return nil, wrapParseErr(err)
	}
	return v, nil
}

func wrapParseErr(err error) error {
	m := lineColRe.FindStringSubmatch(err.Error())
	line, col := 0, 0
	if len(m) > 0 {
		line, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			col, _ = strconv.Atoi(m[2])
		}
	}
	return &ParseError{Line: line, Column: col, Class: "YAMLParseError", Message: err.Error()}
}

// placeholderTags maps a bare custom tag name to its PlaceholderKind.
var placeholderTags = map[string]tree.PlaceholderKind{
	"!sub":     tree.PhSub,
	"!nosub":   tree.PhNoSub,
	"!if":      tree.PhIf,
	"!include": tree.PhInclude,
	"!insert":  tree.PhInsert,
	"!remove":  tree.PhRemove,
	"!replace": tree.PhReplace,
}

func convert(n *yaml.Node) (*tree.Value, error) {
	if n == nil {
		return tree.Null(), nil
	}
	if n.Kind == yaml.AliasNode {
		// Opaque: re-walk the anchor's node so the result is a fresh,
		// unshared subtree (spec.md §4.7, §9).
		return convert(n.Alias)
	}

	tag, pattern := splitSubPattern(n.Tag)
	if kind, ok := placeholderTags[tag]; ok {
		payload, err := convertUntagged(n)
		if err != nil {
			return nil, err
		}
		node := &tree.PlaceholderNode{
			Kind:    kind,
			Payload: payload,
			Pattern: pattern,
			Pos:     tree.Pos{Line: n.Line, Column: n.Column},
		}
		return tree.NewPlaceholder(node), nil
	}

	return convertUntagged(n)
}

// splitSubPattern separates a tag like "!sub:pattern=%3C..%3E" into its bare
// form ("!sub") and an optional decoded Pattern.
func splitSubPattern(tag string) (string, *tree.Pattern) {
	const prefix = "!sub:pattern="
	if !strings.HasPrefix(tag, prefix) {
		return tag, nil
	}
	rest := tag[len(prefix):]
	idx := strings.Index(rest, "..")
	if idx < 0 {
		return "!sub", nil
	}
	openEnc, closeEnc := rest[:idx], rest[idx+2:]
	open, err1 := url.QueryUnescape(openEnc)
	closeStr, err2 := url.QueryUnescape(closeEnc)
	if err1 != nil {
		open = openEnc
	}
	if err2 != nil {
		closeStr = closeEnc
	}
	return "!sub", &tree.Pattern{Open: open, Close: closeStr}
}

func convertUntagged(n *yaml.Node) (*tree.Value, error) {
	pos := tree.Pos{Line: n.Line, Column: n.Column}
	switch n.Kind {
	case yaml.ScalarNode:
		return resolveScalar(n), nil
	case yaml.SequenceNode:
		seq := make([]*tree.Value, 0, len(n.Content))
		for _, c := range n.Content {
			cv, err := convert(c)
			if err != nil {
				return nil, err
			}
			seq = append(seq, cv)
		}
		return &tree.Value{Kind: tree.KindSeq, Pos: pos, Seq: seq}, nil
	case yaml.MappingNode:
		return convertMapping(n, pos)
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return tree.Null(), nil
		}
		return convert(n.Content[0])
	default:
		return tree.Null(), nil
	}
}

func convertMapping(n *yaml.Node, pos tree.Pos) (*tree.Value, error) {
	m := &tree.Value{Kind: tree.KindMap, Pos: pos}
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		if isMergeKey(keyNode) {
			val, err := convert(valNode)
			if err != nil {
				return nil, err
			}
			holder := &tree.PlaceholderNode{
				Kind: tree.PhMergeKeyToken,
				Pos:  tree.Pos{Line: keyNode.Line, Column: keyNode.Column},
			}
			m.Keys = append(m.Keys, tree.NewPlaceholder(holder))
			m.Vals = append(m.Vals, val)
			continue
		}
		key, err := convert(keyNode)
		if err != nil {
			return nil, err
		}
		val, err := convert(valNode)
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, key)
		m.Vals = append(m.Vals, val)
	}
	return m, nil
}

func isMergeKey(n *yaml.Node) bool {
	if n.Kind != yaml.ScalarNode || n.Value != "<<" {
		return false
	}
	return n.Tag == "" || n.Tag == "!!merge" || n.Tag == "!!str"
}

// resolveScalar implements the opinionated typing rule from spec.md §4.1:
// only case-insensitive true/false become Bool; yes/no/on/off stay Str;
// bare/empty null becomes Null; otherwise numeric literals are tried before
// falling back to Str. Quoted and block-style scalars are always Str.
func resolveScalar(n *yaml.Node) *tree.Value {
	pos := tree.Pos{Line: n.Line, Column: n.Column}
	if n.Style == yaml.DoubleQuotedStyle || n.Style == yaml.SingleQuotedStyle ||
		n.Style == yaml.LiteralStyle || n.Style == yaml.FoldedStyle {
		return &tree.Value{Kind: tree.KindString, Pos: pos, Str: n.Value}
	}

	v := n.Value
	switch strings.ToLower(v) {
	case "true":
		return &tree.Value{Kind: tree.KindBool, Pos: pos, Bool: true}
	case "false":
		return &tree.Value{Kind: tree.KindBool, Pos: pos, Bool: false}
	case "null", "~", "":
		return &tree.Value{Kind: tree.KindNull, Pos: pos}
	case "yes", "no", "on", "off":
		return &tree.Value{Kind: tree.KindString, Pos: pos, Str: v}
	}

	if i, err := strconv.ParseInt(v, 0, 64); err == nil {
		return &tree.Value{Kind: tree.KindInt, Pos: pos, Int: i}
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return &tree.Value{Kind: tree.KindFloat, Pos: pos, Float: f}
	}
	return &tree.Value{Kind: tree.KindString, Pos: pos, Str: v}
}
