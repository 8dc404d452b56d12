package extract

import (
	"strconv"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/roach88/flowlint/internal/ir"
)

type keywordArg struct {
	name  string
	value ir.Value
}

// argList is a call's argument list split into positional and keyword
// arguments, in source order.
type argList struct {
	positional []ir.Value
	keywords   []keywordArg
	splat      bool // *args or **kwargs present
}

// at returns the i-th positional argument or, failing that, the first
// keyword argument with one of the given names.
func (a argList) at(i int, names ...string) (ir.Value, bool) {
	if i >= 0 && i < len(a.positional) {
		return a.positional[i], true
	}
	return a.keyword(names...)
}

// first returns the first positional argument or a named keyword.
func (a argList) first(names ...string) (ir.Value, bool) {
	return a.at(0, names...)
}

func (a argList) keyword(names ...string) (ir.Value, bool) {
	for _, kw := range a.keywords {
		for _, name := range names {
			if kw.name == name {
				return kw.value, true
			}
		}
	}
	return ir.Value{}, false
}

func (e *extractor) arguments(call *sitter.Node) argList {
	var args argList
	list := call.ChildByFieldName("arguments")
	if list == nil || list.Type() != "argument_list" {
		return args
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		child := list.NamedChild(i)
		switch child.Type() {
		case "comment":
		case "keyword_argument":
			name := child.ChildByFieldName("name")
			value := child.ChildByFieldName("value")
			if name == nil || value == nil {
				continue
			}
			args.keywords = append(args.keywords, keywordArg{name: e.text(name), value: e.valueOf(value)})
		case "list_splat", "dictionary_splat":
			args.splat = true
		default:
			args.positional = append(args.positional, e.valueOf(child))
		}
	}
	return args
}

// valueOf classifies an expression. Anything that is not a literal is
// returned as a dynamic value carrying its source text.
func (e *extractor) valueOf(n *sitter.Node) ir.Value {
	text := e.text(n)
	switch n.Type() {
	case "string":
		if hasDescendant(n, "interpolation") {
			return ir.Dynamic(text)
		}
		return ir.Value{Kind: ir.ValueString, Text: text, Str: unquote(text)}
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(n.NamedChildCount()); i++ {
			part := n.NamedChild(i)
			if part.Type() != "string" || hasDescendant(part, "interpolation") {
				return ir.Dynamic(text)
			}
			b.WriteString(unquote(e.text(part)))
		}
		return ir.Value{Kind: ir.ValueString, Text: text, Str: b.String()}
	case "integer":
		return ir.Value{Kind: ir.ValueInt, Text: text}
	case "float":
		return ir.Value{Kind: ir.ValueFloat, Text: text}
	case "true", "false":
		return ir.Value{Kind: ir.ValueBool, Text: text}
	case "none":
		return ir.Value{Kind: ir.ValueNone, Text: text}
	case "unary_operator":
		arg := n.ChildByFieldName("argument")
		if arg == nil {
			return ir.Dynamic(text)
		}
		inner := e.valueOf(arg)
		if inner.Kind != ir.ValueInt && inner.Kind != ir.ValueFloat {
			return ir.Dynamic(text)
		}
		return ir.Value{Kind: inner.Kind, Text: strings.ReplaceAll(text, " ", "")}
	case "list", "tuple", "set":
		return ir.Value{Kind: ir.ValueList, Text: text}
	case "dictionary":
		return e.dictValue(n)
	case "parenthesized_expression":
		if n.NamedChildCount() == 1 {
			return e.valueOf(n.NamedChild(0))
		}
	}
	return ir.Dynamic(text)
}

func (e *extractor) dictValue(n *sitter.Node) ir.Value {
	v := ir.Value{Kind: ir.ValueDict, Text: e.text(n), Entries: []ir.Entry{}}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "comment":
		case "pair":
			key := child.ChildByFieldName("key")
			value := child.ChildByFieldName("value")
			if key == nil || value == nil {
				continue
			}
			v.Entries = append(v.Entries, ir.Entry{Key: e.valueOf(key), Value: e.valueOf(value)})
		default:
			// **splat or anything unexpected makes the mapping non-literal.
			return ir.Dynamic(v.Text)
		}
	}
	return v
}

func hasDescendant(n *sitter.Node, nodeType string) bool {
	found := false
	visit(n, func(c *sitter.Node) {
		if c.Type() == nodeType {
			found = true
		}
	})
	return found
}

// unquote strips string prefixes and quotes from a Python string literal
// and decodes simple escapes for non-raw strings.
func unquote(lit string) string {
	prefixEnd := strings.IndexAny(lit, `"'`)
	if prefixEnd < 0 {
		return lit
	}
	prefix := strings.ToLower(lit[:prefixEnd])
	body := lit[prefixEnd:]

	quote := body[:1]
	if strings.HasPrefix(body, quote+quote+quote) && len(body) >= 6 {
		body = body[3 : len(body)-3]
	} else if len(body) >= 2 {
		body = body[1 : len(body)-1]
	}

	if strings.Contains(prefix, "r") || !strings.Contains(body, `\`) {
		return body
	}
	escaped := strings.ReplaceAll(body, `\'`, `'`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, `\\"`, `\"`)
	if s, err := strconv.Unquote(`"` + escaped + `"`); err == nil {
		return s
	}
	return body
}

// classRefName returns the class name of a dotted reference such as
// `nodes.CSVReaderNode`, or "" when the text is not a class reference.
func classRefName(text string) string {
	last := text
	if i := strings.LastIndex(text, "."); i >= 0 {
		last = text[i+1:]
	}
	if last == "" {
		return ""
	}
	for i, r := range last {
		if i == 0 && !unicode.IsUpper(r) {
			return ""
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return ""
		}
	}
	for _, seg := range strings.Split(text, ".") {
		if seg == "" {
			return ""
		}
		for _, r := range seg {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				return ""
			}
		}
	}
	return last
}
