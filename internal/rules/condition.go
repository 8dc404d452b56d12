package rules

import (
	"fmt"
	"strings"
	"unicode"
)

// ConditionError reports why a convergence condition was rejected.
type ConditionError struct {
	Offset  int    `json:"offset"`
	Message string `json:"message"`
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("at offset %d: %s", e.Offset, e.Message)
}

// ParseCondition checks a converge_when expression against the grammar
//
//	expr  := or
//	or    := and ("or" and)*
//	and   := not ("and" not)*
//	not   := "not" not | cmp
//	cmp   := sum (cmpop sum)*
//	cmpop := "<" | "<=" | ">" | ">=" | "==" | "!=" | "in" | "not in" | "is" | "is not"
//	sum   := term (("+" | "-") term)*
//	term  := unary (("*" | "/" | "//" | "%") unary)*
//	unary := "-" unary | atom
//	atom  := NAME ("." NAME | "[" expr "]")* | NUMBER | STRING
//	       | "True" | "False" | "None" | "(" expr ")"
//
// The whole expression must also be boolean-valued: a comparison, a
// logical combination, a bare name path, or True/False.
func ParseCondition(src string) error {
	toks, err := tokenize(src)
	if err != nil {
		return err
	}
	if len(toks) == 1 {
		return &ConditionError{Offset: 0, Message: "empty condition"}
	}

	p := &condParser{toks: toks}
	kind, err := p.expr()
	if err != nil {
		return err
	}
	if t := p.peek(); t.kind != tokEOF {
		return &ConditionError{Offset: t.pos, Message: fmt.Sprintf("unexpected %q", t.text)}
	}

	switch kind {
	case exprBool, exprName:
		return nil
	case exprNumber:
		return &ConditionError{Offset: 0, Message: "a bare number is not a condition"}
	case exprString:
		return &ConditionError{Offset: 0, Message: "a bare string is not a condition"}
	case exprNone:
		return &ConditionError{Offset: 0, Message: "None is not a condition"}
	default:
		return &ConditionError{Offset: 0, Message: "arithmetic is not a condition; compare it with a value"}
	}
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokName
	tokNumber
	tokString
	tokOp
)

type token struct {
	kind tokKind
	text string
	pos  int
}

var operators = []string{"//", "<=", ">=", "==", "!=", "<", ">", "+", "-", "*", "/", "%", "(", ")", "[", "]", "."}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r := rune(src[i])
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == '_' || unicode.IsLetter(r) || r >= 0x80:
			start := i
			for i < len(src) && isNameByte(src[i]) {
				i++
			}
			toks = append(toks, token{tokName, src[start:i], start})
		case r >= '0' && r <= '9' || (r == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			i = scanNumber(src, i)
			toks = append(toks, token{tokNumber, src[start:i], start})
		case r == '\'' || r == '"':
			start := i
			end, ok := scanString(src, i)
			if !ok {
				return nil, &ConditionError{Offset: start, Message: "unterminated string"}
			}
			i = end
			toks = append(toks, token{tokString, src[start:i], start})
		default:
			matched := false
			for _, op := range operators {
				if strings.HasPrefix(src[i:], op) {
					toks = append(toks, token{tokOp, op, i})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, &ConditionError{Offset: i, Message: fmt.Sprintf("unexpected character %q", src[i])}
			}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isNameByte(b byte) bool {
	return b == '_' || isDigit(b) || b >= 0x80 || unicode.IsLetter(rune(b))
}

func scanNumber(src string, i int) int {
	for i < len(src) && (isDigit(src[i]) || src[i] == '_' || src[i] == '.') {
		i++
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			i = j
			for i < len(src) && isDigit(src[i]) {
				i++
			}
		}
	}
	return i
}

func scanString(src string, i int) (int, bool) {
	quote := src[i]
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
		case quote:
			return i + 1, true
		default:
			i++
		}
	}
	return i, false
}

// exprKind is the value class of a parsed sub-expression.
type exprKind int

const (
	exprBool exprKind = iota
	exprName
	exprNumber
	exprString
	exprNone
	exprArith
)

var reserved = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"True": true, "False": true, "None": true,
}

type condParser struct {
	toks []token
	pos  int
}

func (p *condParser) peek() token { return p.toks[p.pos] }

func (p *condParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *condParser) isKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokName && t.text == word
}

func (p *condParser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == op
}

func (p *condParser) errorf(t token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if t.kind == tokEOF {
		msg += " at end of condition"
	}
	return &ConditionError{Offset: t.pos, Message: msg}
}

func (p *condParser) expr() (exprKind, error) {
	return p.or()
}

func (p *condParser) or() (exprKind, error) {
	kind, err := p.and()
	if err != nil {
		return 0, err
	}
	for p.isKeyword("or") {
		p.next()
		if _, err := p.and(); err != nil {
			return 0, err
		}
		kind = exprBool
	}
	return kind, nil
}

func (p *condParser) and() (exprKind, error) {
	kind, err := p.not()
	if err != nil {
		return 0, err
	}
	for p.isKeyword("and") {
		p.next()
		if _, err := p.not(); err != nil {
			return 0, err
		}
		kind = exprBool
	}
	return kind, nil
}

func (p *condParser) not() (exprKind, error) {
	if p.isKeyword("not") {
		p.next()
		if _, err := p.not(); err != nil {
			return 0, err
		}
		return exprBool, nil
	}
	return p.cmp()
}

func (p *condParser) cmpOp() (string, bool) {
	t := p.peek()
	switch {
	case t.kind == tokOp:
		switch t.text {
		case "<", "<=", ">", ">=", "==", "!=":
			p.next()
			return t.text, true
		}
	case t.kind == tokName && t.text == "in":
		p.next()
		return "in", true
	case t.kind == tokName && t.text == "is":
		p.next()
		if p.isKeyword("not") {
			p.next()
			return "is not", true
		}
		return "is", true
	case t.kind == tokName && t.text == "not":
		ahead := p.toks[p.pos+1]
		if ahead.kind == tokName && ahead.text == "in" {
			p.next()
			p.next()
			return "not in", true
		}
	}
	return "", false
}

func (p *condParser) cmp() (exprKind, error) {
	kind, err := p.sum()
	if err != nil {
		return 0, err
	}
	for {
		if _, ok := p.cmpOp(); !ok {
			return kind, nil
		}
		if _, err := p.sum(); err != nil {
			return 0, err
		}
		kind = exprBool
	}
}

func (p *condParser) sum() (exprKind, error) {
	kind, err := p.term()
	if err != nil {
		return 0, err
	}
	for p.isOp("+") || p.isOp("-") {
		p.next()
		if _, err := p.term(); err != nil {
			return 0, err
		}
		kind = exprArith
	}
	return kind, nil
}

func (p *condParser) term() (exprKind, error) {
	kind, err := p.unary()
	if err != nil {
		return 0, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp("//") || p.isOp("%") {
		p.next()
		if _, err := p.unary(); err != nil {
			return 0, err
		}
		kind = exprArith
	}
	return kind, nil
}

func (p *condParser) unary() (exprKind, error) {
	if p.isOp("-") {
		p.next()
		if _, err := p.unary(); err != nil {
			return 0, err
		}
		return exprArith, nil
	}
	return p.atom()
}

func (p *condParser) atom() (exprKind, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return exprNumber, nil
	case tokString:
		return exprString, nil
	case tokName:
		switch t.text {
		case "True", "False":
			return exprBool, nil
		case "None":
			return exprNone, nil
		}
		if reserved[t.text] {
			return 0, p.errorf(t, "unexpected keyword %q", t.text)
		}
		return exprName, p.trailers()
	case tokOp:
		if t.text == "(" {
			kind, err := p.expr()
			if err != nil {
				return 0, err
			}
			if closing := p.next(); closing.kind != tokOp || closing.text != ")" {
				return 0, p.errorf(closing, "expected ')'")
			}
			return kind, nil
		}
		return 0, p.errorf(t, "unexpected %q", t.text)
	}
	return 0, p.errorf(t, "expected a value")
}

// trailers consumes ".name" and "[expr]" suffixes of a name path.
func (p *condParser) trailers() error {
	for {
		switch {
		case p.isOp("."):
			p.next()
			t := p.next()
			if t.kind != tokName || reserved[t.text] {
				return p.errorf(t, "expected attribute name after '.'")
			}
		case p.isOp("["):
			p.next()
			if _, err := p.expr(); err != nil {
				return err
			}
			if closing := p.next(); closing.kind != tokOp || closing.text != "]" {
				return p.errorf(closing, "expected ']'")
			}
		default:
			return nil
		}
	}
}
