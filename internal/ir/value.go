package ir

import (
	"math/big"
	"strconv"
	"strings"
)

// ValueKind classifies an extracted argument expression.
type ValueKind string

const (
	ValueString  ValueKind = "string"
	ValueInt     ValueKind = "int"
	ValueFloat   ValueKind = "float"
	ValueBool    ValueKind = "bool"
	ValueNone    ValueKind = "none"
	ValueList    ValueKind = "list"
	ValueDict    ValueKind = "dict"
	ValueDynamic ValueKind = "dynamic"
)

// Value is an argument as written in the source.
//
// Literal values keep their raw Text; strings additionally carry the
// unquoted Str. Anything the extractor cannot prove literal is
// ValueDynamic and is never flagged on its own.
type Value struct {
	Kind    ValueKind `json:"kind"`
	Text    string    `json:"text"`
	Str     string    `json:"str,omitempty"`
	Entries []Entry   `json:"entries,omitempty"` // dict literals only
}

// Entry is one key/value pair of a dict literal.
type Entry struct {
	Key   Value `json:"key"`
	Value Value `json:"value"`
}

// Dynamic returns a dynamic value for the given source text.
func Dynamic(text string) Value {
	return Value{Kind: ValueDynamic, Text: text}
}

// String returns a string literal value.
func String(s string) Value {
	return Value{Kind: ValueString, Text: strconv.Quote(s), Str: s}
}

// IsDynamic reports whether the value is a non-literal expression.
func (v Value) IsDynamic() bool {
	return v.Kind == ValueDynamic
}

// IsString reports whether the value is a plain string literal.
func (v Value) IsString() bool {
	return v.Kind == ValueString
}

// Number returns the numeric value of an int or float literal.
func (v Value) Number() (float64, bool) {
	if v.Kind != ValueInt && v.Kind != ValueFloat {
		return 0, false
	}
	text := strings.ReplaceAll(v.Text, "_", "")
	if v.Kind == ValueInt {
		// Python ints are unbounded; past 2^53 the result is approximate
		n, ok := new(big.Int).SetString(text, 0)
		if !ok {
			return 0, false
		}
		f, _ := n.Float64()
		return f, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// StringMapping reports whether the value is a dict literal whose keys
// and values are all string literals, and returns the pairs in order.
func (v Value) StringMapping() ([][2]string, bool) {
	if v.Kind != ValueDict {
		return nil, false
	}
	pairs := make([][2]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		if !e.Key.IsString() || !e.Value.IsString() {
			return nil, false
		}
		pairs = append(pairs, [2]string{e.Key.Str, e.Value.Str})
	}
	return pairs, true
}
