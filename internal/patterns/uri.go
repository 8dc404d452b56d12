package patterns

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURI is returned for pattern URIs outside the scheme.
var ErrInvalidURI = errors.New("invalid pattern URI")

// URIScheme prefixes every pattern resource URI.
const URIScheme = "patterns://"

// URIKind selects how a URI value is resolved.
type URIKind string

const (
	URIWorkflow URIKind = "workflow" // value is a pattern name
	URINode     URIKind = "node"     // value is a node type
	URIError    URIKind = "error"    // value is a diagnostic code
	URISearch   URIKind = "search"   // value is a keyword
)

// URI is a parsed pattern resource identifier.
type URI struct {
	Kind  URIKind `json:"kind"`
	Value string  `json:"value"`
}

// String renders the URI, escaping the value.
func (u URI) String() string {
	return URIScheme + string(u.Kind) + "/" + url.PathEscape(u.Value)
}

// BuildURI constructs and validates a URI from its parts.
func BuildURI(kind, value string) (URI, error) {
	return ParseURI(URIScheme + kind + "/" + url.PathEscape(value))
}

// ParseURI parses patterns://{workflow|node|error|search}/{value}.
// The value is path-unescaped and must be a single non-empty segment.
func ParseURI(raw string) (URI, error) {
	rest, ok := strings.CutPrefix(raw, URIScheme)
	if !ok {
		return URI{}, fmt.Errorf("%w: %q: must start with %s", ErrInvalidURI, raw, URIScheme)
	}
	kind, escaped, ok := strings.Cut(rest, "/")
	if !ok {
		return URI{}, fmt.Errorf("%w: %q: missing value", ErrInvalidURI, raw)
	}

	switch URIKind(kind) {
	case URIWorkflow, URINode, URIError, URISearch:
	default:
		return URI{}, fmt.Errorf("%w: %q: unknown kind %q", ErrInvalidURI, raw, kind)
	}

	if strings.Contains(escaped, "/") {
		return URI{}, fmt.Errorf("%w: %q: value must be a single segment", ErrInvalidURI, raw)
	}
	value, err := url.PathUnescape(escaped)
	if err != nil {
		return URI{}, fmt.Errorf("%w: %q: %v", ErrInvalidURI, raw, err)
	}
	if strings.TrimSpace(value) == "" {
		return URI{}, fmt.Errorf("%w: %q: empty value", ErrInvalidURI, raw)
	}
	if URIKind(kind) == URIWorkflow && (strings.ContainsAny(value, `/\`) || value == "." || value == "..") {
		return URI{}, fmt.Errorf("%w: %q: invalid pattern name", ErrInvalidURI, raw)
	}
	return URI{Kind: URIKind(kind), Value: value}, nil
}

// Resolution is the answer to a resolved URI: the named pattern's content
// for workflow URIs, the matching patterns otherwise.
type Resolution struct {
	URI      string    `json:"uri"`
	Kind     URIKind   `json:"kind"`
	Value    string    `json:"value"`
	Content  string    `json:"content,omitempty"`
	Patterns []Pattern `json:"patterns"`
}

// Resolve parses raw and looks it up. Malformed URIs fail with
// ErrInvalidURI before any lookup.
func (l *Library) Resolve(raw string) (Resolution, error) {
	u, err := ParseURI(raw)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{URI: u.String(), Kind: u.Kind, Value: u.Value, Patterns: []Pattern{}}

	switch u.Kind {
	case URIWorkflow:
		p, err := l.Lookup(u.Value)
		if err != nil {
			return Resolution{}, err
		}
		content, err := l.GetPatternContent(u.Value)
		if err != nil {
			return Resolution{}, err
		}
		res.Content = content
		res.Patterns = []Pattern{p}
	case URINode:
		res.Patterns, err = l.GetPatternsForNodeType(u.Value)
	case URIError:
		res.Patterns, err = l.GetPatternsForError(u.Value)
	case URISearch:
		res.Patterns, err = l.SearchPatterns(u.Value)
	}
	if err != nil {
		return Resolution{}, err
	}
	return res, nil
}
