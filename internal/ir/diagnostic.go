package ir

import (
	"fmt"
	"strings"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Code families. Every diagnostic code starts with one of these.
var codeFamilies = []string{"PAR", "CON", "CYC", "TOOL"}

// ValidCode reports whether code belongs to a declared taxonomy:
// a family prefix followed by three digits.
func ValidCode(code string) bool {
	for _, fam := range codeFamilies {
		rest, ok := strings.CutPrefix(code, fam)
		if !ok || len(rest) != 3 {
			continue
		}
		for _, r := range rest {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	return false
}

// Diagnostic is a structured finding produced by a rule.
type Diagnostic struct {
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	Severity      Severity `json:"severity"`
	Line          int      `json:"line,omitempty"`
	NodeName      string   `json:"node_name,omitempty"`
	NodeType      string   `json:"node_type,omitempty"`
	CycleName     string   `json:"cycle_name,omitempty"`
	ParameterName string   `json:"parameter_name,omitempty"`
	Source        string   `json:"source,omitempty"`
	Target        string   `json:"target,omitempty"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s", d.Code, d.Line, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}

// Subject returns the most specific identifier the diagnostic is about.
func (d Diagnostic) Subject() string {
	switch {
	case d.ParameterName != "":
		return d.ParameterName
	case d.NodeName != "":
		return d.NodeName
	case d.CycleName != "":
		return d.CycleName
	case d.Source != "" || d.Target != "":
		return d.Source + "->" + d.Target
	}
	return ""
}

// toCanonicalMap converts the diagnostic to a map for canonical JSON,
// omitting empty context fields the same way the JSON tags do.
func (d Diagnostic) toCanonicalMap() map[string]any {
	m := map[string]any{
		"code":     d.Code,
		"message":  d.Message,
		"severity": string(d.Severity),
	}
	if d.Line > 0 {
		m["line"] = d.Line
	}
	optional := map[string]string{
		"node_name":      d.NodeName,
		"node_type":      d.NodeType,
		"cycle_name":     d.CycleName,
		"parameter_name": d.ParameterName,
		"source":         d.Source,
		"target":         d.Target,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	return m
}

// Result is the record every validation call returns.
// Warning and info diagnostics are both reported under Warnings.
type Result struct {
	HasErrors bool         `json:"has_errors"`
	Errors    []Diagnostic `json:"errors"`
	Warnings  []Diagnostic `json:"warnings"`
}

// NewResult partitions diagnostics by severity, preserving order.
func NewResult(diags []Diagnostic) Result {
	res := Result{Errors: []Diagnostic{}, Warnings: []Diagnostic{}}
	for _, d := range diags {
		if d.Severity == SeverityError {
			res.Errors = append(res.Errors, d)
		} else {
			res.Warnings = append(res.Warnings, d)
		}
	}
	res.HasErrors = len(res.Errors) > 0
	return res
}

// All returns errors followed by warnings.
func (r Result) All() []Diagnostic {
	out := make([]Diagnostic, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// Codes returns the codes of all diagnostics in order.
func (r Result) Codes() []string {
	all := r.All()
	codes := make([]string, len(all))
	for i, d := range all {
		codes[i] = d.Code
	}
	return codes
}

// Suggestion is a remediation for one diagnostic.
type Suggestion struct {
	ErrorCode   string `json:"error_code"`
	Fix         string `json:"fix"`
	Explanation string `json:"explanation"`
	CodeExample string `json:"code_example"`
	Priority    int    `json:"priority"`
}

// PriorityFor maps a severity to a suggestion priority (1 is most urgent).
func PriorityFor(s Severity) int {
	switch s {
	case SeverityError:
		return 1
	case SeverityWarning:
		return 2
	default:
		return 3
	}
}
