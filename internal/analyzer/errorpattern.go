package analyzer

import (
	"strings"

	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/patterns"
	"github.com/roach88/flowlint/internal/rules"
	"github.com/roach88/flowlint/internal/suggest"
)

// ErrorPatternReport describes a diagnostic code together with the
// documentation patterns that cover it.
type ErrorPatternReport struct {
	Code        string             `json:"code"`
	Known       bool               `json:"known"`
	Category    rules.Category     `json:"category,omitempty"`
	Severity    string             `json:"severity,omitempty"`
	Title       string             `json:"title,omitempty"`
	URI         string             `json:"uri"`
	Patterns    []patterns.Pattern `json:"patterns"`
	Content     string             `json:"content,omitempty"`
	Fix         string             `json:"fix,omitempty"`
	Explanation string             `json:"explanation,omitempty"`
}

// CheckErrorPattern looks code up through the pattern URI scheme.
// patternType is a URI kind (workflow, node, error, search) and defaults
// to error. Malformed combinations fail with patterns.ErrInvalidURI.
func (a *Analyzer) CheckErrorPattern(code, patternType string) (ErrorPatternReport, error) {
	if patternType == "" {
		patternType = string(patterns.URIError)
	}
	uri, err := patterns.BuildURI(patternType, code)
	if err != nil {
		return ErrorPatternReport{}, err
	}
	res, err := a.patterns.Resolve(uri.String())
	if err != nil {
		return ErrorPatternReport{}, err
	}

	report := ErrorPatternReport{
		Code:     code,
		URI:      res.URI,
		Patterns: res.Patterns,
		Content:  res.Content,
	}
	if info, ok := rules.LookupCode(strings.ToUpper(code)); ok {
		report.Known = true
		report.Code = info.Code
		report.Category = info.Category
		report.Severity = string(info.Severity)
		report.Title = info.Title

		fix := suggest.Fix(ir.Diagnostic{Code: info.Code, Message: info.Title, Severity: info.Severity})
		report.Fix = fix.Fix
		report.Explanation = fix.Explanation
	}
	return report, nil
}
