package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/flowlint/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the reported diagnostics to help debug the failure.
type AssertionError struct {
	Type        string          // Assertion type for categorization
	Expected    string          // Human-readable expected outcome
	Actual      string          // Human-readable actual outcome
	Diagnostics []ir.Diagnostic // Everything the analyzer reported
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nReported diagnostics:\n")
	if len(e.Diagnostics) == 0 {
		fmt.Fprintf(&buf, "  (none)\n")
	}
	for i, d := range e.Diagnostics {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, d.Error())
	}
	return buf.String()
}

func assertHasErrors(res ir.Result, a Assertion) error {
	if res.HasErrors == *a.Value {
		return nil
	}
	return &AssertionError{
		Type:        AssertHasErrors,
		Expected:    fmt.Sprintf("has_errors = %t", *a.Value),
		Actual:      fmt.Sprintf("has_errors = %t", res.HasErrors),
		Diagnostics: res.All(),
	}
}

// assertDiagnosticContains checks for a diagnostic with the code whose
// context matches every field the assertion sets.
func assertDiagnosticContains(res ir.Result, a Assertion) error {
	for _, d := range res.All() {
		if d.Code == a.Code && matchDiagnostic(d, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:        AssertDiagnosticContains,
		Expected:    describe(a),
		Actual:      "not reported",
		Diagnostics: res.All(),
	}
}

func matchDiagnostic(d ir.Diagnostic, a Assertion) bool {
	if a.Node != "" && d.NodeName != a.Node {
		return false
	}
	if a.Parameter != "" && !containsName(d.ParameterName, a.Parameter) {
		return false
	}
	if a.Cycle != "" && d.CycleName != a.Cycle {
		return false
	}
	if a.Line != 0 && d.Line != a.Line {
		return false
	}
	return true
}

// containsName reports whether name is one of the comma-joined names.
func containsName(joined, name string) bool {
	for _, part := range strings.Split(joined, ",") {
		if strings.TrimSpace(part) == name {
			return true
		}
	}
	return false
}

func describe(a Assertion) string {
	parts := []string{a.Code}
	if a.Node != "" {
		parts = append(parts, "node="+a.Node)
	}
	if a.Parameter != "" {
		parts = append(parts, "parameter="+a.Parameter)
	}
	if a.Cycle != "" {
		parts = append(parts, "cycle="+a.Cycle)
	}
	if a.Line != 0 {
		parts = append(parts, fmt.Sprintf("line=%d", a.Line))
	}
	return strings.Join(parts, " ")
}

func assertDiagnosticAbsent(res ir.Result, a Assertion) error {
	n := countCode(res, a.Code)
	if n == 0 {
		return nil
	}
	return &AssertionError{
		Type:        AssertDiagnosticAbsent,
		Expected:    fmt.Sprintf("no %s diagnostics", a.Code),
		Actual:      fmt.Sprintf("%d reported", n),
		Diagnostics: res.All(),
	}
}

func assertDiagnosticCount(res ir.Result, a Assertion) error {
	n := countCode(res, a.Code)
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:        AssertDiagnosticCount,
		Expected:    fmt.Sprintf("%d occurrences of %s", a.Count, a.Code),
		Actual:      fmt.Sprintf("%d occurrences", n),
		Diagnostics: res.All(),
	}
}

// assertDiagnosticOrder checks that the first occurrences of the codes
// appear in the given order. Codes need not be adjacent.
func assertDiagnosticOrder(res ir.Result, a Assertion) error {
	positions := make(map[string]int)
	for i, d := range res.All() {
		if _, seen := positions[d.Code]; !seen {
			positions[d.Code] = i + 1
		}
	}

	for _, code := range a.Codes {
		if positions[code] == 0 {
			return &AssertionError{
				Type:        AssertDiagnosticOrder,
				Expected:    fmt.Sprintf("all codes present: %v", a.Codes),
				Actual:      fmt.Sprintf("missing code: %s", code),
				Diagnostics: res.All(),
			}
		}
	}

	for i := 1; i < len(a.Codes); i++ {
		prev, curr := a.Codes[i-1], a.Codes[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertDiagnosticOrder,
				Expected: fmt.Sprintf("codes in order: %v", a.Codes),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Diagnostics: res.All(),
			}
		}
	}
	return nil
}

func countCode(res ir.Result, code string) int {
	n := 0
	for _, d := range res.All() {
		if d.Code == code {
			n++
		}
	}
	return n
}

// EvaluateAssertions evaluates all assertions against the validation
// result and returns a message per failed assertion.
func EvaluateAssertions(res ir.Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertHasErrors:
			if assertion.Value == nil {
				err = fmt.Errorf("assertion[%d]: has_errors requires a value", i)
			} else {
				err = assertHasErrors(res, assertion)
			}
		case AssertDiagnosticContains:
			err = assertDiagnosticContains(res, assertion)
		case AssertDiagnosticAbsent:
			err = assertDiagnosticAbsent(res, assertion)
		case AssertDiagnosticCount:
			err = assertDiagnosticCount(res, assertion)
		case AssertDiagnosticOrder:
			err = assertDiagnosticOrder(res, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
