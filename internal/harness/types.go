package harness

import "github.com/roach88/flowlint/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held and both runs agreed.
	Pass bool `json:"pass"`

	// Validation is the analyzer's result for the scenario source.
	Validation ir.Result `json:"validation"`

	// Errors lists failed assertions. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Validation: ir.NewResult(nil),
		Errors:     []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Diagnostics returns errors followed by warnings.
func (r *Result) Diagnostics() []ir.Diagnostic {
	return r.Validation.All()
}
