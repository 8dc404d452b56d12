package rules

import (
	"sort"

	"github.com/roach88/flowlint/internal/ir"
)

// Diagnostic codes.
const (
	// Parameter contract (PAR001-PAR099)
	CodeMissingSchemaMethod  = "PAR001" // node class lacks get_parameters
	CodeUndeclaredParameter  = "PAR002" // run body reads an undeclared parameter
	CodeUntypedParameter     = "PAR003" // declared parameter has no type
	CodeMissingRequiredParam = "PAR004" // add_node omits required parameters
	CodeUnknownNodeType      = "PAR005" // no schema known; required checks skipped

	// Connections (CON001-CON099)
	CodeAmbiguousConnection  = "CON001" // three positional arguments
	CodeDeprecatedConnection = "CON002" // two positional arguments
	CodeUndeclaredEndpoint   = "CON003" // endpoint is not an add_node id
	CodeImplicitLoop         = "CON004" // plain connections form a loop

	// Cycles (CYC001-CYC099)
	CodeCycleFlag            = "CYC001" // add_connection(..., cycle=True)
	CodeCycleUnbounded       = "CYC002" // build without max_iterations and converge_when
	CodeInvalidCondition     = "CYC003" // converge_when fails the grammar
	CodeCycleNoConnections   = "CYC004" // build with zero connect calls
	CodeInvalidMapping       = "CYC005" // connect mapping not a literal str->str dict
	CodeIterationsHighWater  = "CYC006" // max_iterations above the high-water mark
	CodeInvalidTimeout       = "CYC007" // timeout non-positive
	CodeUndeclaredCycleNode  = "CYC008" // connect endpoint is not an add_node id
	CodeCycleNeverBuilt      = "CYC009" // cycle configured but never built
	CodeInvalidMaxIterations = "CYC010" // max_iterations non-positive

	// Tooling (TOOL001-TOOL099)
	CodeRuleFailure = "TOOL001" // a rule panicked during evaluation
)

// CodeInfo describes one code of the diagnostic taxonomy.
type CodeInfo struct {
	Code     string      `json:"code"`
	Category Category    `json:"category"`
	Severity ir.Severity `json:"severity"`
	Title    string      `json:"title"`
}

var taxonomy = map[string]CodeInfo{
	CodeMissingSchemaMethod:  {CodeMissingSchemaMethod, CategoryParameter, ir.SeverityError, "Node class lacks a get_parameters method"},
	CodeUndeclaredParameter:  {CodeUndeclaredParameter, CategoryParameter, ir.SeverityError, "Run body reads a parameter that is not declared"},
	CodeUntypedParameter:     {CodeUntypedParameter, CategoryParameter, ir.SeverityError, "Declared parameter has no type"},
	CodeMissingRequiredParam: {CodeMissingRequiredParam, CategoryParameter, ir.SeverityError, "Node is missing required parameters"},
	CodeUnknownNodeType:      {CodeUnknownNodeType, CategoryParameter, ir.SeverityInfo, "Node type has no known schema"},

	CodeAmbiguousConnection:  {CodeAmbiguousConnection, CategoryConnection, ir.SeverityError, "Connection has ambiguous three-argument form"},
	CodeDeprecatedConnection: {CodeDeprecatedConnection, CategoryConnection, ir.SeverityError, "Connection uses deprecated two-argument form"},
	CodeUndeclaredEndpoint:   {CodeUndeclaredEndpoint, CategoryConnection, ir.SeverityWarning, "Connection endpoint is not a declared node"},
	CodeImplicitLoop:         {CodeImplicitLoop, CategoryConnection, ir.SeverityWarning, "Plain connections form a loop outside a cycle builder"},

	CodeCycleFlag:            {CodeCycleFlag, CategoryCycle, ir.SeverityError, "Connection uses the cycle=True flag"},
	CodeCycleUnbounded:       {CodeCycleUnbounded, CategoryCycle, ir.SeverityError, "Cycle built without max_iterations and converge_when"},
	CodeInvalidCondition:     {CodeInvalidCondition, CategoryCycle, ir.SeverityError, "Convergence condition is not a valid boolean expression"},
	CodeCycleNoConnections:   {CodeCycleNoConnections, CategoryCycle, ir.SeverityError, "Cycle built without any connections"},
	CodeInvalidMapping:       {CodeInvalidMapping, CategoryCycle, ir.SeverityError, "Cycle connection mapping is not a literal string mapping"},
	CodeIterationsHighWater:  {CodeIterationsHighWater, CategoryCycle, ir.SeverityWarning, "max_iterations exceeds the high-water mark"},
	CodeInvalidTimeout:       {CodeInvalidTimeout, CategoryCycle, ir.SeverityError, "Cycle timeout is not positive"},
	CodeUndeclaredCycleNode:  {CodeUndeclaredCycleNode, CategoryCycle, ir.SeverityError, "Cycle connection names an undeclared node"},
	CodeCycleNeverBuilt:      {CodeCycleNeverBuilt, CategoryCycle, ir.SeverityWarning, "Cycle is configured but never built"},
	CodeInvalidMaxIterations: {CodeInvalidMaxIterations, CategoryCycle, ir.SeverityError, "max_iterations is not positive"},

	CodeRuleFailure: {CodeRuleFailure, CategoryTool, ir.SeverityWarning, "A validation rule failed during evaluation"},
}

// Taxonomy returns every known code sorted by code.
func Taxonomy() []CodeInfo {
	out := make([]CodeInfo, 0, len(taxonomy))
	for _, info := range taxonomy {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// LookupCode returns the taxonomy entry for code.
func LookupCode(code string) (CodeInfo, bool) {
	info, ok := taxonomy[code]
	return info, ok
}

// severityOf returns the registered severity of code.
func severityOf(code string) ir.Severity {
	if info, ok := taxonomy[code]; ok {
		return info.Severity
	}
	return ir.SeverityError
}
