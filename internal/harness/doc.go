// Package harness runs conformance scenarios against the analyzer.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: missing_required_param
//	description: "LLM agent declared without a model"
//	tool: validate_workflow
//	options:
//	  max_iterations_high_water: 100
//	  disabled_rules: [CON003]
//	source: |
//	  workflow.add_node("LLMAgentNode", "agent", {"prompt": "hi"})
//	assertions:
//	  - type: has_errors
//	    value: true
//	  - type: diagnostic_contains
//	    code: PAR004
//	    node: agent
//	    parameter: model
//
// # Assertion Types
//
//   - has_errors: the result's has_errors flag equals value
//   - diagnostic_contains: a diagnostic with code matches node, parameter,
//     cycle and line where given
//   - diagnostic_absent: no diagnostic carries code
//   - diagnostic_count: exactly count diagnostics carry code
//   - diagnostic_order: codes appear in the given relative order
//
// # Determinism
//
// Every scenario is analyzed twice and both runs are recorded in an
// in-memory history store. Any fingerprint that differs between the two
// runs fails the scenario. Golden snapshots hold the canonical JSON of the
// codes, lines, severities and subjects, without messages.
package harness
