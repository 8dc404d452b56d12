// Package suggest turns diagnostics into copy-pasteable fixes.
package suggest

import (
	"sort"
	"strings"

	"github.com/roach88/flowlint/internal/ir"
)

// template is the remediation for one code. Fix and CodeExample may use
// the placeholders {node}, {node_type}, {cycle}, {parameter}, {source},
// {target}, {code} and {message}.
type template struct {
	Fix         string
	Explanation string
	CodeExample string
}

var templates = map[string]template{
	"PAR001": {
		Fix:         "Add a get_parameters() method to {node} that declares every parameter it reads.",
		Explanation: "Node classes declare their parameter contract through get_parameters(); without it the runtime cannot validate or route inputs.",
		CodeExample: `class {node}(Node):
    def get_parameters(self):
        return {
            "input_data": NodeParameter(name="input_data", type=str, required=True),
        }`,
	},
	"PAR002": {
		Fix:         "Declare '{parameter}' in {node}.get_parameters() or stop reading it in run().",
		Explanation: "The run body reads a parameter that the node never declares, so it will never be supplied.",
		CodeExample: `def get_parameters(self):
    return {
        "{parameter}": NodeParameter(name="{parameter}", type=str, required=False),
    }`,
	},
	"PAR003": {
		Fix:         "Give parameter '{parameter}' of {node} an explicit type.",
		Explanation: "Every declared parameter needs a type so inputs can be validated before execution.",
		CodeExample: `"{parameter}": NodeParameter(name="{parameter}", type=str, required=True)`,
	},
	"PAR004": {
		Fix:         "Supply {parameter} to node '{node}' in its config, or connect an upstream output to it.",
		Explanation: "{node_type} requires these parameters and no literal value or inbound connection provides them.",
		CodeExample: `workflow.add_node("{node_type}", "{node}", {
    # required: {parameter}
})`,
	},
	"PAR005": {
		Fix:         "Check the spelling of '{node_type}' or register it so node '{node}' can be checked.",
		Explanation: "No schema is known for this node type, so required-parameter checks were skipped.",
		CodeExample: `workflow.add_node("{node_type}", "{node}", {...})`,
	},
	"CON001": {
		Fix:         "Spell out all four arguments for the connection from '{source}'.",
		Explanation: "Three positional arguments are ambiguous: it is unclear which is the output and which the input.",
		CodeExample: `workflow.add_connection("{source}", "result", "{target}", "input_data")`,
	},
	"CON002": {
		Fix:         "Use the four-argument form to connect '{source}' to '{target}'.",
		Explanation: "The two-argument form is deprecated; outputs and inputs must be named explicitly.",
		CodeExample: `workflow.add_connection("{source}", "result", "{target}", "input_data")`,
	},
	"CON003": {
		Fix:         "Declare node '{node}' with add_node before connecting it, or fix the node id.",
		Explanation: "Connections can only join nodes that exist in the workflow.",
		CodeExample: `workflow.add_node("PythonCodeNode", "{node}", {"code": "result = input_data"})`,
	},
	"CON004": {
		Fix:         "Replace the loop closed by '{source}' -> '{target}' with a cycle builder.",
		Explanation: "Plain connections must form a DAG; feedback loops need explicit iteration and convergence bounds.",
		CodeExample: `cycle = workflow.create_cycle("{source}_loop")
cycle.connect("{source}", "{target}", mapping={"result": "input_data"})
cycle.max_iterations(10)
cycle.converge_when("converged")
cycle.build()`,
	},
	"CYC001": {
		Fix:         "Remove cycle=True from the connection '{source}' -> '{target}' and declare the loop with create_cycle().",
		Explanation: "The cycle=True flag is no longer supported; cycles are declared through the cycle builder.",
		CodeExample: `workflow.add_connection("{source}", "result", "{target}", "input_data")
cycle = workflow.create_cycle("{source}_cycle")
cycle.connect("{target}", "{source}", mapping={"result": "input_data"})
cycle.max_iterations(10)
cycle.converge_when("converged")
cycle.build()`,
	},
	"CYC002": {
		Fix:         "Set both max_iterations() and converge_when() on cycle '{cycle}' before build().",
		Explanation: "A cycle without an iteration bound and a convergence condition may never terminate.",
		CodeExample: `cycle = workflow.create_cycle("{cycle}")
cycle.max_iterations(10)
cycle.converge_when("quality > 0.95")
cycle.build()`,
	},
	"CYC003": {
		Fix:         "Rewrite the convergence condition of cycle '{cycle}' as a boolean expression.",
		Explanation: "converge_when() takes a string such as a comparison or a flag name; {message}",
		CodeExample: `cycle = workflow.create_cycle("{cycle}")
cycle.converge_when("quality > 0.95")`,
	},
	"CYC004": {
		Fix:         "Add at least one connect() call to cycle '{cycle}' before build().",
		Explanation: "A cycle with no connections has nothing to iterate over.",
		CodeExample: `cycle = workflow.create_cycle("{cycle}")
cycle.connect("processor", "evaluator", mapping={"result": "input_data"})`,
	},
	"CYC005": {
		Fix:         "Pass cycle '{cycle}' connect() mapping as a literal dict of output name to input name.",
		Explanation: "Cycle mappings route outputs to inputs and must be statically known.",
		CodeExample: `cycle = workflow.create_cycle("{cycle}")
cycle.connect("{source}", "{target}", mapping={"result": "input_data"})`,
	},
	"CYC006": {
		Fix:         "Lower max_iterations on cycle '{cycle}' or tighten its convergence condition.",
		Explanation: "Very high iteration limits usually hide a convergence condition that never becomes true.",
		CodeExample: `cycle = workflow.create_cycle("{cycle}")
cycle.max_iterations(100)`,
	},
	"CYC007": {
		Fix:         "Give cycle '{cycle}' a positive timeout in seconds.",
		Explanation: "A zero or negative timeout stops the cycle before it can run.",
		CodeExample: `cycle = workflow.create_cycle("{cycle}")
cycle.timeout(300)`,
	},
	"CYC008": {
		Fix:         "Declare node '{node}' with add_node before using it in cycle '{cycle}'.",
		Explanation: "Cycle connections can only join nodes that exist in the workflow.",
		CodeExample: `workflow.add_node("PythonCodeNode", "{node}", {"code": "result = input_data"})`,
	},
	"CYC009": {
		Fix:         "Call build() on cycle '{cycle}' once it is configured, or remove it.",
		Explanation: "A cycle that is never built is silently dropped from the workflow.",
		CodeExample: `cycle = workflow.create_cycle("{cycle}")
cycle.build()`,
	},
	"CYC010": {
		Fix:         "Set max_iterations on cycle '{cycle}' to a positive integer.",
		Explanation: "The iteration bound must allow at least one iteration.",
		CodeExample: `cycle = workflow.create_cycle("{cycle}")
cycle.max_iterations(10)`,
	},
	"TOOL001": {
		Fix:         "Report this analyzer failure; other findings are unaffected.",
		Explanation: "A validation rule failed while evaluating this workflow: {message}",
		CodeExample: `# {code}: {message}`,
	},
}

var generic = template{
	Fix:         "Resolve {code}: {message}",
	Explanation: "No specific remediation is registered for {code}.",
	CodeExample: `# {code}: {message}`,
}

// GenerateFixes returns one suggestion per diagnostic, in order. Repeated
// codes yield repeated suggestions.
func GenerateFixes(diags []ir.Diagnostic) []ir.Suggestion {
	out := make([]ir.Suggestion, len(diags))
	for i, d := range diags {
		out[i] = Fix(d)
	}
	return out
}

// Fix builds the suggestion for a single diagnostic.
func Fix(d ir.Diagnostic) ir.Suggestion {
	tmpl, ok := templates[d.Code]
	if !ok {
		tmpl = generic
	}
	r := replacer(d)
	return ir.Suggestion{
		ErrorCode:   d.Code,
		Fix:         r.Replace(tmpl.Fix),
		Explanation: r.Replace(tmpl.Explanation),
		CodeExample: r.Replace(tmpl.CodeExample),
		Priority:    ir.PriorityFor(d.Severity),
	}
}

// Known reports whether code has a dedicated template.
func Known(code string) bool {
	_, ok := templates[code]
	return ok
}

// Rank returns a copy of suggestions stably sorted by priority.
func Rank(suggestions []ir.Suggestion) []ir.Suggestion {
	out := make([]ir.Suggestion, len(suggestions))
	copy(out, suggestions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func replacer(d ir.Diagnostic) *strings.Replacer {
	node := d.NodeName
	if node == "" {
		node = d.NodeType
	}
	cycle := d.CycleName
	if cycle == "" {
		cycle = "cycle"
	}
	return strings.NewReplacer(
		"{node}", orPlaceholder(node, "my_node"),
		"{node_type}", orPlaceholder(d.NodeType, "NodeType"),
		"{cycle}", cycle,
		"{parameter}", orPlaceholder(d.ParameterName, "param"),
		"{source}", orPlaceholder(d.Source, "source"),
		"{target}", orPlaceholder(d.Target, "target"),
		"{code}", d.Code,
		"{message}", d.Message,
	)
}

func orPlaceholder(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
