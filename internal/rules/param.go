package rules

import (
	"strings"

	"github.com/roach88/flowlint/internal/ir"
)

func registerParameterRules(s *Set) {
	s.Register(Rule{Name: "schema-method", Category: CategoryParameter, Check: checkSchemaMethod})
	s.Register(Rule{Name: "undeclared-parameter", Category: CategoryParameter, Check: checkUndeclaredParameters})
	s.Register(Rule{Name: "untyped-parameter", Category: CategoryParameter, Check: checkUntypedParameters})
	s.Register(Rule{Name: "required-parameters", Category: CategoryParameter, Check: checkRequiredParameters})
}

// PAR001: node class without get_parameters.
func checkSchemaMethod(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, cls := range w.Classes {
		if cls.HasSchemaMethod {
			continue
		}
		d := diag(CodeMissingSchemaMethod, cls.Line,
			"Node class '%s' does not define get_parameters()", cls.ClassName)
		d.NodeName = cls.ClassName
		d.NodeType = cls.ClassName
		diags = append(diags, d)
	}
	return diags
}

// PAR002: run body reads a parameter the class never declares.
// Classes without a schema method are covered by PAR001 alone, and
// classes whose declarations are not literal are skipped.
func checkUndeclaredParameters(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, cls := range w.Classes {
		if !cls.HasSchemaMethod || cls.ParamsDynamic {
			continue
		}
		for _, ref := range cls.ReferencedParams {
			if cls.Declared(ref.Name) {
				continue
			}
			d := diag(CodeUndeclaredParameter, ref.Line,
				"Node class '%s' reads parameter '%s' which is not declared in get_parameters()",
				cls.ClassName, ref.Name)
			d.NodeName = cls.ClassName
			d.NodeType = cls.ClassName
			d.ParameterName = ref.Name
			diags = append(diags, d)
		}
	}
	return diags
}

// PAR003: declared parameter without a type.
func checkUntypedParameters(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, cls := range w.Classes {
		if !cls.HasSchemaMethod {
			continue
		}
		for _, p := range cls.DeclaredParams {
			if p.Type != "" {
				continue
			}
			line := p.Line
			if line == 0 {
				line = cls.Line
			}
			d := diag(CodeUntypedParameter, line,
				"Parameter '%s' of node class '%s' has no type", p.Name, cls.ClassName)
			d.NodeName = cls.ClassName
			d.NodeType = cls.ClassName
			d.ParameterName = p.Name
			diags = append(diags, d)
		}
	}
	return diags
}

// PAR004 and PAR005: add_node calls checked against resolved schemas.
// Parameters supplied by an inbound connection satisfy the requirement.
// Node types defined in the same source resolve to their declared
// parameters before the resolver is asked.
func checkRequiredParameters(w *ir.Workflow, schemas Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	local := localSchemas(w)
	supplied := inboundInputs(w)

	for _, call := range w.CallsOf(ir.KindAddNode) {
		if call.NodeType == "" || call.ParamsDynamic {
			continue
		}
		s, ok := local[call.NodeType]
		if !ok {
			s, ok = schemas.Resolve(call.NodeType)
		}
		if !ok {
			d := diag(CodeUnknownNodeType, call.Line,
				"No parameter schema known for node type '%s'; required-parameter checks skipped",
				call.NodeType)
			d.NodeName = call.NodeID
			d.NodeType = call.NodeType
			diags = append(diags, d)
			continue
		}

		var missing []string
		for _, name := range s.RequiredParams() {
			if _, given := call.Param(name); given {
				continue
			}
			if supplied[call.NodeID][name] {
				continue
			}
			missing = append(missing, name)
		}
		if len(missing) == 0 {
			continue
		}

		noun := "parameter"
		if len(missing) > 1 {
			noun = "parameters"
		}
		d := diag(CodeMissingRequiredParam, call.Line,
			"Node '%s' (%s) is missing required %s: %s",
			call.NodeID, call.NodeType, noun, strings.Join(missing, ", "))
		d.NodeName = call.NodeID
		d.NodeType = call.NodeType
		d.ParameterName = strings.Join(missing, ", ")
		diags = append(diags, d)
	}
	return diags
}

// localSchemas returns the contracts of node classes defined in the
// analyzed source whose declarations are fully literal.
func localSchemas(w *ir.Workflow) map[string]*ir.ParamSchema {
	out := make(map[string]*ir.ParamSchema)
	for _, cls := range w.Classes {
		if !cls.HasSchemaMethod || cls.ParamsDynamic {
			continue
		}
		out[cls.ClassName] = &ir.ParamSchema{
			NodeType: cls.ClassName,
			Source:   "source",
			Params:   cls.DeclaredParams,
		}
	}
	return out
}
