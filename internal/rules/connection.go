package rules

import (
	"strings"

	"github.com/roach88/flowlint/internal/ir"
)

func registerConnectionRules(s *Set) {
	s.Register(Rule{Name: "connection-arity", Category: CategoryConnection, Check: checkConnectionArity})
	s.Register(Rule{Name: "connection-endpoints", Category: CategoryConnection, Check: checkConnectionEndpoints})
	s.Register(Rule{Name: "implicit-loop", Category: CategoryConnection, Check: checkImplicitLoops})
}

// CON001 and CON002: add_connection with three or two positional
// arguments.
func checkConnectionArity(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, c := range w.CallsOf(ir.KindAddConnection) {
		switch len(c.Args) {
		case 2:
			src, dst := label(c.Args[0]), label(c.Args[1])
			d := diag(CodeDeprecatedConnection, c.Line,
				"add_connection('%s', '%s') uses the deprecated two-argument form; "+
					"use add_connection(source, source_output, target, target_input)",
				src, dst)
			d.Source, d.Target = src, dst
			diags = append(diags, d)
		case 3:
			src, dst := label(c.Args[0]), label(c.Args[2])
			d := diag(CodeAmbiguousConnection, c.Line,
				"add_connection with three arguments is ambiguous (source '%s'); "+
					"use add_connection(source, source_output, target, target_input)",
				src)
			d.Source, d.Target = src, dst
			diags = append(diags, d)
		}
	}
	return diags
}

// CON003: connection endpoint that no add_node declares.
func checkConnectionEndpoints(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	ids, complete := declaredNodes(w)
	if !complete || len(ids) == 0 {
		return nil
	}

	var diags []ir.Diagnostic
	for _, c := range w.CallsOf(ir.KindAddConnection) {
		if len(c.Args) == 3 {
			continue
		}
		ep := connectionEndpoints(c)
		for _, end := range []struct{ role, id string }{{"source", ep.source}, {"target", ep.target}} {
			if end.id == "" || ids[end.id] {
				continue
			}
			d := diag(CodeUndeclaredEndpoint, c.Line,
				"Connection %s '%s' is not a node declared with add_node", end.role, end.id)
			d.Source, d.Target = ep.source, ep.target
			d.NodeName = end.id
			diags = append(diags, d)
		}
	}
	return diags
}

// CON004: plain connections that close a loop. Loops must be declared
// through the cycle builder; connections flagged cycle=True are left to
// CYC001.
func checkImplicitLoops(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	g := newConnectionGraph()
	for _, c := range w.CallsOf(ir.KindAddConnection) {
		if c.CycleFlag || len(c.Args) == 3 {
			continue
		}
		ep := connectionEndpoints(c)
		if ep.source == "" || ep.target == "" {
			continue
		}
		g.addEdge(ep.source, ep.target, c.Line)
	}

	var diags []ir.Diagnostic
	for _, path := range g.loops() {
		closing := g.lines[[2]string{path[len(path)-2], path[len(path)-1]}]
		d := diag(CodeImplicitLoop, closing,
			"Connections form a loop outside a cycle builder: %s", strings.Join(path, " -> "))
		d.Source = path[len(path)-2]
		d.Target = path[len(path)-1]
		diags = append(diags, d)
	}
	return diags
}
