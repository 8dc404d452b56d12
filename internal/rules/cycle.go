package rules

import (
	"math"
	"strings"

	"github.com/roach88/flowlint/internal/ir"
)

func registerCycleRules(s *Set) {
	s.Register(Rule{Name: "cycle-flag", Category: CategoryCycle, Check: checkCycleFlag})
	s.Register(Rule{Name: "cycle-bounds", Category: CategoryCycle, Check: checkCycleBounds})
	s.Register(Rule{Name: "convergence-condition", Category: CategoryCycle, Check: checkConvergence})
	s.Register(Rule{Name: "cycle-connections", Category: CategoryCycle, Check: checkCycleConnections})
	s.Register(Rule{Name: "cycle-mapping", Category: CategoryCycle, Check: checkCycleMapping})
	s.Register(Rule{Name: "cycle-limits", Category: CategoryCycle, Check: checkCycleLimits})
	s.Register(Rule{Name: "cycle-endpoints", Category: CategoryCycle, Check: checkCycleEndpoints})
	s.Register(Rule{Name: "cycle-built", Category: CategoryCycle, Check: checkCycleBuilt})
}

// cycleChain is every call of one cycle builder, in evaluation order.
type cycleChain struct {
	id    int
	name  string
	line  int
	calls []ir.Call
}

// cycles groups cycle calls by CycleID in order of first appearance.
func cycles(w *ir.Workflow) []*cycleChain {
	var out []*cycleChain
	byID := make(map[int]*cycleChain)
	for _, c := range w.Calls {
		switch c.Kind {
		case ir.KindCreateCycle, ir.KindCycleConnect, ir.KindCycleConfig, ir.KindCycleBuild:
		default:
			continue
		}
		ch, ok := byID[c.CycleID]
		if !ok {
			ch = &cycleChain{id: c.CycleID, name: c.CycleName, line: c.Line}
			byID[c.CycleID] = ch
			out = append(out, ch)
		}
		ch.calls = append(ch.calls, c)
	}
	return out
}

// before returns the calls preceding the i-th call of the chain.
func (ch *cycleChain) before(i int) []ir.Call {
	return ch.calls[:i]
}

func (ch *cycleChain) diag(code string, line int, format string, args ...any) ir.Diagnostic {
	d := diag(code, line, format, args...)
	d.CycleName = ch.name
	return d
}

func configured(calls []ir.Call, key string) bool {
	for _, c := range calls {
		if c.Kind == ir.KindCycleConfig && c.Key == key {
			return true
		}
	}
	return false
}

// CYC001: add_connection(..., cycle=True).
func checkCycleFlag(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, c := range w.CallsOf(ir.KindAddConnection) {
		if !c.CycleFlag {
			continue
		}
		ep := connectionEndpoints(c)
		d := diag(CodeCycleFlag, c.Line,
			"Connection uses cycle=True; declare cycles with create_cycle() instead")
		d.Source, d.Target = ep.source, ep.target
		diags = append(diags, d)
	}
	return diags
}

// CYC002: build() reached without max_iterations and converge_when.
func checkCycleBounds(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, ch := range cycles(w) {
		for i, c := range ch.calls {
			if c.Kind != ir.KindCycleBuild {
				continue
			}
			prior := ch.before(i)
			var missing []string
			if !configured(prior, ir.CycleMaxIterations) {
				missing = append(missing, "max_iterations()")
			}
			if !configured(prior, ir.CycleConvergeWhen) {
				missing = append(missing, "converge_when()")
			}
			if len(missing) == 0 {
				continue
			}
			diags = append(diags, ch.diag(CodeCycleUnbounded, c.Line,
				"Cycle '%s' is built without %s", ch.name, strings.Join(missing, " and ")))
		}
	}
	return diags
}

// CYC003: converge_when condition outside the grammar.
func checkConvergence(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, ch := range cycles(w) {
		for _, c := range ch.calls {
			if c.Kind != ir.KindCycleConfig || c.Key != ir.CycleConvergeWhen {
				continue
			}
			v, ok := c.Arg(0)
			if !ok || v.Kind == "" {
				diags = append(diags, ch.diag(CodeInvalidCondition, c.Line,
					"Cycle '%s' calls converge_when() without a condition", ch.name))
				continue
			}
			if v.IsDynamic() {
				continue
			}
			if !v.IsString() {
				diags = append(diags, ch.diag(CodeInvalidCondition, c.Line,
					"Cycle '%s' convergence condition %s must be a string expression", ch.name, v.Text))
				continue
			}
			if err := ParseCondition(v.Str); err != nil {
				diags = append(diags, ch.diag(CodeInvalidCondition, c.Line,
					"Cycle '%s' has an invalid convergence condition %q: %v", ch.name, v.Str, err))
			}
		}
	}
	return diags
}

// CYC004: build() before any connect().
func checkCycleConnections(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, ch := range cycles(w) {
		for i, c := range ch.calls {
			if c.Kind != ir.KindCycleBuild {
				continue
			}
			connected := false
			for _, p := range ch.before(i) {
				if p.Kind == ir.KindCycleConnect {
					connected = true
					break
				}
			}
			if !connected {
				diags = append(diags, ch.diag(CodeCycleNoConnections, c.Line,
					"Cycle '%s' is built without any connect() calls", ch.name))
			}
		}
	}
	return diags
}

// CYC005: connect() mapping that is not a literal string mapping.
// Non-literal expressions (variables, calls) cannot be judged and are
// skipped; literal values of the wrong shape are flagged.
func checkCycleMapping(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, ch := range cycles(w) {
		for _, c := range ch.calls {
			if c.Kind != ir.KindCycleConnect || c.Mapping == nil || c.Mapping.IsDynamic() {
				continue
			}
			if _, ok := c.Mapping.StringMapping(); ok {
				continue
			}
			d := ch.diag(CodeInvalidMapping, c.Line,
				"Cycle '%s' connect() mapping %s must be a literal dict of strings to strings",
				ch.name, c.Mapping.Text)
			if src, ok := c.Arg(0); ok {
				d.Source = label(src)
			}
			if dst, ok := c.Arg(1); ok {
				d.Target = label(dst)
			}
			diags = append(diags, d)
		}
	}
	return diags
}

// CYC006, CYC007 and CYC010: numeric limits of max_iterations and
// timeout.
func checkCycleLimits(w *ir.Workflow, _ Schemas, opts Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, ch := range cycles(w) {
		for _, c := range ch.calls {
			if c.Kind != ir.KindCycleConfig {
				continue
			}
			v, ok := c.Arg(0)
			if !ok || v.IsDynamic() || v.Kind == "" {
				continue
			}
			n, numeric := v.Number()

			switch c.Key {
			case ir.CycleMaxIterations:
				switch {
				case !numeric || n <= 0 || n != math.Trunc(n):
					diags = append(diags, ch.diag(CodeInvalidMaxIterations, c.Line,
						"Cycle '%s' max_iterations(%s) must be a positive integer", ch.name, v.Text))
				case n > float64(opts.highWater()):
					diags = append(diags, ch.diag(CodeIterationsHighWater, c.Line,
						"Cycle '%s' max_iterations(%s) exceeds the recommended limit of %d",
						ch.name, v.Text, opts.highWater()))
				}
			case ir.CycleTimeout:
				if !numeric || n <= 0 {
					diags = append(diags, ch.diag(CodeInvalidTimeout, c.Line,
						"Cycle '%s' timeout(%s) must be a positive number of seconds", ch.name, v.Text))
				}
			}
		}
	}
	return diags
}

// CYC008: connect() endpoint that no add_node declares.
func checkCycleEndpoints(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	ids, complete := declaredNodes(w)
	if !complete {
		return nil
	}

	var diags []ir.Diagnostic
	for _, ch := range cycles(w) {
		for _, c := range ch.calls {
			if c.Kind != ir.KindCycleConnect {
				continue
			}
			src, _ := c.Arg(0)
			dst, _ := c.Arg(1)
			for _, end := range []struct {
				role string
				v    ir.Value
			}{{"source", src}, {"target", dst}} {
				if !end.v.IsString() || ids[end.v.Str] {
					continue
				}
				d := ch.diag(CodeUndeclaredCycleNode, c.Line,
					"Cycle '%s' connect() %s '%s' is not a node declared with add_node",
					ch.name, end.role, end.v.Str)
				d.NodeName = end.v.Str
				d.Source, d.Target = label(src), label(dst)
				diags = append(diags, d)
			}
		}
	}
	return diags
}

// CYC009: cycle that is never built.
func checkCycleBuilt(w *ir.Workflow, _ Schemas, _ Options) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, ch := range cycles(w) {
		built := false
		for _, c := range ch.calls {
			if c.Kind == ir.KindCycleBuild {
				built = true
				break
			}
		}
		if built {
			continue
		}
		diags = append(diags, ch.diag(CodeCycleNeverBuilt, ch.line,
			"Cycle '%s' is configured but build() is never called", ch.name))
	}
	return diags
}
