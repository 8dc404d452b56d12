package rules

import (
	"strings"

	"github.com/roach88/flowlint/internal/ir"
)

// endpoints are the resolved ends of an add_connection call. Empty
// strings mean the end is absent or not a string literal.
type endpoints struct {
	source, sourceOutput string
	target, targetInput  string
}

// connectionEndpoints reads the canonical four-argument form
// add_connection(source, source_output, target, target_input), with
// keyword arguments filling any position not given positionally.
func connectionEndpoints(c ir.Call) endpoints {
	pick := func(i int, names ...string) string {
		if v, ok := c.Arg(i); ok {
			if v.IsString() {
				return v.Str
			}
			return ""
		}
		for _, name := range names {
			if v, ok := c.Param(name); ok && v.IsString() {
				return v.Str
			}
		}
		return ""
	}

	if len(c.Args) == 2 {
		return endpoints{source: pick(0), target: pick(1)}
	}
	return endpoints{
		source:       pick(0, "source", "from_node", "source_node"),
		sourceOutput: pick(1, "source_output", "from_output", "output"),
		target:       pick(2, "target", "to_node", "target_node"),
		targetInput:  pick(3, "target_input", "to_input", "input"),
	}
}

// inboundInputs returns, per target node id, the parameter names fed by
// connections: the target input of plain connections and the mapped
// values of cycle connections. Dotted inputs supply their first segment.
func inboundInputs(w *ir.Workflow) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	add := func(node, input string) {
		if node == "" || input == "" {
			return
		}
		input, _, _ = strings.Cut(input, ".")
		if out[node] == nil {
			out[node] = make(map[string]bool)
		}
		out[node][input] = true
	}

	for _, c := range w.Calls {
		switch c.Kind {
		case ir.KindAddConnection:
			if len(c.Args) == 3 {
				continue
			}
			ep := connectionEndpoints(c)
			add(ep.target, ep.targetInput)
		case ir.KindCycleConnect:
			if c.Mapping == nil {
				continue
			}
			dst, _ := c.Arg(1)
			if !dst.IsString() {
				continue
			}
			for _, e := range c.Mapping.Entries {
				if e.Value.IsString() {
					add(dst.Str, e.Value.Str)
				}
			}
		}
	}
	return out
}

// declaredNodes returns the literal add_node ids and whether every
// add_node id was literal. Endpoint checks skip when it is false.
func declaredNodes(w *ir.Workflow) (map[string]bool, bool) {
	complete := true
	for _, c := range w.CallsOf(ir.KindAddNode) {
		if c.NodeID == "" {
			complete = false
		}
	}
	return w.NodeIDs(), complete
}

// connectionGraph is an adjacency list in first-appearance order.
type connectionGraph struct {
	order []string
	edges map[string][]string
	lines map[[2]string]int
}

func newConnectionGraph() *connectionGraph {
	return &connectionGraph{edges: make(map[string][]string), lines: make(map[[2]string]int)}
}

func (g *connectionGraph) addNode(n string) {
	if _, ok := g.edges[n]; !ok {
		g.edges[n] = []string{}
		g.order = append(g.order, n)
	}
}

func (g *connectionGraph) addEdge(from, to string, line int) {
	g.addNode(from)
	g.addNode(to)
	key := [2]string{from, to}
	if _, dup := g.lines[key]; dup {
		return
	}
	g.edges[from] = append(g.edges[from], to)
	g.lines[key] = line
}

func (g *connectionGraph) hasSelfLoop(n string) bool {
	_, ok := g.lines[[2]string{n, n}]
	return ok
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in first-appearance order so output is deterministic.
func (g *connectionGraph) tarjanSCC() [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, n := range g.order {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// loops returns every cycle in the graph as a closed path starting at the
// member that appeared first in the source.
func (g *connectionGraph) loops() [][]string {
	pos := make(map[string]int, len(g.order))
	for i, n := range g.order {
		pos[n] = i
	}

	var out [][]string
	for _, scc := range g.tarjanSCC() {
		if len(scc) == 1 && !g.hasSelfLoop(scc[0]) {
			continue
		}
		start := scc[0]
		members := make(map[string]bool, len(scc))
		for _, n := range scc {
			members[n] = true
			if pos[n] < pos[start] {
				start = n
			}
		}
		out = append(out, g.walk(start, members))
	}

	// Report loops in order of their first member.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && pos[out[j][0]] < pos[out[j-1][0]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// walk finds a closed path from start back to itself through members of
// one component. Every node of a component reaches every other, so the
// search always succeeds.
func (g *connectionGraph) walk(start string, members map[string]bool) []string {
	seen := map[string]bool{start: true}
	var dfs func(cur string, path []string) []string
	dfs = func(cur string, path []string) []string {
		for _, w := range g.edges[cur] {
			if w == start {
				return append(path, start)
			}
			if !members[w] || seen[w] {
				continue
			}
			seen[w] = true
			if found := dfs(w, append(path, w)); found != nil {
				return found
			}
		}
		return nil
	}
	if path := dfs(start, []string{start}); path != nil {
		return path
	}
	return []string{start, start}
}
