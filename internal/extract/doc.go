// Package extract scans workflow-builder source text into IR.
//
// Source is parsed with the tree-sitter Python grammar and walked, never
// evaluated. Tree-sitter is error tolerant: malformed fragments become
// ERROR subtrees that simply contribute no IR, so extraction always yields
// a (possibly partial) workflow.
//
// Recognized vocabulary:
//
//	wf.add_node("Type", "id", {...})
//	wf.add_connection("a", "out", "b", "in")
//	cb = wf.create_cycle("name")
//	cb.connect("a", "b", mapping={...}).max_iterations(10).converge_when("x > 1").timeout(60).build()
//	class MyNode(Node): def get_parameters(self): ...; def run(self, **kwargs): ...
//
// Calls are emitted in evaluation order (post-order walk), so a chain's
// inner calls precede the outer ones.
package extract
