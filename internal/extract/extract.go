package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/roach88/flowlint/internal/ir"
)

// ErrInvalidInput is returned for source that is not valid UTF-8.
var ErrInvalidInput = errors.New("source is not valid UTF-8")

// Builder method names.
const (
	methodAddNode       = "add_node"
	methodAddConnection = "add_connection"
	methodCreateCycle   = "create_cycle"
	methodConnect       = "connect"
	methodBuild         = "build"
)

// cycleOnlyMethods are methods that only a cycle builder exposes.
var cycleOnlyMethods = map[string]bool{
	ir.CycleMaxIterations: true,
	ir.CycleConvergeWhen:  true,
	ir.CycleTimeout:       true,
	methodBuild:           true,
}

// workflowMethods mark a receiver as a workflow builder.
var workflowMethods = map[string]bool{
	methodAddNode:       true,
	methodAddConnection: true,
	methodCreateCycle:   true,
}

// Extract parses source and returns its IR.
//
// Thread Safety: safe for concurrent use. A parser is created per call.
func Extract(ctx context.Context, source string) (*ir.Workflow, error) {
	if !utf8.ValidString(source) {
		return nil, ErrInvalidInput
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	src := []byte(source)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing source: %w", err)
	}
	defer tree.Close()

	e := newExtractor(src)
	root := tree.RootNode()
	e.prescan(root)
	e.walk(root)
	return e.wf, nil
}

// span identifies a syntax node within one tree.
type span struct {
	start, end uint32
}

func spanOf(n *sitter.Node) span {
	return span{start: n.StartByte(), end: n.EndByte()}
}

type extractor struct {
	src []byte
	wf  *ir.Workflow

	cycleNames map[int]string
	nextCycle  int
	cycleCalls map[span]int   // call nodes that evaluate to a cycle builder
	bound      map[string]int // variable -> cycle id
	implicit   map[string]bool
}

func newExtractor(src []byte) *extractor {
	return &extractor{
		src:        src,
		wf:         &ir.Workflow{Calls: []ir.Call{}, Classes: []ir.NodeClassDef{}},
		cycleNames: make(map[int]string),
		cycleCalls: make(map[span]int),
		bound:      make(map[string]int),
		implicit:   make(map[string]bool),
	}
}

func (e *extractor) text(n *sitter.Node) string {
	return n.Content(e.src)
}

func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// prescan finds variables that act as cycle builders without ever being
// bound by create_cycle. A variable is an implicit cycle when it receives
// max_iterations or converge_when, or when its name mentions "cycle" and
// it receives any cycle-builder method. Workflow builders, self and cls
// never qualify.
func (e *extractor) prescan(root *sitter.Node) {
	excluded := map[string]bool{"self": true, "cls": true}
	candidates := make(map[string]bool)

	visit(root, func(n *sitter.Node) {
		if n.Type() != "call" {
			return
		}
		method, recv := e.callee(n)
		if recv == nil || recv.Type() != "identifier" {
			return
		}
		name := e.text(recv)
		switch {
		case workflowMethods[method]:
			excluded[name] = true
		case method == ir.CycleMaxIterations || method == ir.CycleConvergeWhen:
			candidates[name] = true
		case cycleOnlyMethods[method] || method == methodConnect:
			if strings.Contains(strings.ToLower(name), "cycle") {
				candidates[name] = true
			}
		}
	})

	for name := range candidates {
		if !excluded[name] {
			e.implicit[name] = true
		}
	}
}

// visit calls fn on every node in pre-order.
func visit(n *sitter.Node, fn func(*sitter.Node)) {
	if n == nil {
		return
	}
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		visit(n.NamedChild(i), fn)
	}
}

// walk visits nodes in post-order so that inner calls of a chain are
// handled before the calls that use them.
func (e *extractor) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i))
	}

	switch n.Type() {
	case "call":
		e.handleCall(n)
	case "assignment":
		e.handleAssignment(n)
	case "class_definition":
		if def, ok := e.classDef(n); ok {
			e.wf.Classes = append(e.wf.Classes, def)
		}
	}
}

// callee returns the called method or function name and, for attribute
// calls, the receiver expression.
func (e *extractor) callee(call *sitter.Node) (string, *sitter.Node) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return "", nil
	}
	switch fn.Type() {
	case "identifier":
		return e.text(fn), nil
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		if attr == nil {
			return "", nil
		}
		return e.text(attr), fn.ChildByFieldName("object")
	}
	return "", nil
}

func (e *extractor) handleCall(n *sitter.Node) {
	method, recv := e.callee(n)
	switch method {
	case methodAddNode:
		e.wf.Calls = append(e.wf.Calls, e.addNode(n))
	case methodAddConnection:
		e.wf.Calls = append(e.wf.Calls, e.addConnection(n))
	case methodCreateCycle:
		e.createCycle(n)
	case methodConnect, ir.CycleMaxIterations, ir.CycleConvergeWhen, ir.CycleTimeout, methodBuild:
		if recv == nil {
			return
		}
		id, ok := e.cycleOf(recv)
		if !ok {
			return
		}
		e.cycleCalls[spanOf(n)] = id
		e.wf.Calls = append(e.wf.Calls, e.cycleMethod(n, method, id))
	}
}

// handleAssignment binds `var = <cycle expression>` so later statements on
// var correlate with the same cycle.
func (e *extractor) handleAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || left.Type() != "identifier" {
		return
	}
	name := e.text(left)
	if right == nil {
		return
	}
	if id, ok := e.cycleOf(right); ok {
		e.bound[name] = id
		return
	}
	delete(e.bound, name)
}

// cycleOf resolves an expression to the cycle builder it evaluates to.
func (e *extractor) cycleOf(n *sitter.Node) (int, bool) {
	switch n.Type() {
	case "call":
		id, ok := e.cycleCalls[spanOf(n)]
		return id, ok
	case "identifier":
		name := e.text(n)
		if id, ok := e.bound[name]; ok {
			return id, true
		}
		if e.implicit[name] {
			id := e.newCycle(name)
			e.bound[name] = id
			return id, true
		}
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return e.cycleOf(n.NamedChild(0))
		}
	}
	return 0, false
}

func (e *extractor) newCycle(name string) int {
	e.nextCycle++
	e.cycleNames[e.nextCycle] = name
	return e.nextCycle
}

func (e *extractor) createCycle(n *sitter.Node) {
	args := e.arguments(n)
	name := ""
	if v, ok := args.first("name", "cycle_id", "cycle_name"); ok && v.IsString() {
		name = v.Str
	}
	id := e.newCycle(name)
	if name == "" {
		e.cycleNames[id] = fmt.Sprintf("cycle_%d", id)
	}
	e.cycleCalls[spanOf(n)] = id
	e.wf.Calls = append(e.wf.Calls, ir.Call{
		Kind:      ir.KindCreateCycle,
		CycleID:   id,
		CycleName: e.cycleNames[id],
		Line:      lineOf(n),
	})
}

func (e *extractor) cycleMethod(n *sitter.Node, method string, id int) ir.Call {
	args := e.arguments(n)
	call := ir.Call{
		CycleID:   id,
		CycleName: e.cycleNames[id],
		Line:      lineOf(n),
	}

	switch method {
	case methodConnect:
		call.Kind = ir.KindCycleConnect
		src, _ := args.at(0, "source_node", "source")
		dst, _ := args.at(1, "target_node", "target")
		call.Args = []ir.Value{src, dst}
		if m, ok := args.at(2, "mapping"); ok {
			call.Mapping = &m
		}
	case methodBuild:
		call.Kind = ir.KindCycleBuild
	default:
		call.Kind = ir.KindCycleConfig
		call.Key = method
		if v, ok := args.at(0, "iterations", "max_iterations", "condition", "seconds", "timeout"); ok {
			call.Args = []ir.Value{v}
		}
	}
	return call
}

func (e *extractor) addNode(n *sitter.Node) ir.Call {
	args := e.arguments(n)
	call := ir.Call{Kind: ir.KindAddNode, Line: lineOf(n), Params: []ir.Param{}}

	if v, ok := args.at(0, "node_type"); ok {
		call.NodeType = nodeTypeName(v)
	}
	if v, ok := args.at(1, "node_id"); ok && v.IsString() {
		call.NodeID = v.Str
	}

	if cfg, ok := args.at(2, "config"); ok {
		if cfg.Kind == ir.ValueDict {
			for _, entry := range cfg.Entries {
				if !entry.Key.IsString() {
					call.ParamsDynamic = true
					continue
				}
				call.Params = append(call.Params, ir.Param{Name: entry.Key.Str, Value: entry.Value})
			}
		} else if cfg.Kind != ir.ValueNone {
			call.ParamsDynamic = true
		}
	}

	for _, kw := range args.keywords {
		switch kw.name {
		case "node_type", "node_id", "config":
			continue
		}
		call.Params = append(call.Params, ir.Param{Name: kw.name, Value: kw.value})
	}
	if args.splat {
		call.ParamsDynamic = true
	}
	return call
}

// nodeTypeName accepts a string literal or a class reference.
func nodeTypeName(v ir.Value) string {
	switch v.Kind {
	case ir.ValueString:
		return v.Str
	case ir.ValueDynamic:
		return classRefName(v.Text)
	}
	return ""
}

func (e *extractor) addConnection(n *sitter.Node) ir.Call {
	args := e.arguments(n)
	call := ir.Call{Kind: ir.KindAddConnection, Line: lineOf(n), Args: args.positional}
	for _, kw := range args.keywords {
		if kw.name == "cycle" {
			call.CycleFlag = kw.value.Kind == ir.ValueBool && kw.value.Text == "True"
			continue
		}
		call.Params = append(call.Params, ir.Param{Name: kw.name, Value: kw.value})
	}
	return call
}
