package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/roach88/flowlint/internal/ir"
)

const schemaMethod = "get_parameters"

// runMethods are node methods whose bodies consume parameters.
var runMethods = map[string]bool{
	"run":       true,
	"async_run": true,
	"execute":   true,
	"process":   true,
}

// paramContainers are names a run body reads parameters from.
var paramContainers = map[string]bool{
	"kwargs":     true,
	"inputs":     true,
	"params":     true,
	"parameters": true,
}

// classDef extracts a node class definition. Only classes with a base
// whose name ends in "Node" are node classes.
func (e *extractor) classDef(n *sitter.Node) (ir.NodeClassDef, bool) {
	name := n.ChildByFieldName("name")
	if name == nil || !e.hasNodeBase(n) {
		return ir.NodeClassDef{}, false
	}

	def := ir.NodeClassDef{ClassName: e.text(name), Line: lineOf(n)}
	body := n.ChildByFieldName("body")
	if body == nil {
		return def, true
	}

	seen := make(map[string]bool)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		fn := body.NamedChild(i)
		if fn.Type() == "decorated_definition" {
			fn = fn.ChildByFieldName("definition")
		}
		if fn == nil || fn.Type() != "function_definition" {
			continue
		}
		fnName := fn.ChildByFieldName("name")
		if fnName == nil {
			continue
		}
		switch method := e.text(fnName); {
		case method == schemaMethod:
			def.HasSchemaMethod = true
			decls, dynamic := e.declaredParams(fn)
			def.DeclaredParams = append(def.DeclaredParams, decls...)
			def.ParamsDynamic = def.ParamsDynamic || dynamic
		case runMethods[method]:
			for _, ref := range e.referencedParams(fn) {
				if seen[ref.Name] {
					continue
				}
				seen[ref.Name] = true
				def.ReferencedParams = append(def.ReferencedParams, ref)
			}
		}
	}
	return def, true
}

func (e *extractor) hasNodeBase(class *sitter.Node) bool {
	bases := class.ChildByFieldName("superclasses")
	if bases == nil {
		return false
	}
	for i := 0; i < int(bases.NamedChildCount()); i++ {
		base := bases.NamedChild(i)
		if base.Type() != "identifier" && base.Type() != "attribute" {
			continue
		}
		if strings.HasSuffix(e.text(base), "Node") {
			return true
		}
	}
	return false
}

// declaredParams reads the dict literal returned by get_parameters.
// Entries that are not NodeParameter(...) calls, or a return value that is
// not a dict literal, make the declaration dynamic.
func (e *extractor) declaredParams(fn *sitter.Node) ([]ir.ParamDecl, bool) {
	var decls []ir.ParamDecl
	dynamic := false
	returned := false

	visit(fn.ChildByFieldName("body"), func(n *sitter.Node) {
		if n.Type() != "return_statement" {
			return
		}
		returned = true
		if n.NamedChildCount() == 0 {
			dynamic = true
			return
		}
		value := n.NamedChild(0)
		if value.Type() != "dictionary" {
			dynamic = true
			return
		}
		for i := 0; i < int(value.NamedChildCount()); i++ {
			pair := value.NamedChild(i)
			if pair.Type() == "comment" {
				continue
			}
			if pair.Type() != "pair" {
				dynamic = true
				continue
			}
			decl, ok := e.paramDecl(pair)
			if !ok {
				dynamic = true
				continue
			}
			decls = append(decls, decl)
		}
	})

	if !returned {
		dynamic = true
	}
	return decls, dynamic
}

func (e *extractor) paramDecl(pair *sitter.Node) (ir.ParamDecl, bool) {
	key := pair.ChildByFieldName("key")
	value := pair.ChildByFieldName("value")
	if key == nil || value == nil {
		return ir.ParamDecl{}, false
	}
	keyVal := e.valueOf(key)
	if !keyVal.IsString() || value.Type() != "call" {
		return ir.ParamDecl{}, false
	}
	callee, _ := e.callee(value)
	if callee != "NodeParameter" {
		return ir.ParamDecl{}, false
	}

	decl := ir.ParamDecl{Name: keyVal.Str, Required: true, Line: lineOf(pair)}
	args := e.arguments(value)
	if v, ok := args.keyword("name"); ok && v.IsString() {
		decl.Name = v.Str
	}
	if v, ok := args.keyword("type"); ok && v.Kind != ir.ValueNone {
		decl.Type = v.Text
	}
	if v, ok := args.keyword("required"); ok {
		decl.Required = !(v.Kind == ir.ValueBool && v.Text == "False")
	}
	if v, ok := args.keyword("default"); ok {
		decl.HasDefault = true
		decl.Default = v.Text
	}
	return decl, true
}

// referencedParams collects parameter names a run body reads:
// kwargs["x"], kwargs.get("x"), self.config["x"], self.config.get("x").
func (e *extractor) referencedParams(fn *sitter.Node) []ir.ParamRef {
	var refs []ir.ParamRef
	visit(fn.ChildByFieldName("body"), func(n *sitter.Node) {
		switch n.Type() {
		case "subscript":
			value := n.ChildByFieldName("value")
			index := n.ChildByFieldName("subscript")
			if value == nil || index == nil || !e.isParamContainer(value) {
				return
			}
			if v := e.valueOf(index); v.IsString() {
				refs = append(refs, ir.ParamRef{Name: v.Str, Line: lineOf(n)})
			}
		case "call":
			method, recv := e.callee(n)
			if method != "get" || recv == nil || !e.isParamContainer(recv) {
				return
			}
			if v, ok := e.arguments(n).first("key"); ok && v.IsString() {
				refs = append(refs, ir.ParamRef{Name: v.Str, Line: lineOf(n)})
			}
		}
	})
	return refs
}

func (e *extractor) isParamContainer(n *sitter.Node) bool {
	switch n.Type() {
	case "identifier":
		return paramContainers[e.text(n)]
	case "attribute":
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj == nil || attr == nil || e.text(obj) != "self" {
			return false
		}
		switch e.text(attr) {
		case "config", "parameters", "params":
			return true
		}
	}
	return false
}
