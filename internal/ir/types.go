package ir

// CallKind identifies which graph-building call produced an IR entry.
type CallKind string

const (
	KindAddNode       CallKind = "AddNode"
	KindAddConnection CallKind = "AddConnection"
	KindCreateCycle   CallKind = "CreateCycle"
	KindCycleConnect  CallKind = "CycleConnect"
	KindCycleConfig   CallKind = "CycleConfig"
	KindCycleBuild    CallKind = "CycleBuild"
)

// Cycle configuration keys carried by KindCycleConfig calls.
const (
	CycleMaxIterations = "max_iterations"
	CycleConvergeWhen  = "converge_when"
	CycleTimeout       = "timeout"
)

// Workflow is the IR extracted from one source text.
type Workflow struct {
	Calls   []Call         `json:"calls"`
	Classes []NodeClassDef `json:"classes"`
}

// Call is a single recognized graph-building call.
//
// Field usage by kind:
//   - AddNode: NodeType, NodeID, Params (ParamsDynamic when the config is not a literal)
//   - AddConnection: Args (positional), CycleFlag
//   - CreateCycle: CycleName
//   - CycleConnect: Args (source, target), Mapping
//   - CycleConfig: Key and Args[0]
//   - CycleBuild: no payload
//
// Cycle calls share CycleID so chains can be correlated.
type Call struct {
	Kind          CallKind `json:"kind"`
	NodeType      string   `json:"node_type,omitempty"`
	NodeID        string   `json:"node_id,omitempty"`
	Params        []Param  `json:"params,omitempty"`
	ParamsDynamic bool     `json:"params_dynamic,omitempty"`
	Args          []Value  `json:"args,omitempty"`
	CycleFlag     bool     `json:"cycle_flag,omitempty"`
	Key           string   `json:"key,omitempty"`
	Mapping       *Value   `json:"mapping,omitempty"`
	CycleID       int      `json:"cycle_id,omitempty"`
	CycleName     string   `json:"cycle_name,omitempty"`
	Line          int      `json:"line"`
}

// Param is one key of an add_node configuration, kept in source order.
type Param struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Param returns the named parameter, if present.
func (c Call) Param(name string) (Value, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Arg returns the i-th positional argument, or a zero Value.
func (c Call) Arg(i int) (Value, bool) {
	if i < 0 || i >= len(c.Args) {
		return Value{}, false
	}
	return c.Args[i], true
}

// NodeClassDef describes a node class defined in the analyzed source.
type NodeClassDef struct {
	ClassName        string      `json:"class_name"`
	HasSchemaMethod  bool        `json:"has_schema_method"`
	DeclaredParams   []ParamDecl `json:"declared_params,omitempty"`
	ParamsDynamic    bool        `json:"params_dynamic,omitempty"`
	ReferencedParams []ParamRef  `json:"referenced_params,omitempty"`
	Line             int         `json:"line"`
}

// ParamRef is a parameter name read by a node's run body.
type ParamRef struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// Declared reports whether name is among the declared parameters.
func (d NodeClassDef) Declared(name string) bool {
	for _, p := range d.DeclaredParams {
		if p.Name == name {
			return true
		}
	}
	return false
}

// ParamDecl is one entry of a node's parameter contract.
// An empty Type means the declaration carries no type.
type ParamDecl struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Required   bool   `json:"required"`
	Default    string `json:"default,omitempty"`
	HasDefault bool   `json:"has_default,omitempty"`
	Line       int    `json:"line,omitempty"`
}

// ParamSchema is the resolved parameter contract of a node type.
type ParamSchema struct {
	NodeType string      `json:"node_type"`
	Source   string      `json:"source"` // "registry" or "catalog"
	Params   []ParamDecl `json:"params"`
}

// RequiredParams returns the names of parameters that must be supplied:
// required and without a default, in declaration order.
func (s *ParamSchema) RequiredParams() []string {
	if s == nil {
		return nil
	}
	var names []string
	for _, p := range s.Params {
		if p.Required && !p.HasDefault {
			names = append(names, p.Name)
		}
	}
	return names
}

// NodeIDs returns the set of node ids declared via add_node.
func (w *Workflow) NodeIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, c := range w.Calls {
		if c.Kind == KindAddNode && c.NodeID != "" {
			ids[c.NodeID] = true
		}
	}
	return ids
}

// CallsOf returns the calls of the given kind in source order.
func (w *Workflow) CallsOf(kind CallKind) []Call {
	var out []Call
	for _, c := range w.Calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
