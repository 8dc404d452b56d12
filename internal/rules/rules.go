package rules

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/flowlint/internal/ir"
)

// Category groups rules by the part of the workflow they inspect.
type Category string

const (
	CategoryParameter  Category = "parameter"
	CategoryConnection Category = "connection"
	CategoryCycle      Category = "cycle"
	CategoryTool       Category = "tool"
)

// categoryOrder is the order Run visits categories in.
var categoryOrder = []Category{CategoryParameter, CategoryConnection, CategoryCycle}

// DefaultMaxIterationsHighWater is the max_iterations value above which
// CYC006 fires.
const DefaultMaxIterationsHighWater = 1000

// Schemas resolves node types to parameter contracts.
// *schema.Session satisfies it.
type Schemas interface {
	Resolve(nodeType string) (*ir.ParamSchema, bool)
}

// Options tune rule behavior.
type Options struct {
	MaxIterationsHighWater int
	Disabled               []string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{MaxIterationsHighWater: DefaultMaxIterationsHighWater}
}

func (o Options) highWater() int {
	if o.MaxIterationsHighWater <= 0 {
		return DefaultMaxIterationsHighWater
	}
	return o.MaxIterationsHighWater
}

// CheckFunc inspects a workflow and returns its findings.
// Schemas may answer "unknown" for any type; checks must then skip.
type CheckFunc func(w *ir.Workflow, schemas Schemas, opts Options) []ir.Diagnostic

// Rule is one independent validator.
type Rule struct {
	Name     string
	Category Category
	Check    CheckFunc
}

// Set is a registry of rules keyed by category.
//
// Thread Safety: Register must complete before Run is called
// concurrently; Run itself holds no mutable state.
type Set struct {
	byCategory map[Category][]Rule
	logger     *zap.Logger
}

// NewSet creates an empty rule set.
func NewSet(logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{byCategory: make(map[Category][]Rule), logger: logger}
}

// Default returns a set with every built-in rule registered.
func Default(logger *zap.Logger) *Set {
	s := NewSet(logger)
	registerParameterRules(s)
	registerConnectionRules(s)
	registerCycleRules(s)
	return s
}

// Register adds a rule. Rules run in registration order within their
// category.
func (s *Set) Register(r Rule) {
	s.byCategory[r.Category] = append(s.byCategory[r.Category], r)
}

// Rules returns the registered rules of the given categories (all
// categories when none are given) in run order.
func (s *Set) Rules(categories ...Category) []Rule {
	if len(categories) == 0 {
		categories = categoryOrder
	}
	var out []Rule
	for _, cat := range categoryOrder {
		if slices.Contains(categories, cat) {
			out = append(out, s.byCategory[cat]...)
		}
	}
	return out
}

// Run evaluates the selected rules against w and returns every finding
// in rule order. Codes listed in opts.Disabled are dropped.
func (s *Set) Run(w *ir.Workflow, schemas Schemas, opts Options, categories ...Category) []ir.Diagnostic {
	if w == nil {
		return []ir.Diagnostic{}
	}
	if schemas == nil {
		schemas = noSchemas{}
	}

	diags := []ir.Diagnostic{}
	for _, r := range s.Rules(categories...) {
		diags = append(diags, s.runOne(r, w, schemas, opts)...)
	}

	if len(opts.Disabled) == 0 {
		return diags
	}
	kept := diags[:0]
	for _, d := range diags {
		if !slices.Contains(opts.Disabled, d.Code) {
			kept = append(kept, d)
		}
	}
	return kept
}

// runOne evaluates a single rule, converting a panic into TOOL001.
func (s *Set) runOne(r Rule, w *ir.Workflow, schemas Schemas, opts Options) (diags []ir.Diagnostic) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Warn("rule panicked",
				zap.String("rule", r.Name),
				zap.String("panic", fmt.Sprint(rec)))
			diags = []ir.Diagnostic{{
				Code:     CodeRuleFailure,
				Message:  fmt.Sprintf("Rule %q failed during evaluation: %v", r.Name, rec),
				Severity: severityOf(CodeRuleFailure),
			}}
		}
	}()
	return r.Check(w, schemas, opts)
}

type noSchemas struct{}

func (noSchemas) Resolve(string) (*ir.ParamSchema, bool) { return nil, false }

// diag builds a diagnostic with the code's registered severity.
func diag(code string, line int, format string, args ...any) ir.Diagnostic {
	return ir.Diagnostic{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Severity: severityOf(code),
		Line:     line,
	}
}

// label renders a value for messages: the unquoted string for string
// literals, the source text otherwise.
func label(v ir.Value) string {
	if v.IsString() {
		return v.Str
	}
	return v.Text
}
