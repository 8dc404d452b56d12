// Package analyzer exposes the validation operations consumed by hosting
// layers: workflow and node-parameter validation, fix suggestions, the
// diagnostic taxonomy and pattern lookups by error code.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/flowlint/internal/extract"
	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/patterns"
	"github.com/roach88/flowlint/internal/rules"
	"github.com/roach88/flowlint/internal/schema"
	"github.com/roach88/flowlint/internal/suggest"
)

// Analyzer validates workflow source text.
//
// Thread Safety: An Analyzer is immutable after New and safe for
// concurrent use. Each validation call owns its IR and schema session.
type Analyzer struct {
	resolver *schema.Resolver
	rules    *rules.Set
	ruleOpts rules.Options
	patterns *patterns.Library
	logger   *zap.Logger

	registry schema.Registry
	catalog  *schema.Catalog
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRegistry sets the live node registry consulted before the catalog.
func WithRegistry(r schema.Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithCatalog replaces the builtin fallback catalog.
func WithCatalog(c *schema.Catalog) Option {
	return func(a *Analyzer) { a.catalog = c }
}

// WithPatterns sets the pattern library used by CheckErrorPattern.
func WithPatterns(l *patterns.Library) Option {
	return func(a *Analyzer) { a.patterns = l }
}

// WithRuleOptions sets rule thresholds and disabled codes.
func WithRuleOptions(o rules.Options) Option {
	return func(a *Analyzer) { a.ruleOpts = o }
}

// WithRules replaces the default rule set.
func WithRules(s *rules.Set) Option {
	return func(a *Analyzer) { a.rules = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an analyzer. Without options it uses the builtin catalog,
// no live registry, the embedded pattern corpus and the default rules.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		ruleOpts: rules.DefaultOptions(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.catalog == nil {
		a.catalog = schema.MustBuiltin()
	}
	if a.rules == nil {
		a.rules = rules.Default(a.logger)
	}
	if a.patterns == nil {
		a.patterns = patterns.Default(patterns.WithLogger(a.logger))
	}
	a.resolver = schema.NewResolver(a.registry, a.catalog, a.logger)
	return a
}

// ValidateWorkflow runs every rule category over code.
// It fails only when code is not valid UTF-8.
func (a *Analyzer) ValidateWorkflow(ctx context.Context, code string) (ir.Result, error) {
	return a.validate(ctx, "validate_workflow", code)
}

// ValidateNodeParameters runs only the parameter rules over code.
func (a *Analyzer) ValidateNodeParameters(ctx context.Context, code string) (ir.Result, error) {
	return a.validate(ctx, "validate_node_parameters", code, rules.CategoryParameter)
}

func (a *Analyzer) validate(ctx context.Context, tool, code string, categories ...rules.Category) (ir.Result, error) {
	start := time.Now()

	wf, err := extract.Extract(ctx, code)
	if err != nil {
		return ir.Result{}, fmt.Errorf("%s: %w", tool, err)
	}

	session := a.resolver.NewSession()
	diags := a.rules.Run(wf, session, a.ruleOpts, categories...)
	res := ir.NewResult(diags)

	a.logger.Debug("validation complete",
		zap.String("tool", tool),
		zap.Int("calls", len(wf.Calls)),
		zap.Int("classes", len(wf.Classes)),
		zap.Int("node_types_resolved", session.Resolved()),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Extract returns the IR of code without running any rules.
func (a *Analyzer) Extract(ctx context.Context, code string) (*ir.Workflow, error) {
	return extract.Extract(ctx, code)
}

// SuggestFixes returns one suggestion per diagnostic, in order.
func (a *Analyzer) SuggestFixes(diags []ir.Diagnostic) []ir.Suggestion {
	return suggest.GenerateFixes(diags)
}

// GetValidationPatterns returns the diagnostic taxonomy.
func (a *Analyzer) GetValidationPatterns() []rules.CodeInfo {
	return rules.Taxonomy()
}

// Patterns returns the analyzer's pattern library.
func (a *Analyzer) Patterns() *patterns.Library {
	return a.patterns
}

// Catalog returns the fallback node catalog.
func (a *Analyzer) Catalog() *schema.Catalog {
	return a.catalog
}
