package schema

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/flowlint/internal/ir"
)

// Resolver resolves node types against a live registry with a static
// fallback catalog. A Resolver is immutable and safe for concurrent use;
// all per-call state lives in a Session.
type Resolver struct {
	registry Registry
	fallback *Catalog
	logger   *zap.Logger
}

// NewResolver creates a resolver. registry and fallback may be nil.
func NewResolver(registry Registry, fallback *Catalog, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{registry: registry, fallback: fallback, logger: logger}
}

// NewSession starts a memo scoped to one validation call.
func (r *Resolver) NewSession() *Session {
	return &Session{resolver: r, memo: make(map[string]resolution)}
}

type resolution struct {
	schema *ir.ParamSchema
	ok     bool
}

// Session memoizes resolutions for the duration of one validation call.
//
// Thread Safety: NOT safe for concurrent use. Each validation call owns
// its session.
type Session struct {
	resolver *Resolver
	memo     map[string]resolution
}

// Resolve returns the parameter schema for nodeType, or false when neither
// the registry nor the fallback catalog knows it. The registry is asked at
// most once per distinct node type per session.
func (s *Session) Resolve(nodeType string) (*ir.ParamSchema, bool) {
	if nodeType == "" {
		return nil, false
	}
	if res, ok := s.memo[nodeType]; ok {
		return res.schema, res.ok
	}

	schema, ok := s.resolver.fromRegistry(nodeType)
	if !ok {
		schema, ok = s.resolver.fallback.Lookup(nodeType)
	}
	s.memo[nodeType] = resolution{schema: schema, ok: ok}
	return schema, ok
}

// Resolved returns how many distinct node types this session has resolved.
func (s *Session) Resolved() int {
	return len(s.memo)
}

// fromRegistry asks the live registry. Errors and panics both mean "no
// live schema" and are never propagated.
func (r *Resolver) fromRegistry(nodeType string) (schema *ir.ParamSchema, ok bool) {
	if r.registry == nil {
		return nil, false
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("node registry panicked",
				zap.String("node_type", nodeType),
				zap.String("panic", fmt.Sprint(rec)))
			schema, ok = nil, false
		}
	}()

	class, err := r.registry.NodeClass(nodeType)
	if err != nil || class == nil {
		r.logger.Debug("registry lookup missed",
			zap.String("node_type", nodeType),
			zap.Error(err))
		return nil, false
	}
	return &ir.ParamSchema{
		NodeType: nodeType,
		Source:   "registry",
		Params:   class.ParameterSchema(),
	}, true
}
