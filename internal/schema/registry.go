package schema

import (
	"errors"
	"fmt"

	"github.com/roach88/flowlint/internal/ir"
)

// ErrUnknownNode is returned by registries that do not know a node type.
var ErrUnknownNode = errors.New("unknown node type")

// NodeClass is a node implementation known to a registry.
type NodeClass interface {
	ParameterSchema() []ir.ParamDecl
}

// Registry is the live node registry of the execution runtime.
// Implementations may fail or panic; the resolver treats both as absence.
type Registry interface {
	NodeClass(typeName string) (NodeClass, error)
}

// RegistryFunc adapts a function to the Registry interface.
type RegistryFunc func(typeName string) (NodeClass, error)

// NodeClass implements Registry.
func (f RegistryFunc) NodeClass(typeName string) (NodeClass, error) {
	return f(typeName)
}

// CatalogRegistry serves a catalog loaded at runtime (for example from a
// directory of CUE files) as a live registry.
type CatalogRegistry struct {
	catalog *Catalog
}

// NewCatalogRegistry wraps a catalog as a Registry.
func NewCatalogRegistry(c *Catalog) *CatalogRegistry {
	return &CatalogRegistry{catalog: c}
}

// LoadRegistry loads a directory of CUE node definitions as a Registry.
func LoadRegistry(dir string) (*CatalogRegistry, error) {
	c, err := LoadCatalogDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return NewCatalogRegistry(c), nil
}

// NodeClass implements Registry.
func (r *CatalogRegistry) NodeClass(typeName string) (NodeClass, error) {
	e, ok := r.catalog.Entry(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, typeName)
	}
	return e, nil
}

// Catalog returns the underlying catalog.
func (r *CatalogRegistry) Catalog() *Catalog {
	return r.catalog
}
