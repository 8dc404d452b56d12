package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/schema"
)

// CountingRegistry is a schema.Registry backed by a fixed table that
// records how often each node type was requested.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type CountingRegistry struct {
	mu      sync.Mutex
	classes map[string][]ir.ParamDecl
	calls   map[string]int
	fail    map[string]error
	panics  map[string]bool
}

// NewCountingRegistry creates a registry serving the given schemas.
func NewCountingRegistry(classes map[string][]ir.ParamDecl) *CountingRegistry {
	if classes == nil {
		classes = make(map[string][]ir.ParamDecl)
	}
	return &CountingRegistry{
		classes: classes,
		calls:   make(map[string]int),
		fail:    make(map[string]error),
		panics:  make(map[string]bool),
	}
}

// FailWith makes lookups of typeName return err.
func (r *CountingRegistry) FailWith(typeName string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[typeName] = err
}

// PanicOn makes lookups of typeName panic.
func (r *CountingRegistry) PanicOn(typeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panics[typeName] = true
}

// NodeClass implements schema.Registry.
func (r *CountingRegistry) NodeClass(typeName string) (schema.NodeClass, error) {
	r.mu.Lock()
	r.calls[typeName]++
	params, ok := r.classes[typeName]
	err := r.fail[typeName]
	shouldPanic := r.panics[typeName]
	r.mu.Unlock()

	if shouldPanic {
		panic(fmt.Sprintf("registry exploded on %s", typeName))
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownNode, typeName)
	}
	return schema.Entry{NodeType: typeName, Params: params}, nil
}

// Calls returns how many times typeName was requested.
func (r *CountingRegistry) Calls(typeName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[typeName]
}

// TotalCalls returns the number of lookups across all types.
func (r *CountingRegistry) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

// Reset clears the call counters.
func (r *CountingRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = make(map[string]int)
}
