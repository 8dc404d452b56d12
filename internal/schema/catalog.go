package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"

	"github.com/roach88/flowlint/internal/ir"
)

//go:embed catalog/builtin.cue
var builtinCUE string

// Entry is one node type in a catalog.
type Entry struct {
	NodeType    string         `json:"node_type"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Params      []ir.ParamDecl `json:"params"`
}

// ParameterSchema implements NodeClass.
func (e Entry) ParameterSchema() []ir.ParamDecl {
	return e.Params
}

// Catalog is an immutable lookup table of node types.
// Safe for concurrent reads.
type Catalog struct {
	entries map[string]Entry
}

// Lookup returns the schema for nodeType.
func (c *Catalog) Lookup(nodeType string) (*ir.ParamSchema, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.entries[nodeType]
	if !ok {
		return nil, false
	}
	return &ir.ParamSchema{NodeType: e.NodeType, Source: "catalog", Params: e.Params}, true
}

// Entry returns the catalog entry for nodeType.
func (c *Catalog) Entry(nodeType string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	e, ok := c.entries[nodeType]
	return e, ok
}

// Entries returns all entries sorted by node type.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeType < out[j].NodeType })
	return out
}

// Len returns the number of node types in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// CatalogError reports a malformed catalog entry with its CUE position.
type CatalogError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CatalogError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Builtin compiles the embedded catalog of well-known node types.
func Builtin() (*Catalog, error) {
	return CompileCatalog("builtin.cue", builtinCUE)
}

// MustBuiltin is like Builtin but panics on error.
// The embedded catalog is covered by tests, so this cannot fail at runtime.
func MustBuiltin() *Catalog {
	c, err := Builtin()
	if err != nil {
		panic(err)
	}
	return c
}

// CompileCatalog compiles CUE source text into a catalog.
func CompileCatalog(filename, src string) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileValue(v)
}

// LoadCatalogDir loads every .cue file in dir as one CUE instance and
// compiles it into a catalog.
func LoadCatalogDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog directory: not a directory: %s", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scanning catalog directory: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	pkg, err := catalogPackage(matches)
	if err != nil {
		return nil, err
	}
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir, Package: pkg})
	if len(instances) == 0 {
		return nil, errors.New("no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileValue(v)
}

// catalogPackage returns the load.Config package selecting every file:
// "_" when no file has a package clause, else the one shared package name.
func catalogPackage(files []string) (string, error) {
	pkg, first := "", ""
	for i, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", filepath.Base(file), err)
		}
		f, err := parser.ParseFile(file, src, parser.PackageClauseOnly)
		if err != nil {
			return "", formatCUEError(err)
		}
		name := f.PackageName()
		if i == 0 {
			pkg, first = name, filepath.Base(file)
			continue
		}
		if name != pkg {
			return "", fmt.Errorf("catalog files disagree on package: %s has %q, %s has %q",
				first, pkg, filepath.Base(file), name)
		}
	}
	if pkg == "" {
		return "_", nil
	}
	return pkg, nil
}

func compileValue(v cue.Value) (*Catalog, error) {
	cat := &Catalog{entries: make(map[string]Entry)}

	nodes := v.LookupPath(cue.ParsePath("node"))
	if !nodes.Exists() {
		return cat, nil
	}
	iter, err := nodes.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		entry, err := compileEntry(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		cat.entries[entry.NodeType] = entry
	}
	return cat, nil
}

func compileEntry(nodeType string, v cue.Value) (Entry, error) {
	entry := Entry{NodeType: nodeType, Params: []ir.ParamDecl{}}

	if d := v.LookupPath(cue.ParsePath("description")); d.Exists() {
		s, err := d.String()
		if err != nil {
			return entry, formatCUEError(err)
		}
		entry.Description = s
	}
	if c := v.LookupPath(cue.ParsePath("category")); c.Exists() {
		s, err := c.String()
		if err != nil {
			return entry, formatCUEError(err)
		}
		entry.Category = s
	}

	params := v.LookupPath(cue.ParsePath("params"))
	if !params.Exists() {
		return entry, nil
	}
	iter, err := params.Fields()
	if err != nil {
		return entry, formatCUEError(err)
	}
	for iter.Next() {
		decl, err := compileParam(iter.Label(), iter.Value())
		if err != nil {
			return entry, err
		}
		entry.Params = append(entry.Params, decl)
	}
	return entry, nil
}

func compileParam(name string, v cue.Value) (ir.ParamDecl, error) {
	decl := ir.ParamDecl{Name: name}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return decl, &CatalogError{Field: "params." + name + ".type", Message: "type is required", Pos: v.Pos()}
	}
	t, err := typeVal.String()
	if err != nil {
		return decl, formatCUEError(err)
	}
	decl.Type = t

	if r := v.LookupPath(cue.ParsePath("required")); r.Exists() {
		b, err := r.Bool()
		if err != nil {
			return decl, formatCUEError(err)
		}
		decl.Required = b
	}

	if d := v.LookupPath(cue.ParsePath("default")); d.Exists() {
		decl.HasDefault = true
		decl.Default = defaultText(d)
	}
	return decl, nil
}

// defaultText renders a CUE default the way it would appear in source.
func defaultText(v cue.Value) string {
	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String()
		return strconv.Quote(s)
	case cue.BoolKind:
		if b, _ := v.Bool(); b {
			return "True"
		}
		return "False"
	case cue.NullKind:
		return "None"
	}
	return fmt.Sprint(v)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CatalogError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
