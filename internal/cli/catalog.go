package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlint/internal/schema"
)

// CatalogEntry is one node type as listed by the catalog command.
type CatalogEntry struct {
	schema.Entry
	Source string `json:"source"` // "registry" or "catalog"
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [node-type]",
		Short: "List the node types parameter contracts are known for",
		Long: `List the node types of the builtin catalog, plus those of the live
registry when --registry-dir is set. Registry entries shadow catalog
entries of the same name. With a node type, print its parameters.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runCatalog(opts *RootOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)
	a, err := opts.newAnalyzer(f)
	if err != nil {
		return err
	}

	var registry *schema.Catalog
	if dir := opts.settings().RegistryDir; dir != "" {
		reg, err := schema.LoadRegistry(dir)
		if err != nil {
			return fail(f, ErrCodeRegistry, err)
		}
		registry = reg.Catalog()
	}
	entries := mergeCatalogs(registry, a.Catalog())

	if len(args) == 1 {
		for _, e := range entries {
			if e.NodeType == args[0] {
				if f.JSON() {
					return f.Success(e)
				}
				writeEntryText(f, e)
				return nil
			}
		}
		return fail(f, ErrCodeNotFound, fmt.Errorf("%w: %s", schema.ErrUnknownNode, args[0]))
	}

	if f.JSON() {
		return f.Success(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(f.Writer, "%-24s %-9s %s\n", e.NodeType, e.Source, strings.Join(e.requiredNames(), ", "))
	}
	return nil
}

// mergeCatalogs lists registry entries first, then catalog entries not
// shadowed by the registry.
func mergeCatalogs(registry, catalog *schema.Catalog) []CatalogEntry {
	out := []CatalogEntry{}
	seen := make(map[string]bool)
	for _, e := range registry.Entries() {
		seen[e.NodeType] = true
		out = append(out, CatalogEntry{Entry: e, Source: "registry"})
	}
	for _, e := range catalog.Entries() {
		if !seen[e.NodeType] {
			out = append(out, CatalogEntry{Entry: e, Source: "catalog"})
		}
	}
	return out
}

func (e CatalogEntry) requiredNames() []string {
	var names []string
	for _, p := range e.Params {
		if p.Required && !p.HasDefault {
			names = append(names, p.Name)
		}
	}
	return names
}

func writeEntryText(f *OutputFormatter, e CatalogEntry) {
	w := f.Writer
	fmt.Fprintf(w, "%s (%s)\n", e.NodeType, e.Source)
	if e.Description != "" {
		fmt.Fprintf(w, "  %s\n", e.Description)
	}
	for _, p := range e.Params {
		req := "optional"
		if p.Required && !p.HasDefault {
			req = "required"
		}
		line := fmt.Sprintf("  - %s: %s, %s", p.Name, p.Type, req)
		if p.HasDefault {
			line += ", default " + p.Default
		}
		fmt.Fprintln(w, line)
	}
}
