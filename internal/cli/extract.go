package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlint/internal/extract"
	"github.com/roach88/flowlint/internal/ir"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file|->",
		Short: "Print the graph-building calls found in a source file",
		Long: `Extract add_node, add_connection and cycle-builder calls plus node
class definitions from a source file without running any rules.
JSON output is the full intermediate representation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runExtract(opts *RootOptions, cmd *cobra.Command, path string) error {
	f := opts.formatter(cmd)

	source, err := readSource(cmd, path)
	if err != nil {
		return sourceError(f, path, err)
	}
	wf, err := extract.Extract(commandContext(cmd), source)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidInput) {
			return fail(f, ErrCodeInvalidInput, err)
		}
		return fail(f, ErrCodeGeneric, err)
	}

	if f.JSON() {
		return f.Success(wf)
	}
	writeWorkflowText(f.Writer, wf)
	return nil
}

func writeWorkflowText(w io.Writer, wf *ir.Workflow) {
	fmt.Fprintf(w, "%d call(s), %d node class(es)\n", len(wf.Calls), len(wf.Classes))
	for _, c := range wf.Calls {
		fmt.Fprintf(w, "  %4d  %-14s %s\n", c.Line, c.Kind, describeCall(c))
	}
	for _, cls := range wf.Classes {
		params := make([]string, len(cls.DeclaredParams))
		for i, p := range cls.DeclaredParams {
			params[i] = p.Name
		}
		schema := "no get_parameters"
		switch {
		case cls.HasSchemaMethod && cls.ParamsDynamic:
			schema = "dynamic parameters"
		case cls.HasSchemaMethod:
			schema = "params: " + strings.Join(params, ", ")
		}
		fmt.Fprintf(w, "  %4d  class %s (%s)\n", cls.Line, cls.ClassName, schema)
	}
}

func describeCall(c ir.Call) string {
	switch c.Kind {
	case ir.KindAddNode:
		names := make([]string, len(c.Params))
		for i, p := range c.Params {
			names[i] = p.Name
		}
		desc := fmt.Sprintf("%s %q {%s}", c.NodeType, c.NodeID, strings.Join(names, ", "))
		if c.ParamsDynamic {
			desc += " (dynamic config)"
		}
		return desc
	case ir.KindAddConnection:
		desc := fmt.Sprintf("%d positional arg(s)", len(c.Args))
		if c.CycleFlag {
			desc += ", cycle=True"
		}
		return desc
	case ir.KindCreateCycle:
		return fmt.Sprintf("cycle #%d %q", c.CycleID, c.CycleName)
	case ir.KindCycleConfig:
		return fmt.Sprintf("cycle #%d %s", c.CycleID, c.Key)
	default:
		return fmt.Sprintf("cycle #%d", c.CycleID)
	}
}
