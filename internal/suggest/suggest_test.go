package suggest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/rules"
)

func TestGenerateFixes_OnePerDiagnosticInOrder(t *testing.T) {
	diags := []ir.Diagnostic{
		{Code: "CON002", Severity: ir.SeverityError, Source: "a", Target: "b"},
		{Code: "CON002", Severity: ir.SeverityError, Source: "c", Target: "d"},
		{Code: "CYC006", Severity: ir.SeverityWarning, CycleName: "refine"},
		{Code: "PAR001", Severity: ir.SeverityError, NodeName: "FetchNode"},
	}

	fixes := GenerateFixes(diags)
	require.Len(t, fixes, len(diags))
	for i, f := range fixes {
		assert.Equal(t, diags[i].Code, f.ErrorCode)
	}
	assert.Contains(t, fixes[0].CodeExample, `"a"`)
	assert.Contains(t, fixes[1].CodeExample, `"c"`)
	assert.Contains(t, fixes[2].CodeExample, "refine")
	assert.Contains(t, fixes[3].CodeExample, "class FetchNode(Node)")
}

func TestGenerateFixes_Empty(t *testing.T) {
	fixes := GenerateFixes(nil)
	assert.NotNil(t, fixes)
	assert.Empty(t, fixes)
}

func TestFix_InterpolatesIdentifiers(t *testing.T) {
	tests := []struct {
		diag ir.Diagnostic
		want string
	}{
		{ir.Diagnostic{Code: "PAR002", NodeName: "ScoreNode", ParameterName: "mode"}, "mode"},
		{ir.Diagnostic{Code: "PAR003", NodeName: "ScoreNode", ParameterName: "label"}, "label"},
		{ir.Diagnostic{Code: "PAR004", NodeName: "agent", NodeType: "LLMAgentNode", ParameterName: "model, prompt"}, "agent"},
		{ir.Diagnostic{Code: "PAR005", NodeName: "m", NodeType: "MysteryNode"}, "MysteryNode"},
		{ir.Diagnostic{Code: "CON001", Source: "reader", Target: "writer"}, "reader"},
		{ir.Diagnostic{Code: "CON003", NodeName: "ghost"}, "ghost"},
		{ir.Diagnostic{Code: "CON004", Source: "c", Target: "a"}, `"c"`},
		{ir.Diagnostic{Code: "CYC001", Source: "x", Target: "y"}, `"x"`},
		{ir.Diagnostic{Code: "CYC002", CycleName: "loop"}, "loop"},
		{ir.Diagnostic{Code: "CYC003", CycleName: "loop"}, "loop"},
		{ir.Diagnostic{Code: "CYC004", CycleName: "loop"}, "loop"},
		{ir.Diagnostic{Code: "CYC005", CycleName: "loop", Source: "p", Target: "q"}, `"p"`},
		{ir.Diagnostic{Code: "CYC007", CycleName: "loop"}, "loop"},
		{ir.Diagnostic{Code: "CYC008", CycleName: "loop", NodeName: "ghost"}, "ghost"},
		{ir.Diagnostic{Code: "CYC009", CycleName: "draft"}, "draft"},
		{ir.Diagnostic{Code: "CYC010", CycleName: "loop"}, "loop"},
		{ir.Diagnostic{Code: "TOOL001", Message: "Rule \"x\" failed"}, `Rule "x" failed`},
	}
	for _, tt := range tests {
		t.Run(tt.diag.Code, func(t *testing.T) {
			s := Fix(tt.diag)
			assert.Contains(t, s.CodeExample, tt.want)
			assert.NotContains(t, s.Fix, "{")
			assert.NotContains(t, s.CodeExample, "{node")
			assert.NotContains(t, s.CodeExample, "{cycle}")
		})
	}
}

func TestFix_CycleExamplesBindAVariable(t *testing.T) {
	for _, code := range []string{"CYC002", "CYC003", "CYC004", "CYC005", "CYC006", "CYC007", "CYC009", "CYC010"} {
		t.Run(code, func(t *testing.T) {
			s := Fix(ir.Diagnostic{Code: code, CycleName: "quality-check loop"})
			lines := strings.Split(s.CodeExample, "\n")
			require.GreaterOrEqual(t, len(lines), 2)
			assert.Equal(t, `cycle = workflow.create_cycle("quality-check loop")`, lines[0])
			for _, line := range lines[1:] {
				assert.True(t, strings.HasPrefix(line, "cycle."), "%q", line)
			}
		})
	}
}

func TestFix_UnknownCodeEchoesCodeAndMessage(t *testing.T) {
	s := Fix(ir.Diagnostic{Code: "CON099", Message: "custom finding", Severity: ir.SeverityInfo})
	assert.Equal(t, "CON099", s.ErrorCode)
	assert.Contains(t, s.Fix, "CON099")
	assert.Contains(t, s.Fix, "custom finding")
	assert.Contains(t, s.CodeExample, "custom finding")
	assert.Equal(t, 3, s.Priority)
}

func TestFix_MessageIsNotReinterpolated(t *testing.T) {
	s := Fix(ir.Diagnostic{Code: "XYZ123", Message: "literal {node} text", NodeName: "n"})
	assert.Contains(t, s.Fix, "literal {node} text")
}

func TestEveryTaxonomyCodeHasTemplate(t *testing.T) {
	for _, info := range rules.Taxonomy() {
		assert.True(t, Known(info.Code), info.Code)
	}
}

func TestRank_StableByPriority(t *testing.T) {
	in := []ir.Suggestion{
		{ErrorCode: "CYC006", Priority: 2},
		{ErrorCode: "PAR005", Priority: 3},
		{ErrorCode: "CON002", Priority: 1},
		{ErrorCode: "CYC009", Priority: 2},
		{ErrorCode: "PAR004", Priority: 1},
	}
	ranked := Rank(in)

	var got []string
	for _, s := range ranked {
		got = append(got, s.ErrorCode)
	}
	assert.Equal(t, []string{"CON002", "PAR004", "CYC006", "CYC009", "PAR005"}, got)
	assert.Equal(t, "CYC006", in[0].ErrorCode, "input is not reordered")
}
