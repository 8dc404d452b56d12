package rules

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const declaredPQ = `workflow.add_node("PythonCodeNode", "p", {"code": "x"})
workflow.add_node("PythonCodeNode", "q", {"code": "y"})
`

func cycCodes(t *testing.T, src string) []string {
	t.Helper()
	var out []string
	for _, c := range codes(validate(t, src, CategoryCycle)) {
		if strings.HasPrefix(c, "CYC") {
			out = append(out, c)
		}
	}
	return out
}

func TestCycle_WellFormedChainIsClean(t *testing.T) {
	src := declaredPQ + `cycle_builder.connect("p", "q", mapping={"x": "y"})
cycle_builder.max_iterations(10)
cycle_builder.converge_when("quality > 0.95")
cycle_builder.build()
`
	assert.Empty(t, cycCodes(t, src))
}

func TestCycle_WellFormedCreateCycleIsClean(t *testing.T) {
	src := declaredPQ + `workflow.create_cycle("refine").connect("p", "q", mapping={"x": "y"}).max_iterations(10).converge_when("quality > 0.95").timeout(300).build()
`
	assert.Empty(t, cycCodes(t, src))
}

func TestCYC001_CycleFlag(t *testing.T) {
	diags := validate(t, `workflow.add_connection("a", "out", "b", "in", cycle=True)`)
	cyc := only(diags, CodeCycleFlag)
	require.Len(t, cyc, 1)
	assert.Equal(t, "a", cyc[0].Source)
	assert.Equal(t, "b", cyc[0].Target)
}

func TestCYC002_MissingBounds(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		missing string
	}{
		{"neither", "", "max_iterations() and converge_when()"},
		{"no converge_when", "c.max_iterations(5)\n", "converge_when()"},
		{"no max_iterations", "c.converge_when(\"done\")\n", "max_iterations()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := declaredPQ + "c = workflow.create_cycle(\"loop\")\nc.connect(\"p\", \"q\")\n" + tt.config + "c.build()\n"
			diags := only(validate(t, src), CodeCycleUnbounded)
			require.Len(t, diags, 1)
			assert.Contains(t, diags[0].Message, tt.missing)
			assert.Equal(t, "loop", diags[0].CycleName)
		})
	}
}

func TestCYC002_SuppliedBothSuppresses(t *testing.T) {
	src := declaredPQ + `c = workflow.create_cycle("loop")
c.connect("p", "q")
c.max_iterations(5)
c.converge_when("done")
c.build()
`
	assert.NotContains(t, cycCodes(t, src), CodeCycleUnbounded)
}

func TestCYC002_ConfigAfterBuildDoesNotCount(t *testing.T) {
	src := declaredPQ + `c = workflow.create_cycle("loop")
c.connect("p", "q")
c.build()
c.max_iterations(5)
c.converge_when("done")
`
	assert.Contains(t, cycCodes(t, src), CodeCycleUnbounded)
}

func TestCYC003_InvalidCondition(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want bool
	}{
		{"comparison", `"quality > 0.95"`, false},
		{"dynamic", `threshold_expr`, false},
		{"empty", `""`, true},
		{"bare number", `"42"`, true},
		{"dangling operator", `"quality >"`, true},
		{"not a string", `0.95`, true},
		{"no argument", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := declaredPQ + fmt.Sprintf(`c = workflow.create_cycle("loop")
c.connect("p", "q")
c.max_iterations(5)
c.converge_when(%s)
c.build()
`, tt.arg)
			got := cycCodes(t, src)
			if tt.want {
				assert.Equal(t, []string{CodeInvalidCondition}, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestCYC004_NoConnections(t *testing.T) {
	src := `c = workflow.create_cycle("empty")
c.max_iterations(5)
c.converge_when("done")
c.build()
`
	assert.Equal(t, []string{CodeCycleNoConnections}, cycCodes(t, src))
}

func TestCYC005_Mapping(t *testing.T) {
	tests := []struct {
		name    string
		mapping string
		want    bool
	}{
		{"literal strings", `{"x": "y", "a.b": "c"}`, false},
		{"variable", `mapping_var`, false},
		{"list", `["x", "y"]`, true},
		{"string", `"x"`, true},
		{"dynamic value", `{"x": name}`, true},
		{"non-string value", `{"x": 1}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := declaredPQ + fmt.Sprintf(`c = workflow.create_cycle("loop")
c.connect("p", "q", mapping=%s)
c.max_iterations(5)
c.converge_when("done")
c.build()
`, tt.mapping)
			got := cycCodes(t, src)
			if tt.want {
				assert.Equal(t, []string{CodeInvalidMapping}, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestCycleLimits(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   []string
	}{
		{"sane", "c.max_iterations(50)\nc.timeout(30)\n", nil},
		{"high water", "c.max_iterations(5000)\n", []string{CodeIterationsHighWater}},
		{"beyond int64", "c.max_iterations(99999999999999999999)\n", []string{CodeIterationsHighWater}},
		{"at high water", "c.max_iterations(1000)\n", nil},
		{"zero iterations", "c.max_iterations(0)\n", []string{CodeInvalidMaxIterations}},
		{"negative iterations", "c.max_iterations(-3)\n", []string{CodeInvalidMaxIterations}},
		{"string iterations", "c.max_iterations(\"ten\")\n", []string{CodeInvalidMaxIterations}},
		{"dynamic iterations", "c.max_iterations(limit)\n", nil},
		{"zero timeout", "c.max_iterations(5)\nc.timeout(0)\n", []string{CodeInvalidTimeout}},
		{"negative timeout", "c.max_iterations(5)\nc.timeout(-1.5)\n", []string{CodeInvalidTimeout}},
		{"fractional timeout", "c.max_iterations(5)\nc.timeout(0.5)\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := declaredPQ + "c = workflow.create_cycle(\"loop\")\nc.connect(\"p\", \"q\")\n" +
				tt.config + "c.converge_when(\"done\")\n"
			got := cycCodes(t, src+"c.build()\n")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCYC006_ConfigurableHighWater(t *testing.T) {
	src := declaredPQ + `c = workflow.create_cycle("loop")
c.connect("p", "q")
c.max_iterations(200)
c.converge_when("done")
c.build()
`
	opts := DefaultOptions()
	opts.MaxIterationsHighWater = 100
	got := codes(validateWith(t, src, opts, CategoryCycle))
	assert.Equal(t, []string{CodeIterationsHighWater}, got)
}

func TestCYC008_UndeclaredEndpoints(t *testing.T) {
	src := `workflow.add_node("PythonCodeNode", "p", {"code": "x"})
c = workflow.create_cycle("loop")
c.connect("p", "ghost", mapping={"x": "y"})
c.max_iterations(5)
c.converge_when("done")
c.build()
`
	diags := only(validate(t, src), CodeUndeclaredCycleNode)
	require.Len(t, diags, 1)
	assert.Equal(t, "ghost", diags[0].NodeName)
	assert.Equal(t, "loop", diags[0].CycleName)
	assert.Equal(t, 3, diags[0].Line)
}

func TestCYC008_NoNodesDeclared(t *testing.T) {
	src := `c = workflow.create_cycle("loop")
c.connect("p", "q")
c.max_iterations(5)
c.converge_when("done")
c.build()
`
	assert.Len(t, only(validate(t, src), CodeUndeclaredCycleNode), 2)
}

func TestCYC009_NeverBuilt(t *testing.T) {
	src := declaredPQ + `c = workflow.create_cycle("draft")
c.connect("p", "q")
c.max_iterations(5)
`
	diags := only(validate(t, src), CodeCycleNeverBuilt)
	require.Len(t, diags, 1)
	assert.Equal(t, "draft", diags[0].CycleName)
	assert.Equal(t, 3, diags[0].Line)
}

func TestCycles_IndependentChains(t *testing.T) {
	src := declaredPQ + `good = workflow.create_cycle("good")
good.connect("p", "q")
good.max_iterations(5)
good.converge_when("done")
good.build()
bad = workflow.create_cycle("bad")
bad.build()
`
	diags := validate(t, src, CategoryCycle)
	for _, d := range diags {
		assert.Equal(t, "bad", d.CycleName, d.Code)
	}
	assert.Equal(t, []string{CodeCycleUnbounded, CodeCycleNoConnections}, codes(diags))
}

func TestLargeChainValidatesQuickly(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "workflow.add_node(\"PythonCodeNode\", \"n%d\", {\"code\": \"x\"})\n", i)
	}
	for i := 0; i < 49; i++ {
		fmt.Fprintf(&b, "workflow.add_connection(\"n%d\", \"result\", \"n%d\", \"input\")\n", i, i+1)
	}

	start := time.Now()
	diags := validate(t, b.String())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, diags)
}
