package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceHashDeterministic(t *testing.T) {
	a := SourceHash("workflow.add_node('X', 'x', {})")
	b := SourceHash("workflow.add_node('X', 'x', {})")
	c := SourceHash("workflow.add_node('Y', 'y', {})")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestSourceHashDomainSeparated(t *testing.T) {
	// Same bytes hashed under another domain must differ.
	assert.NotEqual(t, SourceHash("x"), hashWithDomain(DomainDiagnostic, []byte("x")))
}

func TestDiagnosticFingerprintStable(t *testing.T) {
	d := Diagnostic{Code: "PAR001", Message: "missing get_parameters", Severity: SeverityError, NodeName: "MyNode", Line: 4}

	fp1, err := DiagnosticFingerprint(d)
	require.NoError(t, err)
	fp2 := MustDiagnosticFingerprint(d)
	assert.Equal(t, fp1, fp2)

	d.Line = 5
	assert.NotEqual(t, fp1, MustDiagnosticFingerprint(d))
}
