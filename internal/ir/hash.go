package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSource     = "flowlint/source/v1"
	DomainDiagnostic = "flowlint/diagnostic/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash identifies an analyzed source text.
func SourceHash(source string) string {
	return hashWithDomain(DomainSource, []byte(source))
}

// DiagnosticFingerprint computes a stable identity for a diagnostic.
// Identical findings on identical input always produce the same fingerprint.
func DiagnosticFingerprint(d Diagnostic) (string, error) {
	canonical, err := MarshalCanonical(d)
	if err != nil {
		return "", fmt.Errorf("DiagnosticFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDiagnostic, canonical), nil
}

// MustDiagnosticFingerprint is like DiagnosticFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDiagnosticFingerprint(d Diagnostic) string {
	fp, err := DiagnosticFingerprint(d)
	if err != nil {
		panic(err)
	}
	return fp
}
