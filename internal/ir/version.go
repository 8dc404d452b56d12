package ir

// Version constants for the IR and the analyzer.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// ToolVersion is the flowlint version recorded with each run.
	ToolVersion = "0.3.0"
)
