package ir

// Version constants for the trace schema and engine.
const (
	// TraceVersion is the ResolutionTrace schema version.
	TraceVersion = "1"

	// EngineVersion is the varscope engine version.
	EngineVersion = "0.1.0"
)
