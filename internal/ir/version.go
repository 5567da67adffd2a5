package ir

const (
	// TraceVersion is the version of the canonical event encoding.
	// Bump it whenever Event.Canonical changes shape.
	TraceVersion = "1"

	// EngineVersion is the mixer engine version.
	EngineVersion = "0.1.0"
)
