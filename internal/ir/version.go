package ir

// Version constants for the store schema and engine.
const (
	// SchemaVersion is the persisted catalog schema version.
	SchemaVersion = "1"

	// EngineVersion is the halodb engine version.
	EngineVersion = "0.1.0"
)
