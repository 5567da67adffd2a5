package testutil

// FixedSessionGenerator returns the same session id every time.
//
// Unlike engine.FixedGenerator which returns ids in sequence, this generator
// never runs out. Golden tests use it so recorded sessions carry a stable
// id.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a fixed session id generator.
// If id is empty, Generate() returns "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session id.
//
// Implements engine.SessionIDGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
