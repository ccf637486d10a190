package testutil

// FixedPassIDGenerator names every pass with the same ID.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario resolved twice produces byte-identical records.
//
// Unlike resolver.FixedGenerator, which returns IDs in sequence, this
// generator never runs out.
//
// Thread-safety: FixedPassIDGenerator is stateless and safe for concurrent use.
type FixedPassIDGenerator struct {
	id string
}

// NewFixedPassIDGenerator creates a fixed pass-ID generator.
//
// If id is empty, Generate() returns "test-pass-default".
func NewFixedPassIDGenerator(id string) *FixedPassIDGenerator {
	if id == "" {
		id = "test-pass-default"
	}
	return &FixedPassIDGenerator{id: id}
}

// Generate returns the fixed pass ID.
//
// Implements resolver.PassIDGenerator.
func (g *FixedPassIDGenerator) Generate() string {
	return g.id
}
