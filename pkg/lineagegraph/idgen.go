package lineagegraph

import "github.com/google/uuid"

// IDGenerator mints node and edge identifiers. Injected so tests can swap in
// a deterministic counter instead of random UUIDs.
type IDGenerator interface {
	NewID(prefix string) string
}

const (
	tablePrefix      = "TABLE_"
	columnPrefix     = "COLUMN_"
	expressionPrefix = "EXPR_"
	edgePrefix       = "EDGE_"
)

// uuidGenerator is the default IDGenerator, producing
// "<prefix><uuid>" ids.
type uuidGenerator struct{}

func (uuidGenerator) NewID(prefix string) string {
	return prefix + uuid.NewString()
}

// DefaultIDGenerator returns the uuid-backed generator used outside tests.
func DefaultIDGenerator() IDGenerator {
	return uuidGenerator{}
}
