package identity

import (
	"math/rand/v2"
	"strconv"

	"github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/google/uuid"
)

// Generator implements core.IdentityGenerator with uuids and math/rand/v2
type Generator struct{}

// NewGenerator creates an identity generator
func NewGenerator() core.IdentityGenerator {
	return &Generator{}
}

// NewUserID returns a random v4 uuid
func (g *Generator) NewUserID() string {
	return uuid.NewString()
}

// NewTransactionID returns a v7 uuid, which sorts by creation time
func (g *Generator) NewTransactionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewAccountNumber returns 10 digits in [1000000000, 9999999999]
func (g *Generator) NewAccountNumber() string {
	return strconv.FormatInt(1_000_000_000+rand.Int64N(9_000_000_000), 10)
}

// Intn returns a random int in [0, n); n <= 0 yields 0
func (g *Generator) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}
