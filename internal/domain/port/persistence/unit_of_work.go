package persistence

import (
	"context"
)

// UnitOfWork defines an interface for coordinating the debit, credit and
// record of one payment so that all of them commit or none do
type UnitOfWork interface {
	// Begin starts a new unit and returns a context bound to it
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the unit in the given context
	Commit(ctx context.Context) error

	// Rollback undoes every write made in the given context
	Rollback(ctx context.Context) error

	// GetDirectoryRepository returns a directory repository bound to the
	// current unit, or to the store when ctx carries no unit
	GetDirectoryRepository(ctx context.Context) DirectoryRepository

	// GetLedgerRepository returns a ledger repository bound to the current
	// unit, or to the store when ctx carries no unit
	GetLedgerRepository(ctx context.Context) LedgerRepository
}
