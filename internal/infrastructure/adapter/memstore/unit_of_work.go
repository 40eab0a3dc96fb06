package memstore

import (
	"context"
	"fmt"

	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/saga"
)

// UnitOfWork applies writes immediately and undoes them from a journal on rollback
type UnitOfWork struct {
	store *Store
}

// NewUnitOfWork creates a unit of work over the store
func NewUnitOfWork(store *Store) persistence.UnitOfWork {
	return &UnitOfWork{store: store}
}

// Begin starts a journal bound to the returned context
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	return saga.WithJournal(ctx, saga.NewJournal(u.store.rows)), nil
}

// Commit keeps the writes
func (u *UnitOfWork) Commit(ctx context.Context) error {
	j, ok := saga.FromContext(ctx)
	if !ok {
		return fmt.Errorf("no transaction found in context")
	}
	return j.Commit()
}

// Rollback restores balances and removes records written in the unit
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	j, ok := saga.FromContext(ctx)
	if !ok {
		return fmt.Errorf("no transaction found in context")
	}
	if err := j.Compensate(context.WithoutCancel(ctx)); err != nil {
		u.store.logger.Error("Failed to roll back in-memory unit of work", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}

// GetDirectoryRepository returns the directory view of the store
func (u *UnitOfWork) GetDirectoryRepository(ctx context.Context) persistence.DirectoryRepository {
	return &directory{s: u.store}
}

// GetLedgerRepository returns a ledger bound to the unit in ctx, if any
func (u *UnitOfWork) GetLedgerRepository(ctx context.Context) persistence.LedgerRepository {
	j, _ := saga.FromContext(ctx)
	return &ledger{s: u.store, journal: j}
}
