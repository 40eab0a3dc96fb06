package restclient

import (
	"context"
	"fmt"

	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/saga"
)

// UnitOfWork is a saga over the remote store: writes go out immediately and
// Rollback replays the journaled undo actions in reverse order
type UnitOfWork struct {
	store *Store
}

// NewUnitOfWork creates a unit of work over the store
func NewUnitOfWork(store *Store) persistence.UnitOfWork {
	return &UnitOfWork{store: store}
}

// Begin starts a journal bound to the returned context
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if _, ok := saga.FromContext(ctx); ok {
		return nil, fmt.Errorf("transaction already in progress")
	}
	return saga.WithJournal(ctx, saga.NewJournal(u.store.rows)), nil
}

// Commit keeps the writes and releases the row locks
func (u *UnitOfWork) Commit(ctx context.Context) error {
	j, ok := saga.FromContext(ctx)
	if !ok {
		return fmt.Errorf("no transaction found in context")
	}
	return j.Commit()
}

// Rollback compensates every write of the unit. Compensation runs even when
// ctx is already cancelled.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	j, ok := saga.FromContext(ctx)
	if !ok {
		return fmt.Errorf("no transaction found in context")
	}

	steps := j.Len()
	if err := j.Compensate(context.WithoutCancel(ctx)); err != nil {
		u.store.logger.Error("Compensation incomplete, remote store may need manual repair", map[string]any{
			"steps": steps,
			"error": err.Error(),
		})
		return err
	}

	if steps > 0 {
		u.store.logger.Warn("Remote store writes compensated", map[string]any{"steps": steps})
	}
	return nil
}

// GetDirectoryRepository returns the directory of the store
func (u *UnitOfWork) GetDirectoryRepository(ctx context.Context) persistence.DirectoryRepository {
	return u.store.Directory()
}

// GetLedgerRepository returns a ledger bound to the unit in ctx, if any
func (u *UnitOfWork) GetLedgerRepository(ctx context.Context) persistence.LedgerRepository {
	j, _ := saga.FromContext(ctx)
	return &ledger{s: u.store, journal: j}
}
