package persistence

import (
	"context"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
)

// LedgerRepository mutates wallet balances and appends transaction records.
// Writes are only meaningful inside a UnitOfWork.
type LedgerRepository interface {
	// GetUserForUpdate retrieves a user and locks its balance for the rest of the unit of work
	//
	// Possible errors:
	// - ErrUserNotFound: If user doesn't exist
	GetUserForUpdate(ctx context.Context, id string) (*entity.User, error)

	// UpdateBalance sets the wallet balance of a user, in minor units
	//
	// Possible errors:
	// - ErrUserNotFound: If user doesn't exist
	// - ErrNegativeBalance: If the balance is negative
	UpdateBalance(ctx context.Context, userID string, newBalance int64) error

	// CreateTransaction appends a transaction record
	//
	// Possible errors:
	// - ErrDuplicateTransaction: If a record with the same ID already exists
	CreateTransaction(ctx context.Context, txn *entity.Transaction) error

	// TransactionExists checks if a transaction with the given ID already exists
	// Used for idempotency checking
	TransactionExists(ctx context.Context, id string) (bool, error)

	// GetTransaction retrieves a transaction by ID
	//
	// Possible errors:
	// - ErrTransactionNotFound: If the record doesn't exist
	GetTransaction(ctx context.Context, id string) (*entity.Transaction, error)

	// ListTransactions returns every transaction, newest first
	ListTransactions(ctx context.Context) ([]*entity.Transaction, error)

	// ListTransactionsByUser returns the transactions a user took part in as
	// sender, receiver or airtime buyer, newest first
	ListTransactionsByUser(ctx context.Context, userID string) ([]*entity.Transaction, error)
}
