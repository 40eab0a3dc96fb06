package persistence

import (
	"context"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
)

// DirectoryRepository defines read access to users, banks and accounts,
// plus user creation at signup
type DirectoryRepository interface {
	// GetUserByID retrieves a user by ID
	//
	// Possible errors:
	// - ErrUserNotFound: If user with specified ID doesn't exist
	// - ErrDatabaseConnection / ErrStoreUnavailable: If the store cannot be reached
	GetUserByID(ctx context.Context, id string) (*entity.User, error)

	// GetUserByEmail retrieves a user by email, compared case-insensitively
	//
	// Possible errors:
	// - ErrUserNotFound: If no user has the email
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)

	// GetUserByPhone retrieves a user by phone number
	//
	// Possible errors:
	// - ErrUserNotFound: If no user has the phone number
	GetUserByPhone(ctx context.Context, phone string) (*entity.User, error)

	// GetUserByAccount retrieves the holder of a (bank, account number) pair
	//
	// Possible errors:
	// - ErrAccountNotFound: If no user holds the account
	GetUserByAccount(ctx context.Context, bankCode, accountNumber string) (*entity.User, error)

	// ListUsers returns every user
	ListUsers(ctx context.Context) ([]*entity.User, error)

	// CreateUser stores a new user together with its accounts
	//
	// Possible errors:
	// - ErrDuplicateEmail: If the email is taken
	// - ErrDuplicateAccount: If an account number is already assigned
	// - ErrDuplicateUser: If the ID is taken
	CreateUser(ctx context.Context, user *entity.User) error

	// ListBanks returns the bank reference data
	ListBanks(ctx context.Context) ([]entity.Bank, error)

	// GetBank retrieves a bank by code
	//
	// Possible errors:
	// - ErrBankNotFound: If the code is unknown
	GetBank(ctx context.Context, code string) (*entity.Bank, error)

	// EnsureBanks inserts the given banks when they are missing
	EnsureBanks(ctx context.Context, banks []entity.Bank) error
}
