package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
)

// EntityType represents the type of entity for errors mapping
type EntityType string

const (
	EntityTypeUser        EntityType = "user"
	EntityTypeAccount     EntityType = "account"
	EntityTypeBank        EntityType = "bank"
	EntityTypeTransaction EntityType = "transaction"
	EntityTypeSenderLock  EntityType = "sender_lock"
)

// Unique constraint names created by the migrations
const (
	ConstraintUserEmail      = "idx_users_email"
	ConstraintUserEmailLower = "idx_users_email_lower"
	ConstraintAccountNumber  = "idx_accounts_bank_account"
	ConstraintTransactionKey = "transactions_pkey"
	ConstraintUserKey        = "users_pkey"
)

const pgUniqueViolation = "23505"

// ErrorMapper maps database errors to domain errors
type ErrorMapper struct{}

// NewErrorMapper creates a new ErrorMapper
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError maps a database error to a domain error
func (m *ErrorMapper) MapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return mapUniqueViolation(pgErr.ConstraintName)
	}

	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "deadlock") ||
		strings.Contains(errMsg, "serialization") ||
		strings.Contains(errMsg, "lock timeout"):
		return errs.ErrUserLocked

	case strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint"):
		switch {
		case strings.Contains(errMsg, "transaction"):
			return errs.ErrDuplicateTransaction
		case strings.Contains(errMsg, "email"):
			return errs.ErrDuplicateEmail
		case strings.Contains(errMsg, "account"):
			return errs.ErrDuplicateAccount
		}
		return errs.ErrDuplicateUser

	case strings.Contains(errMsg, "check constraint") ||
		strings.Contains(errMsg, "foreign key constraint"):
		return errs.ErrConstraintViolation

	case strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no connection") ||
		strings.Contains(errMsg, "connection reset"):
		return errs.ErrDatabaseConnection

	case strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded"):
		return fmt.Errorf("%w: %s operation timed out", errs.ErrDatabaseConnection, operation)

	default:
		return fmt.Errorf("%w: %s: %v", errs.ErrInternalServer, operation, err)
	}
}

func mapUniqueViolation(constraint string) error {
	switch constraint {
	case ConstraintUserEmail, ConstraintUserEmailLower:
		return errs.ErrDuplicateEmail
	case ConstraintAccountNumber:
		return errs.ErrDuplicateAccount
	case ConstraintTransactionKey:
		return errs.ErrDuplicateTransaction
	default:
		return errs.ErrDuplicateUser
	}
}

// MapEntityNotFoundError maps database errors to specific entity not found errors
func (m *ErrorMapper) MapEntityNotFoundError(err error, entityType EntityType) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		switch entityType {
		case EntityTypeUser:
			return errs.ErrUserNotFound
		case EntityTypeAccount:
			return errs.ErrAccountNotFound
		case EntityTypeBank:
			return errs.ErrBankNotFound
		case EntityTypeTransaction:
			return errs.ErrTransactionNotFound
		default:
			return errs.ErrNotFound
		}
	}

	return m.MapError(err, string(entityType))
}

// MapUserNotFoundError maps database errors to user not found errors
func (m *ErrorMapper) MapUserNotFoundError(err error) error {
	return m.MapEntityNotFoundError(err, EntityTypeUser)
}

// MapTransactionNotFoundError maps database errors to transaction not found errors
func (m *ErrorMapper) MapTransactionNotFoundError(err error) error {
	return m.MapEntityNotFoundError(err, EntityTypeTransaction)
}
