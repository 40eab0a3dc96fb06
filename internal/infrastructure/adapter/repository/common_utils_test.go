package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	mockcore "github.com/amirhossein-jamali/mwallet/mocks/port/core"
)

func TestErrorClassifier_Classify(t *testing.T) {
	c := NewErrorClassifier()

	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ""},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}, DuplicateKeyError},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), DuplicateKeyError},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, LockError},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, LockError},
		{"check violation", &pgconn.PgError{Code: "23514"}, ConstraintError},
		{"connection refused", errors.New("dial tcp: connection refused"), TransientError},
		{"network", errors.New("network unreachable"), ConnectionError},
		{"other", errors.New("syntax error"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.err))
		})
	}
}

func TestErrorClassifier_ViolatedConstraint(t *testing.T) {
	c := NewErrorClassifier()

	assert.Equal(t, "idx_accounts_bank_account",
		c.ViolatedConstraint(&pgconn.PgError{Code: "23505", ConstraintName: "idx_accounts_bank_account"}))
	assert.Empty(t, c.ViolatedConstraint(&pgconn.PgError{Code: "23514", ConstraintName: "chk_users_balance_non_negative"}))
	assert.Empty(t, c.ViolatedConstraint(errors.New("duplicate key")))
}

func TestIsContextError(t *testing.T) {
	assert.True(t, isContextError(context.Canceled))
	assert.True(t, isContextError(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.False(t, isContextError(errors.New("boom")))
	assert.False(t, isContextError(nil))
}

func TestHandleDatabaseError(t *testing.T) {
	logger := mockcore.NewMockLogger(t)
	logger.EXPECT().Warn(mock.Anything, mock.Anything).Return().Maybe()
	logger.EXPECT().Error(mock.Anything, mock.Anything).Return().Maybe()
	c := NewErrorClassifier()

	t.Run("Record not found maps to the given error", func(t *testing.T) {
		err := handleDatabaseError(logger, c, "getting bank", gorm.ErrRecordNotFound, errs.ErrBankNotFound, nil)
		assert.Equal(t, errs.ErrBankNotFound, err)
	})

	t.Run("Lock errors map to ErrUserLocked", func(t *testing.T) {
		err := handleDatabaseError(logger, c, "locking user", &pgconn.PgError{Code: "40001"}, errs.ErrUserNotFound, nil)
		assert.ErrorIs(t, err, errs.ErrUserLocked)
	})

	t.Run("Check violations map to ErrConstraintViolation", func(t *testing.T) {
		err := handleDatabaseError(logger, c, "updating balance", &pgconn.PgError{Code: "23514"}, errs.ErrUserNotFound, nil)
		assert.ErrorIs(t, err, errs.ErrConstraintViolation)
	})

	t.Run("Anything else is a connection error", func(t *testing.T) {
		err := handleDatabaseError(logger, c, "listing", errors.New("bad things"), errs.ErrUserNotFound, map[string]any{"k": "v"})
		assert.ErrorIs(t, err, errs.ErrDatabaseConnection)
	})
}
