package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/model"
)

// LedgerRepository implements persistence.LedgerRepository using GORM.
// Bound to a transaction by the unit of work.
type LedgerRepository struct {
	db              *gorm.DB
	timeProvider    coreport.TimeProvider
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

var _ persistence.LedgerRepository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new LedgerRepository instance
func NewLedgerRepository(db *gorm.DB, timeProvider coreport.TimeProvider, logger coreport.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:              db,
		timeProvider:    timeProvider,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// GetUserForUpdate retrieves a user and takes a FOR UPDATE row lock on it
func (r *LedgerRepository) GetUserForUpdate(ctx context.Context, id string) (*entity.User, error) {
	var userModel model.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&userModel).Error
	if err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, "locking user", err, errs.ErrUserNotFound, map[string]any{
			"user_id": id,
		})
	}

	// accounts are immutable and need no lock
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).Order("position").Find(&userModel.Accounts).Error; err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, "loading accounts", err, errs.ErrUserNotFound, map[string]any{
			"user_id": id,
		})
	}

	return userToEntity(&userModel, r.timeProvider)
}

// UpdateBalance sets the wallet balance of a user
func (r *LedgerRepository) UpdateBalance(ctx context.Context, userID string, newBalance int64) error {
	if newBalance < 0 {
		return errs.ErrNegativeBalance
	}

	r.logger.Debug("Updating balance", map[string]any{
		"user_id":     userID,
		"new_balance": entity.AmountToString(newBalance),
	})

	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"balance":    newBalance,
			"updated_at": r.timeProvider.Now(),
		})
	if result.Error != nil {
		return handleDatabaseError(r.logger, r.errorClassifier, "updating balance", result.Error, errs.ErrUserNotFound, map[string]any{
			"user_id": userID,
		})
	}
	if result.RowsAffected == 0 {
		r.logger.Warn("User not found during balance update", map[string]any{"user_id": userID})
		return errs.ErrUserNotFound
	}

	return nil
}

// CreateTransaction appends a transaction record
func (r *LedgerRepository) CreateTransaction(ctx context.Context, txn *entity.Transaction) error {
	r.logger.Debug("Creating transaction", map[string]any{
		"transaction_id": txn.ID,
		"type":           txn.Type,
		"payer_id":       txn.PayerID(),
	})

	if err := r.db.WithContext(ctx).Create(transactionToModel(txn)).Error; err != nil {
		if r.errorClassifier.IsDuplicateKeyError(err) {
			r.logger.Warn("Duplicate transaction detected", map[string]any{
				"transaction_id": txn.ID,
				"payer_id":       txn.PayerID(),
			})
			return errs.NewDuplicateTransactionError(txn.ID, txn.PayerID())
		}
		return handleDatabaseError(r.logger, r.errorClassifier, "creating transaction", err, errs.ErrTransactionNotFound, map[string]any{
			"transaction_id": txn.ID,
		})
	}

	return nil
}

// TransactionExists checks if a transaction with the given ID already exists
func (r *LedgerRepository) TransactionExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, handleDatabaseError(r.logger, r.errorClassifier, "checking transaction", err, errs.ErrTransactionNotFound, map[string]any{
			"transaction_id": id,
		})
	}
	return count > 0, nil
}

// GetTransaction retrieves a transaction by ID
func (r *LedgerRepository) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	var txModel model.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txModel).Error; err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, "getting transaction", err, errs.ErrTransactionNotFound, map[string]any{
			"transaction_id": id,
		})
	}
	return transactionToEntity(&txModel), nil
}

// ListTransactions returns every transaction, newest first
func (r *LedgerRepository) ListTransactions(ctx context.Context) ([]*entity.Transaction, error) {
	return r.list(ctx, r.db.WithContext(ctx))
}

// ListTransactionsByUser returns the transactions a user took part in, newest first
func (r *LedgerRepository) ListTransactionsByUser(ctx context.Context, userID string) ([]*entity.Transaction, error) {
	query := r.db.WithContext(ctx).
		Where("sender_id = ?", userID).
		Or("receiver_id = ?", userID).
		Or("user_id = ?", userID)
	return r.list(ctx, query)
}

func (r *LedgerRepository) list(ctx context.Context, query *gorm.DB) ([]*entity.Transaction, error) {
	var txModels []model.Transaction
	// ids are time-ordered, so they break ties between equal dates
	if err := query.Order("date DESC").Order("id DESC").Find(&txModels).Error; err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, "listing transactions", err, errs.ErrTransactionNotFound, nil)
	}

	txns := make([]*entity.Transaction, 0, len(txModels))
	for i := range txModels {
		txns = append(txns, transactionToEntity(&txModels[i]))
	}
	return txns, nil
}
