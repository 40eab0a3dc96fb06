package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/model"
)

// Unique constraints whose violation has a domain meaning
const (
	constraintUserEmail      = "idx_users_email"
	constraintUserEmailLower = "idx_users_email_lower"
	constraintAccountNumber  = "idx_accounts_bank_account"
)

// DirectoryRepository implements persistence.DirectoryRepository using GORM
type DirectoryRepository struct {
	db              *gorm.DB
	timeProvider    coreport.TimeProvider
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

var _ persistence.DirectoryRepository = (*DirectoryRepository)(nil)

// NewDirectoryRepository creates a new DirectoryRepository instance
func NewDirectoryRepository(db *gorm.DB, timeProvider coreport.TimeProvider, logger coreport.Logger) *DirectoryRepository {
	return &DirectoryRepository{
		db:              db,
		timeProvider:    timeProvider,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func (r *DirectoryRepository) users(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.User{}).Preload("Accounts")
}

func (r *DirectoryRepository) findUser(ctx context.Context, operation string, notFound error, query any, args ...any) (*entity.User, error) {
	var userModel model.User
	if err := r.users(ctx).Where(query, args...).First(&userModel).Error; err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, operation, err, notFound, nil)
	}
	return userToEntity(&userModel, r.timeProvider)
}

// GetUserByID retrieves a user by ID
func (r *DirectoryRepository) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	r.logger.Debug("Getting user by ID", map[string]any{"user_id": id})
	return r.findUser(ctx, "getting user", errs.ErrUserNotFound, "id = ?", id)
}

// GetUserByEmail retrieves a user by email, compared case-insensitively
func (r *DirectoryRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.findUser(ctx, "getting user by email", errs.ErrUserNotFound, "LOWER(email) = ?", email)
}

// GetUserByPhone retrieves the earliest user registered with the phone number
func (r *DirectoryRepository) GetUserByPhone(ctx context.Context, phone string) (*entity.User, error) {
	var userModel model.User
	err := r.users(ctx).Where("phone = ?", strings.TrimSpace(phone)).Order("created_at").First(&userModel).Error
	if err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, "getting user by phone", err, errs.ErrUserNotFound, nil)
	}
	return userToEntity(&userModel, r.timeProvider)
}

// GetUserByAccount retrieves the holder of a (bank, account number) pair
// through the unique accounts index
func (r *DirectoryRepository) GetUserByAccount(ctx context.Context, bankCode, accountNumber string) (*entity.User, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("bank_code = ? AND account_number = ?", bankCode, accountNumber).
		First(&account).Error
	if err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, "resolving account", err, errs.ErrAccountNotFound, map[string]any{
			"bank_code": bankCode,
		})
	}

	user, err := r.GetUserByID(ctx, account.UserID)
	if errors.Is(err, errs.ErrUserNotFound) {
		return nil, errs.ErrAccountNotFound
	}
	return user, err
}

// ListUsers returns every user in signup order
func (r *DirectoryRepository) ListUsers(ctx context.Context) ([]*entity.User, error) {
	var userModels []model.User
	if err := r.users(ctx).Order("created_at").Find(&userModels).Error; err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, "listing users", err, errs.ErrUserNotFound, nil)
	}

	users := make([]*entity.User, 0, len(userModels))
	for i := range userModels {
		user, err := userToEntity(&userModels[i], r.timeProvider)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// CreateUser stores the user and its accounts in one statement batch
func (r *DirectoryRepository) CreateUser(ctx context.Context, user *entity.User) error {
	r.logger.Debug("Creating new user", map[string]any{
		"user_id": user.ID,
		"balance": user.GetBalance(),
	})

	userModel := userToModel(user)
	userModel.Email = strings.ToLower(strings.TrimSpace(userModel.Email))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(userModel).Error
	})
	if err != nil {
		if r.errorClassifier.IsDuplicateKeyError(err) {
			return r.duplicateError(err, user.ID)
		}
		return handleDatabaseError(r.logger, r.errorClassifier, "creating user", err, errs.ErrUserNotFound, map[string]any{
			"user_id": user.ID,
		})
	}

	r.logger.Info("User created successfully", map[string]any{
		"user_id": user.ID,
		"balance": user.GetBalance(),
	})
	return nil
}

func (r *DirectoryRepository) duplicateError(err error, userID string) error {
	constraint := r.errorClassifier.ViolatedConstraint(err)
	r.logger.Warn("Duplicate user data", map[string]any{
		"user_id":    userID,
		"constraint": constraint,
	})

	switch {
	case constraint == constraintUserEmail || constraint == constraintUserEmailLower ||
		strings.Contains(err.Error(), "email"):
		return errs.ErrDuplicateEmail
	case constraint == constraintAccountNumber || strings.Contains(err.Error(), "account"):
		return errs.ErrDuplicateAccount
	default:
		return errs.ErrDuplicateUser
	}
}

// ListBanks returns the bank reference data ordered by name
func (r *DirectoryRepository) ListBanks(ctx context.Context) ([]entity.Bank, error) {
	var bankModels []model.Bank
	if err := r.db.WithContext(ctx).Order("name").Find(&bankModels).Error; err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, "listing banks", err, errs.ErrBankNotFound, nil)
	}

	banks := make([]entity.Bank, 0, len(bankModels))
	for _, b := range bankModels {
		banks = append(banks, entity.Bank{Code: b.Code, Name: b.Name})
	}
	return banks, nil
}

// GetBank retrieves a bank by code
func (r *DirectoryRepository) GetBank(ctx context.Context, code string) (*entity.Bank, error) {
	var bankModel model.Bank
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&bankModel).Error; err != nil {
		return nil, handleDatabaseError(r.logger, r.errorClassifier, "getting bank", err, errs.ErrBankNotFound, map[string]any{
			"bank_code": code,
		})
	}
	return &entity.Bank{Code: bankModel.Code, Name: bankModel.Name}, nil
}

// EnsureBanks inserts the given banks when they are missing
func (r *DirectoryRepository) EnsureBanks(ctx context.Context, banks []entity.Bank) error {
	if len(banks) == 0 {
		return nil
	}

	bankModels := make([]model.Bank, 0, len(banks))
	for _, b := range banks {
		bankModels = append(bankModels, model.Bank{Code: b.Code, Name: b.Name})
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&bankModels)
	if result.Error != nil {
		return handleDatabaseError(r.logger, r.errorClassifier, "seeding banks", result.Error, errs.ErrBankNotFound, nil)
	}

	r.logger.Info("Banks ensured", map[string]any{
		"requested": len(banks),
		"inserted":  result.RowsAffected,
	})
	return nil
}
