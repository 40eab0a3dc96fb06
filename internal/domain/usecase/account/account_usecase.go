package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/pin"
)

// maxAccountNumberAttempts bounds the search for an unassigned account number
const maxAccountNumberAttempts = 10

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// UseCase implements usecase.AccountUseCase
type UseCase struct {
	uow             persistence.UnitOfWork
	sessions        auth.SessionProvider
	gate            *pin.Gate
	ids             coreport.IdentityGenerator
	timeProvider    coreport.TimeProvider
	logger          coreport.Logger
	startingBalance int64
}

// NewUseCase creates the account use case. startingBalance is in minor units.
func NewUseCase(
	uow persistence.UnitOfWork,
	sessions auth.SessionProvider,
	gate *pin.Gate,
	ids coreport.IdentityGenerator,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	startingBalance int64,
) *UseCase {
	return &UseCase{
		uow:             uow,
		sessions:        sessions,
		gate:            gate,
		ids:             ids,
		timeProvider:    timeProvider,
		logger:          logger,
		startingBalance: startingBalance,
	}
}

var _ usecase.AccountUseCase = (*UseCase)(nil)

// Signup validates the form and creates the user
func (uc *UseCase) Signup(ctx context.Context, req usecase.SignupRequest) (*entity.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if err := validateSignup(req, uc.gate); err != nil {
		return nil, err
	}

	dir := uc.uow.GetDirectoryRepository(ctx)

	if _, err := dir.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, errs.ErrDuplicateEmail
	} else if !errs.IsUserNotFoundError(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	banks, err := dir.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	if len(banks) == 0 {
		return nil, errs.ErrBankNotFound
	}
	bank := banks[uc.ids.Intn(len(banks))]

	accountNumber, err := uc.freeAccountNumber(ctx, dir, bank.Code)
	if err != nil {
		return nil, err
	}

	pinHash, err := uc.gate.Hash(req.PIN)
	if err != nil {
		return nil, err
	}
	passwordHash, err := uc.gate.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := entity.NewUser(entity.UserParams{
		ID:       uc.ids.NewUserID(),
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Network:  entity.DetectCarrier(req.Phone),
		Password: passwordHash,
		PIN:      pinHash,
		Balance:  uc.startingBalance,
		Accounts: []entity.Account{{BankCode: bank.Code, AccountNumber: accountNumber}},
	}, uc.timeProvider)
	if err != nil {
		return nil, err
	}

	if err := dir.CreateUser(ctx, user); err != nil {
		uc.logger.Error("Failed to create user", map[string]any{
			"email": req.Email,
			"error": err.Error(),
		})
		return nil, err
	}

	uc.logger.Info("User signed up", map[string]any{
		"user_id":   user.ID,
		"bank_code": bank.Code,
		"network":   string(user.Network),
	})
	return user, nil
}

func validateSignup(req usecase.SignupRequest, gate *pin.Gate) error {
	verr := errs.NewValidationError()
	if req.FullName == "" {
		verr.Add("fullName", "Name is required")
	}
	if req.Email == "" || !emailPattern.MatchString(req.Email) {
		verr.Add("email", "Valid email required")
	}
	if !entity.IsValidPhone(req.Phone) {
		verr.Add("phone", "Phone is required and should be 11 digits")
	}
	if len(req.Password) < pin.MinPasswordLength {
		verr.Add("password", "Password min 6 chars")
	}
	if req.Password != req.ConfirmPassword {
		verr.Add("confirmPassword", "Passwords do not match")
	}
	if gate.CheckFormat(req.PIN) != nil {
		verr.Add("pin", "PIN must be 4 digits")
	}
	return verr.OrNil()
}

func (uc *UseCase) freeAccountNumber(ctx context.Context, dir persistence.DirectoryRepository, bankCode string) (string, error) {
	for attempt := 0; attempt < maxAccountNumberAttempts; attempt++ {
		candidate := uc.ids.NewAccountNumber()
		_, err := dir.GetUserByAccount(ctx, bankCode, candidate)
		if errors.Is(err, errs.ErrAccountNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check account number: %w", err)
		}
	}
	return "", errs.ErrDuplicateAccount
}

// Login checks the credentials and starts a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (uc *UseCase) Login(ctx context.Context, email, password string) (*usecase.LoginResult, error) {
	email = strings.TrimSpace(email)

	verr := errs.NewValidationError()
	switch {
	case email == "":
		verr.Add("email", "Email is required")
	case !emailPattern.MatchString(email):
		verr.Add("email", "Email is invalid")
	}
	if password == "" {
		verr.Add("password", "Password is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	user, err := uc.uow.GetDirectoryRepository(ctx).GetUserByEmail(ctx, email)
	if err != nil {
		if errs.IsUserNotFoundError(err) {
			return nil, errs.ErrInvalidCredentials
		}
		return nil, err
	}
	if !uc.gate.VerifyPassword(user.Password, password) {
		uc.logger.Warn("Login rejected", map[string]any{"user_id": user.ID})
		return nil, errs.ErrInvalidCredentials
	}

	token, session, err := uc.sessions.SetSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	return &usecase.LoginResult{Token: token, Session: session, User: user}, nil
}

// Logout clears the session
func (uc *UseCase) Logout(ctx context.Context, token string) error {
	return uc.sessions.ClearSession(ctx, token)
}

// Dashboard returns the wallet summary of the session's user
func (uc *UseCase) Dashboard(ctx context.Context, session *auth.Session) (*usecase.Dashboard, error) {
	user, err := uc.currentUser(ctx, session)
	if err != nil {
		return nil, err
	}

	txns, err := uc.uow.GetLedgerRepository(ctx).ListTransactionsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	dash := &usecase.Dashboard{
		UserID:       user.ID,
		FullName:     user.FullName,
		FirstName:    user.FirstName(),
		Balance:      user.Balance(),
		Network:      user.Network,
		Transactions: txns,
	}
	if acc, ok := user.PrimaryAccount(); ok {
		dash.Account = acc
		if bank, err := uc.uow.GetDirectoryRepository(ctx).GetBank(ctx, acc.BankCode); err == nil {
			dash.BankName = bank.Name
		}
	}
	return dash, nil
}

// Transactions returns the session user's transactions, newest first
func (uc *UseCase) Transactions(ctx context.Context, session *auth.Session) ([]*entity.Transaction, error) {
	user, err := uc.currentUser(ctx, session)
	if err != nil {
		return nil, err
	}
	return uc.uow.GetLedgerRepository(ctx).ListTransactionsByUser(ctx, user.ID)
}

// Banks returns the bank reference data
func (uc *UseCase) Banks(ctx context.Context) ([]entity.Bank, error) {
	return uc.uow.GetDirectoryRepository(ctx).ListBanks(ctx)
}

func (uc *UseCase) currentUser(ctx context.Context, session *auth.Session) (*entity.User, error) {
	if !session.Valid() {
		return nil, errs.ErrMissingSession
	}
	return uc.uow.GetDirectoryRepository(ctx).GetUserByID(ctx, session.UserID)
}
