package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"
)

// Resolver implements usecase.ResolverUseCase
type Resolver struct {
	directory persistence.DirectoryRepository
	logger    coreport.Logger
}

// NewResolver creates a resolver reading from the directory
func NewResolver(directory persistence.DirectoryRepository, logger coreport.Logger) *Resolver {
	return &Resolver{directory: directory, logger: logger}
}

var _ usecase.ResolverUseCase = (*Resolver)(nil)

// DetectNetwork maps an 11-digit phone number to its carrier
func (r *Resolver) DetectNetwork(phone string) (entity.Carrier, error) {
	phone = strings.TrimSpace(phone)
	if !entity.IsValidPhone(phone) {
		return entity.CarrierUnknown, errs.ErrInvalidPhone
	}
	carrier := entity.DetectCarrier(phone)
	if carrier == entity.CarrierUnknown {
		return entity.CarrierUnknown, errs.ErrUnknownNetwork
	}
	return carrier, nil
}

// ResolveAccount returns the holder of a bank account.
// Bad input yields a ValidationError; an unknown bank ErrBankNotFound;
// an unassigned number ErrAccountNotFound.
func (r *Resolver) ResolveAccount(ctx context.Context, bankCode, accountNumber string) (*usecase.AccountHolder, error) {
	bankCode = strings.TrimSpace(bankCode)
	accountNumber = strings.TrimSpace(accountNumber)

	verr := errs.NewValidationError()
	if bankCode == "" {
		verr.Add("bankCode", "Choose a bank")
	}
	switch {
	case accountNumber == "":
		verr.Add("accountNumber", "Account number is required")
	case !entity.IsValidAccountNumber(accountNumber):
		verr.Add("accountNumber", "Account number must be 10 digits")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	bank, err := r.directory.GetBank(ctx, bankCode)
	if err != nil {
		return nil, err
	}

	holder, err := r.directory.GetUserByAccount(ctx, bankCode, accountNumber)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return nil, errs.ErrAccountNotFound
		}
		if !errs.IsNotFoundError(err) {
			r.logger.Error("Account lookup failed", map[string]any{
				"bank_code": bankCode,
				"error":     err.Error(),
			})
		}
		return nil, err
	}

	return &usecase.AccountHolder{
		UserID:   holder.ID,
		FullName: holder.FullName,
		BankCode: bank.Code,
		BankName: bank.Name,
		Account:  accountNumber,
		Phone:    holder.Phone,
		Network:  holder.Network,
	}, nil
}

// ResolvePhone returns the carrier of a phone number and, when someone
// registered it, the holder's name
func (r *Resolver) ResolvePhone(ctx context.Context, phone string) (*usecase.AccountHolder, error) {
	phone = strings.TrimSpace(phone)
	carrier, err := r.DetectNetwork(phone)
	if err != nil && !errors.Is(err, errs.ErrUnknownNetwork) {
		return nil, err
	}

	result := &usecase.AccountHolder{Phone: phone, Network: carrier}

	holder, err := r.directory.GetUserByPhone(ctx, phone)
	switch {
	case err == nil:
		result.UserID = holder.ID
		result.FullName = holder.FullName
		if acc, ok := holder.PrimaryAccount(); ok {
			result.BankCode = acc.BankCode
			result.Account = acc.AccountNumber
		}
		if result.Network == entity.CarrierUnknown {
			result.Network = holder.Network
		}
	case errs.IsNotFoundError(err):
	default:
		return nil, err
	}

	if result.Network == entity.CarrierUnknown && result.UserID == "" {
		return nil, errs.ErrUnknownNetwork
	}
	return result, nil
}
