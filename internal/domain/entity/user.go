package entity

import (
	"strings"
	"time"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// User represents a wallet holder
type User struct {
	ID        string
	FullName  string
	Email     string
	Phone     string
	Network   Carrier
	Password  string // bcrypt hash; legacy remote records may hold plaintext
	PIN       string // bcrypt hash; legacy remote records may hold plaintext
	balance   int64  // minor units (kobo), never negative
	Accounts  []Account
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserParams carries the fields needed to build a User
type UserParams struct {
	ID       string
	FullName string
	Email    string
	Phone    string
	Network  Carrier
	Password string
	PIN      string
	Balance  int64
	Accounts []Account
}

// NewUser creates a new user from params
func NewUser(params UserParams, timeProvider coreport.TimeProvider) (*User, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, errs.ErrInvalidUserID
	}
	if params.Balance < 0 {
		return nil, errs.ErrNegativeBalance
	}
	for _, acc := range params.Accounts {
		if err := acc.Validate(); err != nil {
			return nil, err
		}
	}

	now := timeProvider.Now()
	accounts := make([]Account, len(params.Accounts))
	copy(accounts, params.Accounts)

	return &User{
		ID:        params.ID,
		FullName:  params.FullName,
		Email:     params.Email,
		Phone:     params.Phone,
		Network:   params.Network,
		Password:  params.Password,
		PIN:       params.PIN,
		balance:   params.Balance,
		Accounts:  accounts,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Balance returns the current balance in minor units
func (u *User) Balance() int64 {
	return u.balance
}

// GetBalance returns the balance as a string with 2 decimal places
func (u *User) GetBalance() string {
	return AmountToString(u.balance)
}

// SetBalance updates the balance directly (for repositories)
func (u *User) SetBalance(balanceInMinor int64, timeProvider coreport.TimeProvider) error {
	if balanceInMinor < 0 {
		return errs.ErrNegativeBalance
	}
	u.balance = balanceInMinor
	u.UpdatedAt = timeProvider.Now()
	return nil
}

// CanDeduct checks if the user has enough balance for a deduction
func (u *User) CanDeduct(amountInMinor int64) bool {
	return amountInMinor >= 0 && u.balance >= amountInMinor
}

// Debit subtracts the amount from the balance
func (u *User) Debit(amountInMinor int64, timeProvider coreport.TimeProvider) error {
	if amountInMinor < 0 {
		return errs.ErrNegativeAmount
	}
	if !u.CanDeduct(amountInMinor) {
		return errs.NewInsufficientBalanceError(u.ID, AmountToString(amountInMinor), u.GetBalance())
	}

	u.balance -= amountInMinor
	u.UpdatedAt = timeProvider.Now()
	return nil
}

// Credit adds the amount to the balance
func (u *User) Credit(amountInMinor int64, timeProvider coreport.TimeProvider) error {
	if amountInMinor < 0 {
		return errs.ErrNegativeAmount
	}
	balance, err := AddAmounts(u.balance, amountInMinor)
	if err != nil {
		return err
	}

	u.balance = balance
	u.UpdatedAt = timeProvider.Now()
	return nil
}

// FirstName returns the first word of the full name
func (u *User) FirstName() string {
	fields := strings.Fields(u.FullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// PrimaryAccount returns the account assigned at signup
func (u *User) PrimaryAccount() (Account, bool) {
	if len(u.Accounts) == 0 {
		return Account{}, false
	}
	return u.Accounts[0], true
}

// OwnsAccount reports whether the user holds the given bank account
func (u *User) OwnsAccount(bankCode, accountNumber string) bool {
	for _, acc := range u.Accounts {
		if acc.BankCode == bankCode && acc.AccountNumber == accountNumber {
			return true
		}
	}
	return false
}
