package entity

import (
	"fmt"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
)

// AccountNumberLength is the number of digits in a bank account number
const AccountNumberLength = 10

// Account is a bank account attached to a user at signup
type Account struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
}

// Validate checks the bank code and account number shape
func (a Account) Validate() error {
	if a.BankCode == "" {
		return fmt.Errorf("%w: bank code is required", errs.ErrValidation)
	}
	if !IsValidAccountNumber(a.AccountNumber) {
		return fmt.Errorf("%w: account number must be %d digits", errs.ErrValidation, AccountNumberLength)
	}
	return nil
}

// Key returns the lookup key for the (bank, account number) pair
func (a Account) Key() string {
	return AccountKey(a.BankCode, a.AccountNumber)
}

// AccountKey builds the index key for a (bank, account number) pair
func AccountKey(bankCode, accountNumber string) string {
	return bankCode + ":" + accountNumber
}

// IsValidAccountNumber reports whether s is exactly 10 ASCII digits
func IsValidAccountNumber(s string) bool {
	return len(s) == AccountNumberLength && isDigits(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
