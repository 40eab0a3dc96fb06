package usecase

import (
	"context"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
)

// AccountHolder is the result of a live lookup
type AccountHolder struct {
	UserID   string
	FullName string
	BankCode string
	BankName string
	Account  string
	Phone    string
	Network  entity.Carrier
}

// ResolverUseCase performs the lookups a payment form triggers while it is
// being filled in
type ResolverUseCase interface {
	// DetectNetwork maps an 11-digit phone number to its carrier
	DetectNetwork(phone string) (entity.Carrier, error)

	// ResolveAccount returns the holder of a bank account
	ResolveAccount(ctx context.Context, bankCode, accountNumber string) (*AccountHolder, error)

	// ResolvePhone returns the carrier of a phone number and its holder when registered
	ResolvePhone(ctx context.Context, phone string) (*AccountHolder, error)
}
