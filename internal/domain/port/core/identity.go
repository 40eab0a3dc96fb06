package core

// IdentityGenerator produces identifiers and random choices for the domain
type IdentityGenerator interface {
	// NewUserID returns a random unique user id
	NewUserID() string
	// NewTransactionID returns a unique, time-ordered id used for payment
	// submissions and the transaction records they produce
	NewTransactionID() string
	// NewAccountNumber returns a random 10-digit account number without a leading zero
	NewAccountNumber() string
	// Intn returns a random int in [0, n)
	Intn(n int) int
}
