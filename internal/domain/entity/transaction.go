package entity

import (
	"fmt"
	"time"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	tport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// TransactionType is the kind of money movement recorded in the ledger
type TransactionType string

// Transaction types
const (
	TypeTransfer    TransactionType = "transfer"
	TypeAirtime     TransactionType = "airtime"
	TypeElectricity TransactionType = "electricity"
	TypeWater       TransactionType = "water"
	TypeTV          TransactionType = "tv"
)

// IsBill reports whether the type is a bill payment
func (t TransactionType) IsBill() bool {
	return t == TypeElectricity || t == TypeWater || t == TypeTV
}

// IsValid reports whether the type is known
func (t TransactionType) IsValid() bool {
	return t == TypeTransfer || t == TypeAirtime || t.IsBill()
}

// HasReceiver reports whether the type credits a receiving user
func (t TransactionType) HasReceiver() bool {
	return t == TypeTransfer || t.IsBill()
}

// ParseBillType accepts electricity, water or tv
func ParseBillType(s string) (TransactionType, bool) {
	t := TransactionType(s)
	return t, t.IsBill()
}

// TransactionStatus defines possible status values for a transaction
type TransactionStatus string

// TransactionStatus constants. Ledger records are always completed; failed
// only appears on payment events.
const (
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Transaction is an append-only ledger record
type Transaction struct {
	ID          string          // time-ordered, equal to the payment submission id
	SenderID    string          // transfer and bill
	ReceiverID  string          // transfer and bill
	UserID      string          // airtime
	Amount      int64           // minor units, positive
	Type        TransactionType
	Description string
	Status      TransactionStatus
	Date        time.Time
}

// NewTransaction creates a completed ledger record. Transfers and bills need
// a sender and receiver; airtime needs only the paying user.
func NewTransaction(
	id string,
	txType TransactionType,
	payerID string,
	receiverID string,
	amount int64,
	description string,
	timeProvider tport.TimeProvider,
) (*Transaction, error) {
	if id == "" {
		return nil, errs.ErrInvalidTransactionID
	}
	if !txType.IsValid() {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidTransactionType, txType)
	}
	if payerID == "" {
		return nil, errs.ErrInvalidUserID
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", errs.ErrInvalidAmount)
	}

	txn := &Transaction{
		ID:          id,
		Amount:      amount,
		Type:        txType,
		Description: description,
		Status:      StatusCompleted,
		Date:        timeProvider.Now(),
	}

	if txType.HasReceiver() {
		if receiverID == "" {
			return nil, fmt.Errorf("%w: receiver is required for %s", errs.ErrInvalidUserID, txType)
		}
		txn.SenderID = payerID
		txn.ReceiverID = receiverID
	} else {
		txn.UserID = payerID
	}

	return txn, nil
}

// PayerID returns the user whose balance was debited
func (t *Transaction) PayerID() string {
	if t.UserID != "" {
		return t.UserID
	}
	return t.SenderID
}

// Involves reports whether the user is a party to the transaction
func (t *Transaction) Involves(userID string) bool {
	return userID != "" && (t.SenderID == userID || t.ReceiverID == userID || t.UserID == userID)
}

// IsCreditFor returns true if this transaction increased the user's balance
func (t *Transaction) IsCreditFor(userID string) bool {
	return t.ReceiverID == userID && t.SenderID != userID
}

// GetAmount returns the amount with two decimal places
func (t *Transaction) GetAmount() string {
	return AmountToString(t.Amount)
}
