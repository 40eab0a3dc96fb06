package dto

import (
	"time"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
)

// Direction of a ledger record relative to the viewing user
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// TransactionResponse represents a ledger record in API responses
type TransactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Direction   string    `json:"direction"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	SenderID    string    `json:"senderId,omitempty"`
	ReceiverID  string    `json:"receiverId,omitempty"`
	Date        time.Time `json:"date"`
}

// NewTransactionResponses maps ledger records as seen by viewerID
func NewTransactionResponses(txns []*entity.Transaction, viewerID string) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		direction := DirectionDebit
		if t.ReceiverID == viewerID && t.SenderID != viewerID {
			direction = DirectionCredit
		}
		out = append(out, TransactionResponse{
			ID:          t.ID,
			Type:        string(t.Type),
			Direction:   direction,
			Amount:      entity.AmountToString(t.Amount),
			Description: t.Description,
			Status:      string(t.Status),
			SenderID:    t.SenderID,
			ReceiverID:  t.ReceiverID,
			Date:        t.Date,
		})
	}
	return out
}
