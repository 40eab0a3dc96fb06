package dto

import (
	"time"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
)

// TransferRequest represents the transfer page form
type TransferRequest struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount"`
}

// AirtimeRequest represents the airtime page form
type AirtimeRequest struct {
	Phone   string `json:"phone"`
	Network string `json:"network"`
	Amount  string `json:"amount"`
}

// BillRequest represents the bills page form
type BillRequest struct {
	BillType      string `json:"billType"`
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount"`
}

// ConfirmRequest carries the PIN entered for a submission
type ConfirmRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// Form maps the request onto the transfer payment form
func (r TransferRequest) Form() entity.PaymentForm {
	return entity.PaymentForm{BankCode: r.BankCode, AccountNumber: r.AccountNumber, Amount: r.Amount}
}

// Form maps the request onto the airtime payment form
func (r AirtimeRequest) Form() entity.PaymentForm {
	return entity.PaymentForm{Phone: r.Phone, Network: r.Network, Amount: r.Amount}
}

// Form maps the request onto the bill payment form
func (r BillRequest) Form() entity.PaymentForm {
	return entity.PaymentForm{BillType: r.BillType, BankCode: r.BankCode, AccountNumber: r.AccountNumber, Amount: r.Amount}
}

// ReceiptResponse is the outcome of a settled payment
type ReceiptResponse struct {
	TransactionID string    `json:"transactionId"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	Balance       string    `json:"balance"`
	ReceiverName  string    `json:"receiverName,omitempty"`
	Message       string    `json:"message"`
	SettledAt     time.Time `json:"settledAt"`
}

// SubmissionResponse represents a payment submission. Form is echoed back
// so a cancelled payment can be edited and resubmitted.
type SubmissionResponse struct {
	ID           string             `json:"id"`
	Kind         string             `json:"kind"`
	State        string             `json:"state"`
	Form         entity.PaymentForm `json:"form"`
	Amount       string             `json:"amount,omitempty"`
	BillType     string             `json:"billType,omitempty"`
	ReceiverName string             `json:"receiverName,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	Network      string             `json:"network,omitempty"`
	Receipt      *ReceiptResponse   `json:"receipt,omitempty"`
	Failure      string             `json:"failure,omitempty"`
	ExpiresAt    time.Time          `json:"expiresAt"`
}

// NewReceiptResponse maps a receipt; a nil receipt maps to nil
func NewReceiptResponse(r *entity.Receipt) *ReceiptResponse {
	if r == nil {
		return nil
	}
	return &ReceiptResponse{
		TransactionID: r.TransactionID,
		Type:          string(r.Type),
		Amount:        entity.AmountToString(r.Amount),
		Balance:       entity.AmountToString(r.SenderBalance),
		ReceiverName:  r.ReceiverName,
		Message:       r.Message,
		SettledAt:     r.SettledAt,
	}
}

// NewSubmissionResponse maps a submission with amounts in major units
func NewSubmissionResponse(s *entity.PaymentSubmission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:           s.ID,
		Kind:         string(s.Kind),
		State:        string(s.State),
		Form:         s.Form,
		BillType:     string(s.BillType),
		ReceiverName: s.ReceiverName,
		Phone:        s.Phone,
		Network:      string(s.Network),
		Receipt:      NewReceiptResponse(s.Receipt),
		Failure:      s.Failure,
		ExpiresAt:    s.ExpiresAt,
	}
	if s.Amount > 0 {
		resp.Amount = entity.AmountToString(s.Amount)
	}
	return resp
}
