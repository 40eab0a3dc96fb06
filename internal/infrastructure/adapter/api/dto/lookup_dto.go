package dto

import "github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"

// NetworkResponse is the carrier detected for a phone number
type NetworkResponse struct {
	Phone   string `json:"phone"`
	Network string `json:"network"`
}

// AccountHolderResponse is the result of an account or phone lookup.
// The holder's user id is not exposed.
type AccountHolderResponse struct {
	FullName      string `json:"fullName,omitempty"`
	BankCode      string `json:"bankCode,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Network       string `json:"network,omitempty"`
}

func NewAccountHolderResponse(h *usecase.AccountHolder) AccountHolderResponse {
	return AccountHolderResponse{
		FullName:      h.FullName,
		BankCode:      h.BankCode,
		BankName:      h.BankName,
		AccountNumber: h.Account,
		Phone:         h.Phone,
		Network:       string(h.Network),
	}
}
