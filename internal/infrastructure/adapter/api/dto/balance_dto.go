package dto

import (
	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"
)

// AccountResponse is a bank account as shown to its owner
type AccountResponse struct {
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber"`
}

// DashboardResponse represents the API response for the wallet summary
type DashboardResponse struct {
	UserID       string                `json:"userId"`
	FullName     string                `json:"fullName"`
	FirstName    string                `json:"firstName"`
	Balance      string                `json:"balance"`
	Account      AccountResponse       `json:"account"`
	Network      string                `json:"network,omitempty"`
	Transactions []TransactionResponse `json:"transactions"`
}

// NewDashboardResponse maps the dashboard use case result
func NewDashboardResponse(d *usecase.Dashboard) DashboardResponse {
	return DashboardResponse{
		UserID:    d.UserID,
		FullName:  d.FullName,
		FirstName: d.FirstName,
		Balance:   entity.AmountToString(d.Balance),
		Account: AccountResponse{
			BankCode:      d.Account.BankCode,
			BankName:      d.BankName,
			AccountNumber: d.Account.AccountNumber,
		},
		Network:      string(d.Network),
		Transactions: NewTransactionResponses(d.Transactions, d.UserID),
	}
}
