package dto

import (
	"time"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
)

// SignupRequest represents the signup form. Field rules are enforced by the
// account use case so every failing field is reported at once.
type SignupRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	PIN             string `json:"pin"`
}

// LoginRequest represents the login form
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID       string            `json:"id"`
	FullName string            `json:"fullName"`
	Email    string            `json:"email"`
	Phone    string            `json:"phone"`
	Network  string            `json:"network,omitempty"`
	Balance  string            `json:"balance"`
	Accounts []AccountResponse `json:"accounts"`
}

// LoginResponse carries the bearer token of a new session
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// NewUserResponse maps a user without its credentials
func NewUserResponse(u *entity.User) UserResponse {
	accounts := make([]AccountResponse, 0, len(u.Accounts))
	for _, a := range u.Accounts {
		accounts = append(accounts, AccountResponse{BankCode: a.BankCode, AccountNumber: a.AccountNumber})
	}
	return UserResponse{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Phone:    u.Phone,
		Network:  string(u.Network),
		Balance:  entity.AmountToString(u.Balance()),
		Accounts: accounts,
	}
}
