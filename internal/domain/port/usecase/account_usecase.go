package usecase

import (
	"context"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
)

// SignupRequest carries the signup form
type SignupRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	PIN             string `json:"pin"`
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token   string
	Session *auth.Session
	User    *entity.User
}

// Dashboard summarises the wallet of the logged-in user
type Dashboard struct {
	UserID       string
	FullName     string
	FirstName    string
	Balance      int64
	Account      entity.Account
	BankName     string
	Network      entity.Carrier
	Transactions []*entity.Transaction
}

// AccountUseCase defines signup, login and read-only wallet views
type AccountUseCase interface {
	// Signup validates the form and creates a user with a random bank account
	// and the starting balance
	Signup(ctx context.Context, req SignupRequest) (*entity.User, error)

	// Login checks credentials and starts a session
	Login(ctx context.Context, email, password string) (*LoginResult, error)

	// Logout clears the session of the token
	Logout(ctx context.Context, token string) error

	// Dashboard returns the wallet summary for the session's user
	Dashboard(ctx context.Context, session *auth.Session) (*Dashboard, error)

	// Transactions returns the session user's transactions, newest first
	Transactions(ctx context.Context, session *auth.Session) ([]*entity.Transaction, error)

	// Banks returns the bank reference data
	Banks(ctx context.Context) ([]entity.Bank, error)
}
