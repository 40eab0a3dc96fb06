package auth

import (
	"context"
	"time"
)

// Session identifies the logged-in user of a request
type Session struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// Valid reports whether the session carries a user
func (s *Session) Valid() bool {
	return s != nil && s.UserID != ""
}

// SessionProvider issues, resolves and clears sessions
type SessionProvider interface {
	// SetSession starts a session for the user and returns its bearer token
	SetSession(ctx context.Context, userID string) (string, *Session, error)

	// CurrentSession resolves a bearer token
	//
	// Possible errors:
	// - ErrMissingSession: If the token is empty, invalid, expired or cleared
	CurrentSession(ctx context.Context, token string) (*Session, error)

	// ClearSession ends the session of the token
	ClearSession(ctx context.Context, token string) error
}

// RevocationStore remembers cleared sessions until their tokens expire
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
