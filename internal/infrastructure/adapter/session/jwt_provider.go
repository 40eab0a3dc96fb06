// Package session issues HMAC-signed JWT bearer tokens and resolves them back
// into sessions. Logging out records the token id in a revocation store until
// the token would have expired anyway.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

const minSecretLength = 32

// Config holds token settings
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// JWTProvider implements auth.SessionProvider
type JWTProvider struct {
	secret       []byte
	issuer       string
	ttl          time.Duration
	revocations  auth.RevocationStore
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

var _ auth.SessionProvider = (*JWTProvider)(nil)

// NewJWTProvider creates a session provider
func NewJWTProvider(config Config, revocations auth.RevocationStore, timeProvider coreport.TimeProvider, logger coreport.Logger) (*JWTProvider, error) {
	if len(config.Secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	if config.TokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	if revocations == nil {
		return nil, fmt.Errorf("revocation store is required")
	}

	return &JWTProvider{
		secret:       []byte(config.Secret),
		issuer:       config.Issuer,
		ttl:          config.TokenTTL,
		revocations:  revocations,
		timeProvider: timeProvider,
		logger:       logger,
	}, nil
}

// SetSession signs a token for the user
func (p *JWTProvider) SetSession(ctx context.Context, userID string) (string, *auth.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return "", nil, errs.ErrInvalidUserID
	}

	now := p.timeProvider.Now()
	session := &auth.Session{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(p.ttl).Truncate(time.Second),
	}

	claims := jwt.RegisteredClaims{
		Subject:   session.UserID,
		ID:        session.TokenID,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	p.logger.Debug("Session started", map[string]any{
		"user_id":    userID,
		"token_id":   session.TokenID,
		"expires_at": session.ExpiresAt,
	})
	return token, session, nil
}

// CurrentSession verifies the token signature, expiry, issuer and revocation
func (p *JWTProvider) CurrentSession(ctx context.Context, token string) (*auth.Session, error) {
	claims, err := p.parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := p.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, errs.ErrMissingSession
	}

	return &auth.Session{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ClearSession revokes the token. Clearing an invalid or expired token is a no-op.
func (p *JWTProvider) ClearSession(ctx context.Context, token string) error {
	claims, err := p.parse(token)
	if err != nil {
		if errors.Is(err, errs.ErrMissingSession) {
			return nil
		}
		return err
	}

	if err := p.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	p.logger.Debug("Session cleared", map[string]any{
		"user_id":  claims.Subject,
		"token_id": claims.ID,
	})
	return nil
}

func (p *JWTProvider) parse(token string) (*jwt.RegisteredClaims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, errs.ErrMissingSession
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.timeProvider.Now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		options = append(options, jwt.WithIssuer(p.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		p.logger.Debug("Rejected session token", map[string]any{"error": fmt.Sprint(err)})
		return nil, errs.ErrMissingSession
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, errs.ErrMissingSession
	}
	return claims, nil
}
