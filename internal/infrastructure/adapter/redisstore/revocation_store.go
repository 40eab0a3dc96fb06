package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// RevocationStore keeps revoked token ids as keys that expire with the token
type RevocationStore struct {
	client       redis.UniversalClient
	keys         keys
	timeProvider coreport.TimeProvider
}

var _ auth.RevocationStore = (*RevocationStore)(nil)

// NewRevocationStore creates a redis revocation list
func NewRevocationStore(client redis.UniversalClient, prefix string, timeProvider coreport.TimeProvider) *RevocationStore {
	return &RevocationStore{client: client, keys: newKeys(prefix), timeProvider: timeProvider}
}

// Revoke marks the token id revoked until the given time
func (r *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.timeProvider.Now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.keys.revoked(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id is on the list
func (r *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.keys.revoked(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return n > 0, nil
}
