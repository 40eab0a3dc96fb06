package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// RevocationStore remembers cleared session token ids until they expire
type RevocationStore struct {
	mu           sync.Mutex
	revoked      map[string]time.Time
	timeProvider coreport.TimeProvider
}

// NewRevocationStore creates an empty revocation list
func NewRevocationStore(timeProvider coreport.TimeProvider) *RevocationStore {
	return &RevocationStore{revoked: make(map[string]time.Time), timeProvider: timeProvider}
}

var _ auth.RevocationStore = (*RevocationStore)(nil)

func (r *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	r.mu.Lock()
	r.revoked[tokenID] = until
	r.mu.Unlock()
	return nil
}

func (r *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !r.timeProvider.Now().Before(until) {
		delete(r.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
