package redisstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
)

// releaseLockScript deletes the lock only if this process still owns it
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// SenderLock implements persistence.SenderLock with SET NX PX. Each
// acquisition stores a random owner token that release must present.
type SenderLock struct {
	client redis.UniversalClient
	keys   keys
	logger coreport.Logger

	mu     sync.Mutex
	owners map[string]string // user id -> owner token
}

var _ persistence.SenderLock = (*SenderLock)(nil)

// NewSenderLock creates a redis sender lock
func NewSenderLock(client redis.UniversalClient, prefix string, logger coreport.Logger) *SenderLock {
	return &SenderLock{
		client: client,
		keys:   newKeys(prefix),
		logger: logger,
		owners: make(map[string]string),
	}
}

// AcquireLock takes the lock unless another holder's lock is still live
func (l *SenderLock) AcquireLock(ctx context.Context, userID string, duration time.Duration) error {
	if duration < time.Millisecond {
		duration = time.Millisecond
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keys.senderLock(userID), token, duration).Result()
	if err != nil {
		l.logger.Error("Failed to acquire sender lock", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return fmt.Errorf("failed to acquire sender lock: %w", err)
	}
	if !ok {
		l.logger.Warn("Sender is already locked", map[string]any{"user_id": userID})
		return errs.ErrUserLocked
	}

	l.mu.Lock()
	l.owners[userID] = token
	l.mu.Unlock()

	l.logger.Debug("Lock acquired", map[string]any{
		"user_id":     userID,
		"duration_ms": duration.Milliseconds(),
	})
	return nil
}

// ReleaseLock frees a lock this process holds; a lock taken over after
// expiry by someone else is left alone
func (l *SenderLock) ReleaseLock(ctx context.Context, userID string) error {
	l.mu.Lock()
	token, ok := l.owners[userID]
	delete(l.owners, userID)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	released, err := releaseLockScript.Run(ctx, l.client, []string{l.keys.senderLock(userID)}, token).Int()
	if err != nil {
		l.logger.Warn("Failed to release sender lock, it will expire automatically", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil
	}
	if released == 0 {
		l.logger.Debug("No lock found to release - may have already expired", map[string]any{"user_id": userID})
	}
	return nil
}

// CleanupExpiredLocks forgets owner tokens of locks redis has already expired
func (l *SenderLock) CleanupExpiredLocks(ctx context.Context) (int64, error) {
	l.mu.Lock()
	users := make([]string, 0, len(l.owners))
	for userID := range l.owners {
		users = append(users, userID)
	}
	l.mu.Unlock()

	var removed int64
	for _, userID := range users {
		n, err := l.client.Exists(ctx, l.keys.senderLock(userID)).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to check sender lock: %w", err)
		}
		if n == 0 {
			l.mu.Lock()
			delete(l.owners, userID)
			l.mu.Unlock()
			removed++
		}
	}
	return removed, nil
}
