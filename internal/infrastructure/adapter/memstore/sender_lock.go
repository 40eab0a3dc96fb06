package memstore

import (
	"context"
	"sync"
	"time"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
)

// SenderLock is a process-local persistence.SenderLock with expiring entries
type SenderLock struct {
	mu           sync.Mutex
	locks        map[string]time.Time
	timeProvider coreport.TimeProvider
}

// NewSenderLock creates an empty lock table
func NewSenderLock(timeProvider coreport.TimeProvider) *SenderLock {
	return &SenderLock{locks: make(map[string]time.Time), timeProvider: timeProvider}
}

var _ persistence.SenderLock = (*SenderLock)(nil)

// AcquireLock locks the user unless a live lock exists
func (l *SenderLock) AcquireLock(ctx context.Context, userID string, duration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := l.timeProvider.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if expiresAt, ok := l.locks[userID]; ok && now.Before(expiresAt) {
		return errs.ErrUserLocked
	}
	l.locks[userID] = now.Add(duration)
	return nil
}

// ReleaseLock removes the user's lock
func (l *SenderLock) ReleaseLock(ctx context.Context, userID string) error {
	l.mu.Lock()
	delete(l.locks, userID)
	l.mu.Unlock()
	return nil
}

// CleanupExpiredLocks drops locks past their expiry
func (l *SenderLock) CleanupExpiredLocks(ctx context.Context) (int64, error) {
	now := l.timeProvider.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed int64
	for id, expiresAt := range l.locks {
		if !now.Before(expiresAt) {
			delete(l.locks, id)
			removed++
		}
	}
	return removed, nil
}
