package persistence

import (
	"context"
	"time"
)

// SenderLock serializes money movement per paying user across processes
type SenderLock interface {
	// AcquireLock attempts to lock the user for payment processing
	// The lock expires after the given duration
	//
	// Possible errors:
	// - ErrUserLocked: If user is already locked by another process
	AcquireLock(ctx context.Context, userID string, duration time.Duration) error

	// ReleaseLock releases a previously acquired lock
	ReleaseLock(ctx context.Context, userID string) error

	// CleanupExpiredLocks removes locks whose expiry has passed and returns how many were removed
	CleanupExpiredLocks(ctx context.Context) (int64, error)
}
