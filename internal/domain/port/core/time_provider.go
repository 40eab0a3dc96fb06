package core

import "time"

// TimeProvider is the clock the domain reads. Submission expiry, lock
// deadlines and record dates all come from it so tests can pin time.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}
