package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
)

// SubmissionStore keeps payment submissions between submit and confirm
type SubmissionStore interface {
	// Save stores the submission, replacing any previous version; it is
	// discarded once ttl elapses
	Save(ctx context.Context, submission *entity.PaymentSubmission, ttl time.Duration) error

	// Get retrieves a submission
	//
	// Possible errors:
	// - ErrSubmissionNotFound: If it doesn't exist or has expired
	Get(ctx context.Context, id string) (*entity.PaymentSubmission, error)

	// CompareAndSwapState atomically moves the submission from one state to
	// another and returns the updated submission
	//
	// Possible errors:
	// - ErrSubmissionNotFound: If it doesn't exist or has expired
	// - ErrSubmissionNotPending: If the current state is not from
	CompareAndSwapState(ctx context.Context, id string, from, to entity.SubmissionState) (*entity.PaymentSubmission, error)

	// Delete removes a submission
	Delete(ctx context.Context, id string) error

	// PurgeExpired removes submissions whose TTL has passed and returns how many were removed
	PurgeExpired(ctx context.Context) (int, error)
}
