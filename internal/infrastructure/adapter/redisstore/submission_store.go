package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
)

const (
	fieldState   = "state"
	fieldPayload = "payload"
)

// swapStateScript replaces the payload only while the state field still
// holds the expected value. The key keeps its TTL.
var swapStateScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], "state")
if not current then
  return -1
end
if current ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "state", ARGV[2], "payload", ARGV[3])
return 1
`)

// SubmissionStore keeps each submission in a hash holding its state and JSON payload
type SubmissionStore struct {
	client       redis.UniversalClient
	keys         keys
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

var _ persistence.SubmissionStore = (*SubmissionStore)(nil)

// NewSubmissionStore creates a redis-backed submission store
func NewSubmissionStore(client redis.UniversalClient, prefix string, timeProvider coreport.TimeProvider, logger coreport.Logger) *SubmissionStore {
	return &SubmissionStore{client: client, keys: newKeys(prefix), timeProvider: timeProvider, logger: logger}
}

// Save writes the submission and sets its TTL in one transaction
func (s *SubmissionStore) Save(ctx context.Context, submission *entity.PaymentSubmission, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("submission ttl must be positive")
	}
	payload, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	key := s.keys.submission(submission.ID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldState, string(submission.State), fieldPayload, payload)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// Get reads a live submission
func (s *SubmissionStore) Get(ctx context.Context, id string) (*entity.PaymentSubmission, error) {
	payload, err := s.client.HGet(ctx, s.keys.submission(id), fieldPayload).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	var sub entity.PaymentSubmission
	if err := json.Unmarshal(payload, &sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission: %w", err)
	}
	return &sub, nil
}

// CompareAndSwapState moves the submission between states. The new payload is
// prepared from a read and only lands if no other caller swapped first.
func (s *SubmissionStore) CompareAndSwapState(ctx context.Context, id string, from, to entity.SubmissionState) (*entity.PaymentSubmission, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.State != from {
		return nil, fmt.Errorf("%w: state is %s", errs.ErrSubmissionNotPending, sub.State)
	}

	sub.State = to
	sub.UpdatedAt = s.timeProvider.Now()
	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	result, err := swapStateScript.Run(ctx, s.client, []string{s.keys.submission(id)}, string(from), string(to), payload).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to swap submission state: %w", err)
	}

	switch result {
	case -1:
		return nil, errs.ErrSubmissionNotFound
	case 0:
		s.logger.Warn("Submission state changed concurrently", map[string]any{
			"submission_id": id,
			"expected":      string(from),
		})
		return nil, fmt.Errorf("%w: state changed concurrently", errs.ErrSubmissionNotPending)
	}
	return sub, nil
}

// Delete removes a submission
func (s *SubmissionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.keys.submission(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: redis expires submission keys on its own
func (s *SubmissionStore) PurgeExpired(ctx context.Context) (int, error) {
	return 0, nil
}
