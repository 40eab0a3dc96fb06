package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
)

type storedSubmission struct {
	payload   []byte
	state     entity.SubmissionState
	expiresAt time.Time
}

// SubmissionStore keeps payment submissions as JSON so callers never share
// a pointer with the store
type SubmissionStore struct {
	mu           sync.Mutex
	items        map[string]storedSubmission
	timeProvider coreport.TimeProvider
}

// NewSubmissionStore creates an empty submission store
func NewSubmissionStore(timeProvider coreport.TimeProvider) *SubmissionStore {
	return &SubmissionStore{items: make(map[string]storedSubmission), timeProvider: timeProvider}
}

var _ persistence.SubmissionStore = (*SubmissionStore)(nil)

// Save stores a copy of the submission until ttl elapses
func (s *SubmissionStore) Save(ctx context.Context, submission *entity.PaymentSubmission, ttl time.Duration) error {
	payload, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[submission.ID] = storedSubmission{
		payload:   payload,
		state:     submission.State,
		expiresAt: s.timeProvider.Now().Add(ttl),
	}
	return nil
}

// Get returns a copy of a live submission
func (s *SubmissionStore) Get(ctx context.Context, id string) (*entity.PaymentSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.live(id)
	if err != nil {
		return nil, err
	}
	return decodeSubmission(item.payload)
}

// CompareAndSwapState moves a live submission from one state to another
func (s *SubmissionStore) CompareAndSwapState(ctx context.Context, id string, from, to entity.SubmissionState) (*entity.PaymentSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.live(id)
	if err != nil {
		return nil, err
	}
	if item.state != from {
		return nil, fmt.Errorf("%w: state is %s", errs.ErrSubmissionNotPending, item.state)
	}

	sub, err := decodeSubmission(item.payload)
	if err != nil {
		return nil, err
	}
	sub.State = to
	sub.UpdatedAt = s.timeProvider.Now()

	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}
	s.items[id] = storedSubmission{payload: payload, state: to, expiresAt: item.expiresAt}
	return sub, nil
}

// Delete removes a submission
func (s *SubmissionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// PurgeExpired drops submissions past their TTL
func (s *SubmissionStore) PurgeExpired(ctx context.Context) (int, error) {
	now := s.timeProvider.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, id)
			removed++
		}
	}
	return removed, nil
}

func (s *SubmissionStore) live(id string) (storedSubmission, error) {
	item, ok := s.items[id]
	if !ok || !s.timeProvider.Now().Before(item.expiresAt) {
		return storedSubmission{}, errs.ErrSubmissionNotFound
	}
	return item, nil
}

func decodeSubmission(payload []byte) (*entity.PaymentSubmission, error) {
	var sub entity.PaymentSubmission
	if err := json.Unmarshal(payload, &sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission: %w", err)
	}
	return &sub, nil
}
