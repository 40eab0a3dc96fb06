// Package saga provides the compensation journal and per-row locks behind the
// unit of work of stores that have no native transactions.
package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type contextKey string

const journalKey contextKey = "saga"

// Step is a committed write and the action that undoes it
type Step struct {
	Name string
	Undo func(ctx context.Context) error
}

// Journal records the writes of one unit of work
type Journal struct {
	mu     sync.Mutex
	steps  []Step
	held   []string
	locks  *RowLocks
	closed bool
}

// NewJournal creates a journal whose row locks come from locks
func NewJournal(locks *RowLocks) *Journal {
	return &Journal{locks: locks}
}

// WithJournal binds the journal to ctx
func WithJournal(ctx context.Context, j *Journal) context.Context {
	return context.WithValue(ctx, journalKey, j)
}

// FromContext returns the journal bound to ctx
func FromContext(ctx context.Context) (*Journal, bool) {
	j, ok := ctx.Value(journalKey).(*Journal)
	return j, ok && j != nil
}

// Record appends a write and its undo action
func (j *Journal) Record(name string, undo func(ctx context.Context) error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps = append(j.steps, Step{Name: name, Undo: undo})
}

// Len returns the number of recorded steps
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.steps)
}

// LockRow takes the row lock for key until the journal is closed.
// Locking a row twice in the same journal is a no-op.
func (j *Journal) LockRow(ctx context.Context, key string) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return errors.New("unit of work already finished")
	}
	for _, k := range j.held {
		if k == key {
			j.mu.Unlock()
			return nil
		}
	}
	j.mu.Unlock()

	if err := j.locks.Lock(ctx, key); err != nil {
		return err
	}

	j.mu.Lock()
	j.held = append(j.held, key)
	j.mu.Unlock()
	return nil
}

// Commit forgets the steps and releases the row locks
func (j *Journal) Commit() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New("unit of work already finished")
	}
	j.steps = nil
	j.release()
	return nil
}

// Compensate runs the undo actions in reverse order, then releases the row
// locks. Every undo runs even if an earlier one fails; the failures are joined.
func (j *Journal) Compensate(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}

	var failures []error
	for i := len(j.steps) - 1; i >= 0; i-- {
		step := j.steps[i]
		if err := step.Undo(ctx); err != nil {
			failures = append(failures, fmt.Errorf("undo %s: %w", step.Name, err))
		}
	}
	j.steps = nil
	j.release()
	return errors.Join(failures...)
}

func (j *Journal) release() {
	for i := len(j.held) - 1; i >= 0; i-- {
		j.locks.Unlock(j.held[i])
	}
	j.held = nil
	j.closed = true
}
