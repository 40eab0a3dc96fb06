package saga

import (
	"context"
	"sync"
)

type rowLock struct {
	sem  chan struct{}
	refs int
}

// RowLocks is a set of per-key mutexes that honour context cancellation
type RowLocks struct {
	mu   sync.Mutex
	rows map[string]*rowLock
}

// NewRowLocks creates an empty lock set
func NewRowLocks() *RowLocks {
	return &RowLocks{rows: make(map[string]*rowLock)}
}

// Lock blocks until the key is free or ctx is done
func (l *RowLocks) Lock(ctx context.Context, key string) error {
	l.mu.Lock()
	row, ok := l.rows[key]
	if !ok {
		row = &rowLock{sem: make(chan struct{}, 1)}
		l.rows[key] = row
	}
	row.refs++
	l.mu.Unlock()

	select {
	case row.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.drop(key, row)
		return ctx.Err()
	}
}

// Unlock frees the key
func (l *RowLocks) Unlock(key string) {
	l.mu.Lock()
	row, ok := l.rows[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-row.sem
	l.drop(key, row)
}

func (l *RowLocks) drop(key string, row *rowLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row.refs--
	if row.refs == 0 {
		delete(l.rows, key)
	}
}
