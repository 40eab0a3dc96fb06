package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_CompensateRunsInReverse(t *testing.T) {
	j := NewJournal(NewRowLocks())
	var order []string

	j.Record("debit", func(ctx context.Context) error {
		order = append(order, "debit")
		return nil
	})
	j.Record("credit", func(ctx context.Context) error {
		order = append(order, "credit")
		return errors.New("remote down")
	})
	j.Record("record", func(ctx context.Context) error {
		order = append(order, "record")
		return nil
	})

	err := j.Compensate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undo credit: remote down")
	assert.Equal(t, []string{"record", "credit", "debit"}, order)

	assert.NoError(t, j.Compensate(context.Background()), "second compensate is a no-op")
	assert.Error(t, j.Commit())
}

func TestJournal_CommitDropsSteps(t *testing.T) {
	j := NewJournal(NewRowLocks())
	called := false
	j.Record("debit", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.Equal(t, 1, j.Len())

	require.NoError(t, j.Commit())
	assert.False(t, called)
	assert.Equal(t, 0, j.Len())
}

func TestJournal_ContextBinding(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	j := NewJournal(NewRowLocks())
	got, ok := FromContext(WithJournal(context.Background(), j))
	require.True(t, ok)
	assert.Same(t, j, got)
}

func TestRowLocks_SerializeSameKey(t *testing.T) {
	locks := NewRowLocks()
	first := NewJournal(locks)
	require.NoError(t, first.LockRow(context.Background(), "user-1"))
	require.NoError(t, first.LockRow(context.Background(), "user-1"), "relock is a no-op")

	second := NewJournal(locks)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, second.LockRow(ctx, "user-1"), context.DeadlineExceeded)

	require.NoError(t, second.LockRow(context.Background(), "user-2"))

	var wg sync.WaitGroup
	wg.Add(1)
	acquired := make(chan struct{})
	go func() {
		defer wg.Done()
		third := NewJournal(locks)
		if third.LockRow(context.Background(), "user-1") == nil {
			close(acquired)
			_ = third.Commit()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, first.Commit())
	wg.Wait()
	<-acquired
	require.NoError(t, second.Commit())

	locks.mu.Lock()
	assert.Empty(t, locks.rows)
	locks.mu.Unlock()
}
