package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/logger"
	timeProvider "github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/time"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *Store, id, email, phone, bank, acct string, balance int64) *entity.User {
	t.Helper()
	u, err := entity.NewUser(entity.UserParams{
		ID:       id,
		FullName: "User " + id,
		Email:    email,
		Phone:    phone,
		Balance:  balance,
		Accounts: []entity.Account{{BankCode: bank, AccountNumber: acct}},
	}, s.timeProvider)
	require.NoError(t, err)
	require.NoError(t, NewUnitOfWork(s).GetDirectoryRepository(context.Background()).CreateUser(context.Background(), u))
	return u
}

func newTestStore() *Store {
	return NewStore(entity.DefaultBanks(), timeProvider.NewManualTimeProvider(start), logger.NewNoopLogger())
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	dir := NewUnitOfWork(s).GetDirectoryRepository(ctx)
	seedUser(t, s, "alice", "Alice@Example.com", "08031234567", "044", "1234567890", 100)

	t.Run("Lookups", func(t *testing.T) {
		u, err := dir.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.ID)

		u, err = dir.GetUserByPhone(ctx, "08031234567")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.ID)

		u, err = dir.GetUserByAccount(ctx, "044", "1234567890")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.ID)

		_, err = dir.GetUserByAccount(ctx, "058", "1234567890")
		assert.ErrorIs(t, err, errs.ErrAccountNotFound)

		_, err = dir.GetUserByID(ctx, "nobody")
		assert.ErrorIs(t, err, errs.ErrUserNotFound)
	})

	t.Run("Returned users are copies", func(t *testing.T) {
		u, err := dir.GetUserByID(ctx, "alice")
		require.NoError(t, err)
		u.Accounts[0].AccountNumber = "0000000000"
		require.NoError(t, u.SetBalance(999, s.timeProvider))

		again, err := dir.GetUserByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "1234567890", again.Accounts[0].AccountNumber)
		assert.Equal(t, int64(100), again.Balance())
	})

	t.Run("Duplicates", func(t *testing.T) {
		dup, _ := entity.NewUser(entity.UserParams{ID: "x", Email: "ALICE@example.com"}, s.timeProvider)
		assert.ErrorIs(t, dir.CreateUser(ctx, dup), errs.ErrDuplicateEmail)

		dup, _ = entity.NewUser(entity.UserParams{
			ID:       "y",
			Email:    "y@example.com",
			Accounts: []entity.Account{{BankCode: "044", AccountNumber: "1234567890"}},
		}, s.timeProvider)
		assert.ErrorIs(t, dir.CreateUser(ctx, dup), errs.ErrDuplicateAccount)

		dup, _ = entity.NewUser(entity.UserParams{ID: "alice", Email: "other@example.com"}, s.timeProvider)
		assert.ErrorIs(t, dir.CreateUser(ctx, dup), errs.ErrDuplicateUser)
	})

	t.Run("Banks", func(t *testing.T) {
		banks, err := dir.ListBanks(ctx)
		require.NoError(t, err)
		assert.Len(t, banks, 6)

		require.NoError(t, dir.EnsureBanks(ctx, []entity.Bank{{Code: "044", Name: "dup"}, {Code: "999", Name: "Test Bank"}}))
		bank, err := dir.GetBank(ctx, "999")
		require.NoError(t, err)
		assert.Equal(t, "Test Bank", bank.Name)

		bank, err = dir.GetBank(ctx, "044")
		require.NoError(t, err)
		assert.Equal(t, "Access Bank", bank.Name)

		_, err = dir.GetBank(ctx, "000")
		assert.ErrorIs(t, err, errs.ErrBankNotFound)
	})
}

func TestUnitOfWork_RollbackRestoresEverything(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	uow := NewUnitOfWork(s)
	seedUser(t, s, "alice", "a@example.com", "08031234567", "044", "1234567890", 10000)
	seedUser(t, s, "bob", "b@example.com", "08051234567", "058", "0987654321", 500)

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	ledger := uow.GetLedgerRepository(txCtx)

	_, err = ledger.GetUserForUpdate(txCtx, "alice")
	require.NoError(t, err)
	require.NoError(t, ledger.UpdateBalance(txCtx, "alice", 8000))
	require.NoError(t, ledger.UpdateBalance(txCtx, "bob", 2500))

	txn, err := entity.NewTransaction("tx-1", entity.TypeTransfer, "alice", "bob", 2000, "Transfer payment to bob", s.timeProvider)
	require.NoError(t, err)
	require.NoError(t, ledger.CreateTransaction(txCtx, txn))

	require.NoError(t, uow.Rollback(txCtx))

	dir := uow.GetDirectoryRepository(ctx)
	alice, _ := dir.GetUserByID(ctx, "alice")
	bob, _ := dir.GetUserByID(ctx, "bob")
	assert.Equal(t, int64(10000), alice.Balance())
	assert.Equal(t, int64(500), bob.Balance())

	exists, err := uow.GetLedgerRepository(ctx).TransactionExists(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, exists)

	// row lock released by rollback
	next, err := uow.Begin(ctx)
	require.NoError(t, err)
	lockCtx, cancel := context.WithTimeout(next, 50*time.Millisecond)
	defer cancel()
	_, err = uow.GetLedgerRepository(lockCtx).GetUserForUpdate(lockCtx, "alice")
	require.NoError(t, err)
	require.NoError(t, uow.Commit(next))
}

func TestUnitOfWork_CommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	uow := NewUnitOfWork(s)
	seedUser(t, s, "alice", "a@example.com", "08031234567", "044", "1234567890", 10000)

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	ledger := uow.GetLedgerRepository(txCtx)
	require.NoError(t, ledger.UpdateBalance(txCtx, "alice", 9000))
	airtime, _ := entity.NewTransaction("tx-1", entity.TypeAirtime, "alice", "", 1000, "Airtime", s.timeProvider)
	require.NoError(t, ledger.CreateTransaction(txCtx, airtime))
	require.NoError(t, uow.Commit(txCtx))

	assert.NoError(t, uow.Rollback(txCtx), "rollback after commit is a no-op")

	alice, _ := uow.GetDirectoryRepository(ctx).GetUserByID(ctx, "alice")
	assert.Equal(t, int64(9000), alice.Balance())

	err = uow.GetLedgerRepository(ctx).CreateTransaction(ctx, airtime)
	assert.True(t, errs.IsDuplicateTransactionError(err))
}

func TestLedger_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	ledger := NewUnitOfWork(s).GetLedgerRepository(ctx)

	for _, tc := range []struct{ id, typ, payer, receiver string }{
		{"t1", "transfer", "alice", "bob"},
		{"t2", "airtime", "bob", ""},
		{"t3", "water", "carol", "alice"},
	} {
		txn, err := entity.NewTransaction(tc.id, entity.TransactionType(tc.typ), tc.payer, tc.receiver, 100, "", s.timeProvider)
		require.NoError(t, err)
		require.NoError(t, ledger.CreateTransaction(ctx, txn))
	}

	all, err := ledger.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t3", all[0].ID)

	forAlice, err := ledger.ListTransactionsByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, forAlice, 2)
	assert.Equal(t, "t3", forAlice[0].ID)
	assert.Equal(t, "t1", forAlice[1].ID)

	forBob, _ := ledger.ListTransactionsByUser(ctx, "bob")
	assert.Len(t, forBob, 2)

	_, err = ledger.GetTransaction(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
}

func TestLedger_FaultHook(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedUser(t, s, "alice", "a@example.com", "08031234567", "044", "1234567890", 100)
	boom := errors.New("store rejected write")
	s.SetFaultHook(func(op, key string) error {
		if op == "update_balance" && key == "alice" {
			return boom
		}
		return nil
	})

	err := NewUnitOfWork(s).GetLedgerRepository(ctx).UpdateBalance(ctx, "alice", 50)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, NewUnitOfWork(s).GetLedgerRepository(ctx).UpdateBalance(ctx, "bob", -1), errs.ErrNegativeBalance)
}

func TestSubmissionStore(t *testing.T) {
	ctx := context.Background()
	clock := timeProvider.NewManualTimeProvider(start)
	store := NewSubmissionStore(clock)

	sub := entity.NewPaymentSubmission("sub-1", "alice", entity.KindTransfer, entity.PaymentForm{Amount: "10"}, clock)
	sub.State = entity.StateAwaitingPin
	require.NoError(t, store.Save(ctx, sub, time.Minute))

	t.Run("Copies are independent", func(t *testing.T) {
		got, err := store.Get(ctx, "sub-1")
		require.NoError(t, err)
		got.Form.Amount = "999"
		again, _ := store.Get(ctx, "sub-1")
		assert.Equal(t, "10", again.Form.Amount)
	})

	t.Run("Compare and swap wins once", func(t *testing.T) {
		claimed, err := store.CompareAndSwapState(ctx, "sub-1", entity.StateAwaitingPin, entity.StateAuthorizing)
		require.NoError(t, err)
		assert.Equal(t, entity.StateAuthorizing, claimed.State)

		_, err = store.CompareAndSwapState(ctx, "sub-1", entity.StateAwaitingPin, entity.StateAuthorizing)
		assert.ErrorIs(t, err, errs.ErrSubmissionNotPending)
	})

	t.Run("Expiry", func(t *testing.T) {
		clock.Advance(2 * time.Minute)
		_, err := store.Get(ctx, "sub-1")
		assert.ErrorIs(t, err, errs.ErrSubmissionNotFound)

		removed, err := store.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sub, time.Minute))
		require.NoError(t, store.Delete(ctx, sub.ID))
		_, err := store.Get(ctx, sub.ID)
		assert.ErrorIs(t, err, errs.ErrSubmissionNotFound)
	})
}

func TestSenderLock(t *testing.T) {
	ctx := context.Background()
	clock := timeProvider.NewManualTimeProvider(start)
	locks := NewSenderLock(clock)

	require.NoError(t, locks.AcquireLock(ctx, "alice", time.Second))
	assert.ErrorIs(t, locks.AcquireLock(ctx, "alice", time.Second), errs.ErrUserLocked)
	require.NoError(t, locks.AcquireLock(ctx, "bob", time.Minute))

	require.NoError(t, locks.ReleaseLock(ctx, "alice"))
	require.NoError(t, locks.AcquireLock(ctx, "alice", time.Second))

	clock.Advance(2 * time.Second)
	require.NoError(t, locks.AcquireLock(ctx, "alice", time.Second), "expired lock can be taken over")

	clock.Advance(2 * time.Second)
	removed, err := locks.CleanupExpiredLocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestRevocationStore(t *testing.T) {
	ctx := context.Background()
	clock := timeProvider.NewManualTimeProvider(start)
	r := NewRevocationStore(clock)

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", start.Add(time.Hour)))
	revoked, _ = r.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)

	clock.Advance(2 * time.Hour)
	revoked, _ = r.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked)
}
