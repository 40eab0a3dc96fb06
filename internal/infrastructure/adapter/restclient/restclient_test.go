package restclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/retry"
	timeProvider "github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/time"
)

// fakeRemote mimics the REST store: collections of raw JSON objects keyed by id
type fakeRemote struct {
	mu           sync.Mutex
	users        []map[string]any
	transactions []map[string]any
	banks        []map[string]any

	failPatchFor string
	getFailures  atomic.Int32 // GETs answered with 503 before succeeding
	userListHits atomic.Int32
}

func (f *fakeRemote) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		if f.fail(w) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []map[string]any{}
		for _, u := range f.users {
			if v := r.URL.Query().Get("email"); v != "" && u["email"] != v {
				continue
			}
			if v := r.URL.Query().Get("phone"); v != "" && u["phone"] != v {
				continue
			}
			out = append(out, u)
		}
		if len(r.URL.Query()) == 0 {
			f.userListHits.Add(1)
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.fail(w) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if u := find(f.users, r.PathValue("id")); u != nil {
			writeJSON(w, http.StatusOK, u)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]any{})
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		f.create(w, r, &f.users)
	})
	mux.HandleFunc("PATCH /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		if id == f.failPatchFor {
			writeJSON(w, http.StatusInternalServerError, map[string]any{})
			return
		}
		u := find(f.users, id)
		if u == nil {
			writeJSON(w, http.StatusNotFound, map[string]any{})
			return
		}
		var patch map[string]any
		_ = json.NewDecoder(r.Body).Decode(&patch)
		for k, v := range patch {
			u[k] = v
		}
		writeJSON(w, http.StatusOK, u)
	})
	mux.HandleFunc("GET /transactions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.transactions)
	})
	mux.HandleFunc("GET /transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if t := find(f.transactions, r.PathValue("id")); t != nil {
			writeJSON(w, http.StatusOK, t)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]any{})
	})
	mux.HandleFunc("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		f.create(w, r, &f.transactions)
	})
	mux.HandleFunc("DELETE /transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, t := range f.transactions {
			if t["id"] == r.PathValue("id") {
				f.transactions = append(f.transactions[:i], f.transactions[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]any{})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{})
	})
	mux.HandleFunc("GET /banks", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.banks)
	})
	mux.HandleFunc("POST /banks", func(w http.ResponseWriter, r *http.Request) {
		f.create(w, r, &f.banks)
	})
	return mux
}

func (f *fakeRemote) fail(w http.ResponseWriter) bool {
	if f.getFailures.Load() > 0 {
		f.getFailures.Add(-1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{})
		return true
	}
	return false
}

func (f *fakeRemote) create(w http.ResponseWriter, r *http.Request, into *[]map[string]any) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	*into = append(*into, doc)
	writeJSON(w, http.StatusCreated, doc)
}

func (f *fakeRemote) balanceOf(id string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return find(f.users, id)["walletBalance"]
}

func find(docs []map[string]any, id string) map[string]any {
	for _, d := range docs {
		if d["id"] == id {
			return d
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setupRemote(t *testing.T) (*fakeRemote, *Store) {
	t.Helper()
	remote := &fakeRemote{
		users: []map[string]any{
			{
				"id": "alice", "fullName": "Alice Adeyemi", "email": "Alice@Example.com",
				"phone": "08031234567", "network": "MTN", "password": "secret1", "pin": "1234",
				"walletBalance": 50000,
				"accounts":      []any{map[string]any{"bankCode": "044", "accountNumber": "1111111111"}},
			},
			{
				"id": "bob", "fullName": "Bob Bello", "email": "bob@example.com",
				"phone": "08051234567", "password": "secret2", "pin": "4321",
				"walletBalance": 1000.5,
				"accounts":      []any{map[string]any{"bankCode": "058", "accountNumber": "2222222222"}},
			},
		},
		banks: []map[string]any{{"code": "044", "name": "Access Bank"}},
	}

	server := httptest.NewServer(remote.handler())
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL: server.URL + "/",
		Timeout: 2 * time.Second,
		Retry: retry.Config{
			MaxAttempts:   3,
			RetryInterval: time.Millisecond,
			MaxInterval:   5 * time.Millisecond,
		},
	}, logger.NewNoopLogger())
	require.NoError(t, err)

	return remote, NewStore(client, timeProvider.NewRealTimeProvider(), logger.NewNoopLogger())
}

func TestNewClient_RejectsEmptyBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "  "}, logger.NewNoopLogger())
	assert.Error(t, err)
}

func TestDirectory_Lookups(t *testing.T) {
	remote, store := setupRemote(t)
	directory := store.Directory()
	ctx := context.Background()

	t.Run("by id decodes the naira balance", func(t *testing.T) {
		bob, err := directory.GetUserByID(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(100050), bob.Balance())
		assert.Equal(t, entity.CarrierGLO, bob.Network, "network falls back to the phone prefix")
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := directory.GetUserByID(ctx, "nobody")
		assert.ErrorIs(t, err, errs.ErrUserNotFound)
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		user, err := directory.GetUserByEmail(ctx, "alice@EXAMPLE.com")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.ID)
	})

	t.Run("phone", func(t *testing.T) {
		user, err := directory.GetUserByPhone(ctx, "08051234567")
		require.NoError(t, err)
		assert.Equal(t, "bob", user.ID)

		_, err = directory.GetUserByPhone(ctx, "08099999999")
		assert.ErrorIs(t, err, errs.ErrUserNotFound)
	})

	t.Run("account index is built on miss and reused on hit", func(t *testing.T) {
		before := remote.userListHits.Load()

		user, err := directory.GetUserByAccount(ctx, "058", "2222222222")
		require.NoError(t, err)
		assert.Equal(t, "bob", user.ID)
		afterMiss := remote.userListHits.Load()

		user, err = directory.GetUserByAccount(ctx, "044", "1111111111")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.ID)
		assert.Equal(t, afterMiss, remote.userListHits.Load(), "hit must not list users again")
		assert.GreaterOrEqual(t, afterMiss, before)

		_, err = directory.GetUserByAccount(ctx, "044", "2222222222")
		assert.ErrorIs(t, err, errs.ErrAccountNotFound)
	})

	t.Run("transient read failures are retried", func(t *testing.T) {
		remote.getFailures.Store(2)
		user, err := directory.GetUserByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(5000000), user.Balance())
	})

	t.Run("persistent failures surface as store unavailable", func(t *testing.T) {
		remote.getFailures.Store(10)
		defer remote.getFailures.Store(0)
		_, err := directory.GetUserByID(ctx, "alice")
		assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
	})
}

func TestDirectory_CreateUserAndBanks(t *testing.T) {
	_, store := setupRemote(t)
	directory := store.Directory()
	ctx := context.Background()
	tp := timeProvider.NewRealTimeProvider()

	carol, err := entity.NewUser(entity.UserParams{
		ID:       "carol",
		FullName: "Carol Chukwu",
		Email:    "Carol@Example.com",
		Phone:    "08021234567",
		Network:  entity.CarrierAirtel,
		Password: "hash",
		PIN:      "hash",
		Balance:  5000000,
		Accounts: []entity.Account{{BankCode: "057", AccountNumber: "3333333333"}},
	}, tp)
	require.NoError(t, err)
	require.NoError(t, directory.CreateUser(ctx, carol))

	found, err := directory.GetUserByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(5000000), found.Balance())

	holder, err := directory.GetUserByAccount(ctx, "057", "3333333333")
	require.NoError(t, err)
	assert.Equal(t, "carol", holder.ID)

	dupEmail, err := entity.NewUser(entity.UserParams{ID: "dave", Email: "ALICE@example.com"}, tp)
	require.NoError(t, err)
	assert.ErrorIs(t, directory.CreateUser(ctx, dupEmail), errs.ErrDuplicateEmail)

	dupAccount, err := entity.NewUser(entity.UserParams{
		ID:       "erin",
		Email:    "erin@example.com",
		Accounts: []entity.Account{{BankCode: "044", AccountNumber: "1111111111"}},
	}, tp)
	require.NoError(t, err)
	assert.ErrorIs(t, directory.CreateUser(ctx, dupAccount), errs.ErrDuplicateAccount)

	require.NoError(t, directory.EnsureBanks(ctx, entity.DefaultBanks()))
	banks, err := directory.ListBanks(ctx)
	require.NoError(t, err)
	assert.Len(t, banks, len(entity.DefaultBanks()))
	assert.Equal(t, "Access Bank", banks[0].Name)

	bank, err := directory.GetBank(ctx, "058")
	require.NoError(t, err)
	assert.Equal(t, "GTBank", bank.Name)

	_, err = directory.GetBank(ctx, "999")
	assert.ErrorIs(t, err, errs.ErrBankNotFound)
}

func TestUnitOfWork_CommitWritesThrough(t *testing.T) {
	remote, store := setupRemote(t)
	uow := NewUnitOfWork(store)
	ctx := context.Background()

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Begin(txCtx)
	assert.Error(t, err, "nested units are refused")

	ledger := uow.GetLedgerRepository(txCtx)
	alice, err := ledger.GetUserForUpdate(txCtx, "alice")
	require.NoError(t, err)
	bob, err := ledger.GetUserForUpdate(txCtx, "bob")
	require.NoError(t, err)

	require.NoError(t, ledger.UpdateBalance(txCtx, alice.ID, alice.Balance()-2000000))
	require.NoError(t, ledger.UpdateBalance(txCtx, bob.ID, bob.Balance()+2000000))

	txn, err := entity.NewTransaction("0190a1b2-0000-7000-8000-000000000001", entity.TypeTransfer,
		"alice", "bob", 2000000, "Transfer payment to Bob Bello", timeProvider.NewRealTimeProvider())
	require.NoError(t, err)
	require.NoError(t, ledger.CreateTransaction(txCtx, txn))
	require.NoError(t, uow.Commit(txCtx))

	assert.Equal(t, float64(30000), remote.balanceOf("alice"))
	assert.Equal(t, 21000.5, remote.balanceOf("bob"))

	plain := uow.GetLedgerRepository(ctx)
	exists, err := plain.TransactionExists(ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	err = plain.CreateTransaction(ctx, txn)
	assert.ErrorIs(t, err, errs.ErrDuplicateTransaction)

	history, err := plain.ListTransactionsByUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(2000000), history[0].Amount)
	assert.Equal(t, entity.StatusCompleted, history[0].Status)

	none, err := plain.ListTransactionsByUser(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUnitOfWork_RollbackCompensates(t *testing.T) {
	remote, store := setupRemote(t)
	uow := NewUnitOfWork(store)
	ctx := context.Background()

	remote.mu.Lock()
	remote.failPatchFor = "bob"
	remote.mu.Unlock()

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	ledger := uow.GetLedgerRepository(txCtx)

	alice, err := ledger.GetUserForUpdate(txCtx, "alice")
	require.NoError(t, err)
	require.NoError(t, ledger.UpdateBalance(txCtx, "alice", alice.Balance()-2000000))
	assert.Equal(t, float64(30000), remote.balanceOf("alice"))

	err = ledger.UpdateBalance(txCtx, "bob", 1)
	require.ErrorIs(t, err, errs.ErrStoreUnavailable)

	require.NoError(t, uow.Rollback(txCtx))
	assert.Equal(t, float64(50000), remote.balanceOf("alice"), "debit is undone")

	txns, err := uow.GetLedgerRepository(ctx).ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestUnitOfWork_RollbackRemovesRecord(t *testing.T) {
	remote, store := setupRemote(t)
	uow := NewUnitOfWork(store)
	ctx := context.Background()

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	txn, err := entity.NewTransaction("0190a1b2-0000-7000-8000-000000000002", entity.TypeAirtime,
		"alice", "", 10000, "Airtime purchase for 08031234567 (MTN)", timeProvider.NewRealTimeProvider())
	require.NoError(t, err)
	require.NoError(t, uow.GetLedgerRepository(txCtx).CreateTransaction(txCtx, txn))
	require.NoError(t, uow.Rollback(txCtx))

	remote.mu.Lock()
	assert.Empty(t, remote.transactions)
	remote.mu.Unlock()
}

func TestAmount_JSON(t *testing.T) {
	data, err := json.Marshal(balancePatch{WalletBalance: amountFromMinor(3000050)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"walletBalance":30000.5,`), string(data))

	var doc userDocument
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","walletBalance":"29999.999999999996"}`), &doc))
	minor, err := doc.WalletBalance.minor()
	require.NoError(t, err)
	assert.Equal(t, int64(3000000), minor)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&StatusError{StatusCode: http.StatusServiceUnavailable}))
	assert.True(t, isTransient(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, isTransient(&StatusError{StatusCode: http.StatusNotFound}))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(nil))
}
