// Package memstore keeps users, banks, transactions, submissions, sender
// locks and revoked sessions in process memory. It backs the "memory" store
// backend and the workflow tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/saga"
)

// FaultHook lets tests fail a write: op is "update_balance" or
// "create_transaction", key the user or transaction id
type FaultHook func(op, key string) error

// Store is the in-memory directory and ledger
type Store struct {
	mu           sync.RWMutex
	users        map[string]*entity.User
	emailIndex   map[string]string
	phoneIndex   map[string]string
	accountIndex map[string]string
	banks        []entity.Bank
	transactions []*entity.Transaction
	txIndex      map[string]int

	rows         *saga.RowLocks
	fault        FaultHook
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewStore creates an empty store seeded with banks
func NewStore(banks []entity.Bank, timeProvider coreport.TimeProvider, logger coreport.Logger) *Store {
	s := &Store{
		users:        make(map[string]*entity.User),
		emailIndex:   make(map[string]string),
		phoneIndex:   make(map[string]string),
		accountIndex: make(map[string]string),
		txIndex:      make(map[string]int),
		rows:         saga.NewRowLocks(),
		timeProvider: timeProvider,
		logger:       logger,
	}
	s.banks = append(s.banks, banks...)
	return s
}

// SetFaultHook installs a hook consulted before every write
func (s *Store) SetFaultHook(hook FaultHook) {
	s.mu.Lock()
	s.fault = hook
	s.mu.Unlock()
}

func (s *Store) checkFault(op, key string) error {
	s.mu.RLock()
	hook := s.fault
	s.mu.RUnlock()
	if hook == nil {
		return nil
	}
	return hook(op, key)
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	c.Accounts = append([]entity.Account(nil), u.Accounts...)
	return &c
}

func cloneTransaction(t *entity.Transaction) *entity.Transaction {
	c := *t
	return &c
}

// directory implements persistence.DirectoryRepository
type directory struct {
	s *Store
}

// ledger implements persistence.LedgerRepository; a nil journal means writes
// are applied without a unit of work
type ledger struct {
	s       *Store
	journal *saga.Journal
}

var (
	_ persistence.DirectoryRepository = (*directory)(nil)
	_ persistence.LedgerRepository    = (*ledger)(nil)
)

func (d *directory) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	u, ok := d.s.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (d *directory) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	id, ok := d.s.emailIndex[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return cloneUser(d.s.users[id]), nil
}

func (d *directory) GetUserByPhone(ctx context.Context, phone string) (*entity.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	id, ok := d.s.phoneIndex[strings.TrimSpace(phone)]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return cloneUser(d.s.users[id]), nil
}

func (d *directory) GetUserByAccount(ctx context.Context, bankCode, accountNumber string) (*entity.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	id, ok := d.s.accountIndex[entity.AccountKey(bankCode, accountNumber)]
	if !ok {
		return nil, errs.ErrAccountNotFound
	}
	return cloneUser(d.s.users[id]), nil
}

func (d *directory) ListUsers(ctx context.Context) ([]*entity.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	users := make([]*entity.User, 0, len(d.s.users))
	for _, u := range d.s.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (d *directory) CreateUser(ctx context.Context, user *entity.User) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if _, ok := d.s.users[user.ID]; ok {
		return errs.ErrDuplicateUser
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, ok := d.s.emailIndex[email]; ok && email != "" {
		return errs.ErrDuplicateEmail
	}
	for _, acc := range user.Accounts {
		if _, ok := d.s.accountIndex[acc.Key()]; ok {
			return errs.ErrDuplicateAccount
		}
	}

	d.s.users[user.ID] = cloneUser(user)
	if email != "" {
		d.s.emailIndex[email] = user.ID
	}
	if user.Phone != "" {
		if _, taken := d.s.phoneIndex[user.Phone]; !taken {
			d.s.phoneIndex[user.Phone] = user.ID
		}
	}
	for _, acc := range user.Accounts {
		d.s.accountIndex[acc.Key()] = user.ID
	}

	d.s.logger.Debug("User stored in memory", map[string]any{"user_id": user.ID})
	return nil
}

func (d *directory) ListBanks(ctx context.Context) ([]entity.Bank, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	return append([]entity.Bank(nil), d.s.banks...), nil
}

func (d *directory) GetBank(ctx context.Context, code string) (*entity.Bank, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	bank, ok := entity.FindBank(d.s.banks, code)
	if !ok {
		return nil, errs.ErrBankNotFound
	}
	return &bank, nil
}

func (d *directory) EnsureBanks(ctx context.Context, banks []entity.Bank) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, b := range banks {
		if _, ok := entity.FindBank(d.s.banks, b.Code); !ok {
			d.s.banks = append(d.s.banks, b)
		}
	}
	return nil
}

func (l *ledger) GetUserForUpdate(ctx context.Context, id string) (*entity.User, error) {
	if l.journal != nil {
		if err := l.journal.LockRow(ctx, id); err != nil {
			return nil, err
		}
	}
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	u, ok := l.s.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (l *ledger) UpdateBalance(ctx context.Context, userID string, newBalance int64) error {
	if newBalance < 0 {
		return errs.ErrNegativeBalance
	}
	if err := l.s.checkFault("update_balance", userID); err != nil {
		return err
	}

	l.s.mu.Lock()
	u, ok := l.s.users[userID]
	if !ok {
		l.s.mu.Unlock()
		return errs.ErrUserNotFound
	}
	previous := u.Balance()
	err := u.SetBalance(newBalance, l.s.timeProvider)
	l.s.mu.Unlock()
	if err != nil {
		return err
	}

	if l.journal != nil {
		l.journal.Record("balance:"+userID, func(ctx context.Context) error {
			l.s.mu.Lock()
			defer l.s.mu.Unlock()
			if u, ok := l.s.users[userID]; ok {
				return u.SetBalance(previous, l.s.timeProvider)
			}
			return nil
		})
	}
	return nil
}

func (l *ledger) CreateTransaction(ctx context.Context, txn *entity.Transaction) error {
	if err := l.s.checkFault("create_transaction", txn.ID); err != nil {
		return err
	}

	l.s.mu.Lock()
	if _, ok := l.s.txIndex[txn.ID]; ok {
		l.s.mu.Unlock()
		return errs.NewDuplicateTransactionError(txn.ID, txn.PayerID())
	}
	l.s.txIndex[txn.ID] = len(l.s.transactions)
	l.s.transactions = append(l.s.transactions, cloneTransaction(txn))
	l.s.mu.Unlock()

	if l.journal != nil {
		l.journal.Record("transaction:"+txn.ID, func(ctx context.Context) error {
			l.s.removeTransaction(txn.ID)
			return nil
		})
	}
	return nil
}

func (s *Store) removeTransaction(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.txIndex[id]
	if !ok {
		return
	}
	s.transactions = append(s.transactions[:idx], s.transactions[idx+1:]...)
	delete(s.txIndex, id)
	for i := idx; i < len(s.transactions); i++ {
		s.txIndex[s.transactions[i].ID] = i
	}
}

func (l *ledger) TransactionExists(ctx context.Context, id string) (bool, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	_, ok := l.s.txIndex[id]
	return ok, nil
}

func (l *ledger) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	idx, ok := l.s.txIndex[id]
	if !ok {
		return nil, errs.ErrTransactionNotFound
	}
	return cloneTransaction(l.s.transactions[idx]), nil
}

func (l *ledger) ListTransactions(ctx context.Context) ([]*entity.Transaction, error) {
	return l.list(func(*entity.Transaction) bool { return true }), nil
}

func (l *ledger) ListTransactionsByUser(ctx context.Context, userID string) ([]*entity.Transaction, error) {
	return l.list(func(t *entity.Transaction) bool { return t.Involves(userID) }), nil
}

// list returns matching transactions newest first
func (l *ledger) list(match func(*entity.Transaction) bool) []*entity.Transaction {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	out := make([]*entity.Transaction, 0)
	for i := len(l.s.transactions) - 1; i >= 0; i-- {
		if t := l.s.transactions[i]; match(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	return out
}
