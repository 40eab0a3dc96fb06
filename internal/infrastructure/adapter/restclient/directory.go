package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/saga"
)

// Store is the remote-store backend shared by every repository it hands out
type Store struct {
	client       *Client
	rows         *saga.RowLocks
	timeProvider coreport.TimeProvider
	logger       coreport.Logger

	indexMu      sync.RWMutex
	accountIndex map[string]string // (bank, account) key -> user id
}

// NewStore creates the remote-store backend
func NewStore(client *Client, timeProvider coreport.TimeProvider, logger coreport.Logger) *Store {
	return &Store{
		client:       client,
		rows:         saga.NewRowLocks(),
		timeProvider: timeProvider,
		logger:       logger,
		accountIndex: make(map[string]string),
	}
}

// Directory returns the directory repository of the store
func (s *Store) Directory() persistence.DirectoryRepository {
	return &directory{s: s}
}

// Ping checks the store answers
func (s *Store) Ping(ctx context.Context) error {
	var banks []entity.Bank
	return s.client.do(ctx, http.MethodGet, "/banks", nil, &banks)
}

type directory struct {
	s *Store
}

var _ persistence.DirectoryRepository = (*directory)(nil)

func (d *directory) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	return d.s.fetchUser(ctx, id)
}

func (s *Store) fetchUser(ctx context.Context, id string) (*entity.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errs.ErrUserNotFound
	}

	var doc userDocument
	if err := s.client.get(ctx, "/users/"+url.PathEscape(id), &doc); err != nil {
		if isNotFound(err) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return documentToUser(&doc, s.timeProvider)
}

// GetUserByEmail asks the store for an exact match first, then falls back to
// a case-insensitive scan for records stored with mixed case
func (d *directory) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errs.ErrUserNotFound
	}

	user, err := d.s.queryFirst(ctx, "email", strings.ToLower(email))
	if err == nil || !errors.Is(err, errs.ErrUserNotFound) {
		return user, err
	}

	users, err := d.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if strings.EqualFold(strings.TrimSpace(u.Email), email) {
			return u, nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (d *directory) GetUserByPhone(ctx context.Context, phone string) (*entity.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, errs.ErrUserNotFound
	}
	return d.s.queryFirst(ctx, "phone", phone)
}

// queryFirst returns the first user whose field equals value
func (s *Store) queryFirst(ctx context.Context, field, value string) (*entity.User, error) {
	var docs []userDocument
	query := url.Values{field: []string{value}}
	if err := s.client.get(ctx, "/users?"+query.Encode(), &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errs.ErrUserNotFound
	}
	return documentToUser(&docs[0], s.timeProvider)
}

// GetUserByAccount resolves through the account index. A miss, or a hit
// whose user no longer holds the account, rebuilds the index once.
func (d *directory) GetUserByAccount(ctx context.Context, bankCode, accountNumber string) (*entity.User, error) {
	key := entity.AccountKey(bankCode, accountNumber)

	if id, ok := d.s.lookupAccount(key); ok {
		user, err := d.s.fetchUser(ctx, id)
		if err == nil && user.OwnsAccount(bankCode, accountNumber) {
			return user, nil
		}
		if err != nil && !errors.Is(err, errs.ErrUserNotFound) {
			return nil, err
		}
	}

	users, err := d.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.OwnsAccount(bankCode, accountNumber) {
			return u, nil
		}
	}
	return nil, errs.ErrAccountNotFound
}

func (s *Store) lookupAccount(key string) (string, bool) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	id, ok := s.accountIndex[key]
	return id, ok
}

// rebuildIndex replaces the account index from a full user listing. The
// earliest signup wins when two records claim the same account.
func (s *Store) rebuildIndex(users []*entity.User) {
	index := make(map[string]string, len(users))
	for _, u := range users {
		for _, acc := range u.Accounts {
			if _, taken := index[acc.Key()]; !taken {
				index[acc.Key()] = u.ID
			}
		}
	}

	s.indexMu.Lock()
	s.accountIndex = index
	s.indexMu.Unlock()

	s.logger.Debug("Account index rebuilt", map[string]any{
		"users":    len(users),
		"accounts": len(index),
	})
}

func (s *Store) indexUser(u *entity.User) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	for _, acc := range u.Accounts {
		s.accountIndex[acc.Key()] = u.ID
	}
}

// ListUsers returns every user in signup order and refreshes the account index
func (d *directory) ListUsers(ctx context.Context) ([]*entity.User, error) {
	var docs []userDocument
	if err := d.s.client.get(ctx, "/users", &docs); err != nil {
		return nil, err
	}

	users := make([]*entity.User, 0, len(docs))
	for i := range docs {
		u, err := documentToUser(&docs[i], d.s.timeProvider)
		if err != nil {
			d.s.logger.Warn("Skipping malformed user record", map[string]any{
				"user_id": docs[i].ID,
				"error":   err.Error(),
			})
			continue
		}
		users = append(users, u)
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	d.s.rebuildIndex(users)
	return users, nil
}

// CreateUser checks the email and accounts are free, then posts the record.
// The check and the write are not atomic on this backend.
func (d *directory) CreateUser(ctx context.Context, user *entity.User) error {
	if _, err := d.s.fetchUser(ctx, user.ID); err == nil {
		return errs.ErrDuplicateUser
	} else if !errors.Is(err, errs.ErrUserNotFound) {
		return err
	}

	users, err := d.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if user.Email != "" && strings.EqualFold(strings.TrimSpace(existing.Email), strings.TrimSpace(user.Email)) {
			return errs.ErrDuplicateEmail
		}
		for _, acc := range user.Accounts {
			if existing.OwnsAccount(acc.BankCode, acc.AccountNumber) {
				return errs.ErrDuplicateAccount
			}
		}
	}

	doc := userToDocument(user)
	doc.Email = strings.ToLower(strings.TrimSpace(doc.Email))
	if err := d.s.client.send(ctx, http.MethodPost, "/users", doc, nil); err != nil {
		d.s.logger.Error("Failed to create user in remote store", map[string]any{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return err
	}

	d.s.indexUser(user)
	d.s.logger.Info("User created successfully", map[string]any{
		"user_id": user.ID,
		"balance": user.GetBalance(),
	})
	return nil
}

func (d *directory) ListBanks(ctx context.Context) ([]entity.Bank, error) {
	var banks []entity.Bank
	if err := d.s.client.get(ctx, "/banks", &banks); err != nil {
		return nil, err
	}
	sort.SliceStable(banks, func(i, j int) bool { return banks[i].Name < banks[j].Name })
	return banks, nil
}

func (d *directory) GetBank(ctx context.Context, code string) (*entity.Bank, error) {
	banks, err := d.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	bank, ok := entity.FindBank(banks, code)
	if !ok {
		return nil, errs.ErrBankNotFound
	}
	return &bank, nil
}

func (d *directory) EnsureBanks(ctx context.Context, banks []entity.Bank) error {
	existing, err := d.ListBanks(ctx)
	if err != nil {
		return err
	}

	inserted := 0
	for _, b := range banks {
		if _, ok := entity.FindBank(existing, b.Code); ok {
			continue
		}
		if err := d.s.client.send(ctx, http.MethodPost, "/banks", b, nil); err != nil {
			return err
		}
		inserted++
	}

	d.s.logger.Info("Banks ensured", map[string]any{
		"requested": len(banks),
		"inserted":  inserted,
	})
	return nil
}
