package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/saga"
)

// ledger writes through to the store. With a journal, every write records
// how to undo it and rows are locked for the life of the unit.
type ledger struct {
	s       *Store
	journal *saga.Journal
}

var _ persistence.LedgerRepository = (*ledger)(nil)

func (l *ledger) GetUserForUpdate(ctx context.Context, id string) (*entity.User, error) {
	if l.journal != nil {
		if err := l.journal.LockRow(ctx, id); err != nil {
			return nil, err
		}
	}
	return l.s.fetchUser(ctx, id)
}

func (l *ledger) UpdateBalance(ctx context.Context, userID string, newBalance int64) error {
	if newBalance < 0 {
		return errs.ErrNegativeBalance
	}

	// the prior value is read inside the row lock so the undo restores it exactly
	var previous int64
	if l.journal != nil {
		current, err := l.s.fetchUser(ctx, userID)
		if err != nil {
			return err
		}
		previous = current.Balance()
	}

	if err := l.s.patchBalance(ctx, userID, newBalance); err != nil {
		return err
	}

	if l.journal != nil {
		l.journal.Record("balance:"+userID, func(ctx context.Context) error {
			return l.s.patchBalance(ctx, userID, previous)
		})
	}
	return nil
}

func (s *Store) patchBalance(ctx context.Context, userID string, balance int64) error {
	s.logger.Debug("Updating balance", map[string]any{
		"user_id":     userID,
		"new_balance": entity.AmountToString(balance),
	})

	patch := balancePatch{WalletBalance: amountFromMinor(balance), UpdatedAt: s.timeProvider.Now()}
	if err := s.client.send(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID), patch, nil); err != nil {
		if isNotFound(err) {
			return errs.ErrUserNotFound
		}
		return err
	}
	return nil
}

func (l *ledger) CreateTransaction(ctx context.Context, txn *entity.Transaction) error {
	exists, err := l.TransactionExists(ctx, txn.ID)
	if err != nil {
		return err
	}
	if exists {
		l.s.logger.Warn("Duplicate transaction detected", map[string]any{
			"transaction_id": txn.ID,
			"payer_id":       txn.PayerID(),
		})
		return errs.NewDuplicateTransactionError(txn.ID, txn.PayerID())
	}

	if err := l.s.client.send(ctx, http.MethodPost, "/transactions", transactionToDocument(txn), nil); err != nil {
		l.s.logger.Error("Failed to record transaction", map[string]any{
			"transaction_id": txn.ID,
			"error":          err.Error(),
		})
		return err
	}

	if l.journal != nil {
		l.journal.Record("transaction:"+txn.ID, func(ctx context.Context) error {
			err := l.s.client.send(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(txn.ID), nil, nil)
			if isNotFound(err) {
				return nil
			}
			return err
		})
	}
	return nil
}

func (l *ledger) TransactionExists(ctx context.Context, id string) (bool, error) {
	_, err := l.GetTransaction(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrTransactionNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (l *ledger) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	var doc transactionDocument
	if err := l.s.client.get(ctx, "/transactions/"+url.PathEscape(id), &doc); err != nil {
		if isNotFound(err) {
			return nil, errs.ErrTransactionNotFound
		}
		return nil, err
	}
	return documentToTransaction(&doc), nil
}

func (l *ledger) ListTransactions(ctx context.Context) ([]*entity.Transaction, error) {
	return l.list(ctx, func(*entity.Transaction) bool { return true })
}

// ListTransactionsByUser filters the whole collection; the store has no OR query
func (l *ledger) ListTransactionsByUser(ctx context.Context, userID string) ([]*entity.Transaction, error) {
	return l.list(ctx, func(t *entity.Transaction) bool { return t.Involves(userID) })
}

func (l *ledger) list(ctx context.Context, match func(*entity.Transaction) bool) ([]*entity.Transaction, error) {
	var docs []transactionDocument
	if err := l.s.client.get(ctx, "/transactions", &docs); err != nil {
		return nil, err
	}

	txns := make([]*entity.Transaction, 0, len(docs))
	for i := range docs {
		if t := documentToTransaction(&docs[i]); match(t) {
			txns = append(txns, t)
		}
	}
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].ID > txns[j].ID
	})
	return txns, nil
}
