package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
)

// IdempotencyHandler looks up the ledger record a submission already produced.
// Submission ids double as transaction ids.
type IdempotencyHandler struct {
	uow persistence.UnitOfWork
}

// NewIdempotencyHandler creates a new IdempotencyHandler
func NewIdempotencyHandler(uow persistence.UnitOfWork) *IdempotencyHandler {
	return &IdempotencyHandler{uow: uow}
}

// CheckIdempotency returns the existing record for the submission id and
// whether one was found
func (h *IdempotencyHandler) CheckIdempotency(ctx context.Context, submissionID string) (*entity.Transaction, bool, error) {
	ledger := h.uow.GetLedgerRepository(ctx)

	exists, err := ledger.TransactionExists(ctx, submissionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check if transaction exists: %w", err)
	}
	if !exists {
		return nil, false, nil
	}

	txn, err := ledger.GetTransaction(ctx, submissionID)
	if err != nil {
		if errors.Is(err, errs.ErrTransactionNotFound) {
			return nil, false, nil
		}
		return nil, true, fmt.Errorf("failed to retrieve existing transaction: %w", err)
	}
	return txn, true, nil
}
