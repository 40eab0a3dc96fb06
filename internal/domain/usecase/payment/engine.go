// Package payment runs the transfer, airtime and bill workflow: a form is
// validated and parked until the payer confirms it with their PIN, then the
// debit, the credit and the ledger record are applied in one unit of work.
package payment

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/event"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/pin"
)

// Config holds the workflow timings
type Config struct {
	// PinTTL is how long a submission waits for its PIN
	PinTTL time.Duration
	// ReceiptTTL is how long a finished submission stays readable
	ReceiptTTL time.Duration
	// LockTimeout bounds how long a sender lock is held
	LockTimeout time.Duration
	// QueueSize is the per-sender queue capacity
	QueueSize int
}

// DefaultConfig returns the timings used when none are configured
func DefaultConfig() Config {
	return Config{
		PinTTL:      5 * time.Minute,
		ReceiptTTL:  24 * time.Hour,
		LockTimeout: 30 * time.Second,
		QueueSize:   100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PinTTL <= 0 {
		c.PinTTL = d.PinTTL
	}
	if c.ReceiptTTL <= 0 {
		c.ReceiptTTL = d.ReceiptTTL
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = d.LockTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	return c
}

// Engine implements usecase.PaymentUseCase
type Engine struct {
	uow          persistence.UnitOfWork
	submissions  persistence.SubmissionStore
	senderLock   persistence.SenderLock
	publisher    event.Publisher
	gate         *pin.Gate
	ids          coreport.IdentityGenerator
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	cfg          Config

	validator   *FormValidator
	idempotency *IdempotencyHandler
	queue       *SenderQueue
}

// NewEngine creates the payment workflow engine
func NewEngine(
	uow persistence.UnitOfWork,
	submissions persistence.SubmissionStore,
	senderLock persistence.SenderLock,
	publisher event.Publisher,
	gate *pin.Gate,
	ids coreport.IdentityGenerator,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	cfg Config,
) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		uow:          uow,
		submissions:  submissions,
		senderLock:   senderLock,
		publisher:    publisher,
		gate:         gate,
		ids:          ids,
		timeProvider: timeProvider,
		logger:       logger,
		cfg:          cfg,
		validator:    NewFormValidator(),
		idempotency:  NewIdempotencyHandler(uow),
		queue:        NewSenderQueue(logger, cfg.QueueSize),
	}
}

var _ usecase.PaymentUseCase = (*Engine)(nil)

// Submit validates the form and parks the submission awaiting the PIN.
// Nothing is stored when validation fails.
func (e *Engine) Submit(ctx context.Context, session *auth.Session, kind entity.PaymentKind, form entity.PaymentForm) (*entity.PaymentSubmission, error) {
	if !session.Valid() {
		return nil, errs.ErrMissingSession
	}

	directory := e.uow.GetDirectoryRepository(ctx)
	sender, err := directory.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	sub := entity.NewPaymentSubmission(e.ids.NewTransactionID(), sender.ID, kind, form, e.timeProvider)
	if err := e.validator.Validate(ctx, directory, sender, sub); err != nil {
		e.logger.Info("Payment form rejected", map[string]any{
			"user_id": sender.ID,
			"kind":    string(kind),
			"reason":  errs.Message(err),
		})
		return nil, err
	}

	if err := sub.TransitionTo(entity.StateAwaitingPin, e.timeProvider); err != nil {
		return nil, err
	}
	sub.ExpiresAt = e.timeProvider.Now().Add(e.cfg.PinTTL)

	if err := e.submissions.Save(ctx, sub, e.cfg.PinTTL); err != nil {
		e.logger.Error("Failed to store payment submission", map[string]any{
			"submission_id": sub.ID,
			"user_id":       sender.ID,
			"error":         err,
		})
		return nil, err
	}

	e.logger.Debug("Payment awaiting PIN", map[string]any{
		"submission_id": sub.ID,
		"user_id":       sender.ID,
		"kind":          string(kind),
		"amount":        entity.AmountToString(sub.Amount),
	})
	return sub, nil
}

// Confirm authorizes a pending submission with the PIN. Confirming a settled
// submission again returns its receipt without moving money.
func (e *Engine) Confirm(ctx context.Context, session *auth.Session, submissionID, enteredPIN string) (*entity.Receipt, error) {
	sub, err := e.Get(ctx, session, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.State == entity.StateSettled && sub.Receipt != nil {
		return sub.Receipt, nil
	}
	if sub.State != entity.StateAwaitingPin {
		return nil, errs.ErrSubmissionNotPending
	}
	if err := e.gate.CheckFormat(enteredPIN); err != nil {
		return nil, err
	}

	claimed, err := e.submissions.CompareAndSwapState(ctx, submissionID, entity.StateAwaitingPin, entity.StateAuthorizing)
	if err != nil {
		if errors.Is(err, errs.ErrSubmissionNotPending) {
			if current, getErr := e.submissions.Get(ctx, submissionID); getErr == nil &&
				current.State == entity.StateSettled && current.Receipt != nil {
				return current.Receipt, nil
			}
		}
		return nil, err
	}

	result, err := e.queue.Enqueue(ctx, claimed.SenderID, claimed.ID, func(jobCtx context.Context) (any, error) {
		return e.process(jobCtx, claimed, enteredPIN)
	})
	if err != nil {
		var notQueued *errNotQueued
		if errors.As(err, &notQueued) {
			return nil, e.abort(claimed, notQueued.cause)
		}
		return nil, err
	}

	receipt, ok := result.(*entity.Receipt)
	if !ok {
		return nil, errs.ErrInternalServer
	}
	return receipt, nil
}

// Cancel returns a pending submission to editing with its form untouched
func (e *Engine) Cancel(ctx context.Context, session *auth.Session, submissionID string) (*entity.PaymentSubmission, error) {
	if _, err := e.Get(ctx, session, submissionID); err != nil {
		return nil, err
	}

	sub, err := e.submissions.CompareAndSwapState(ctx, submissionID, entity.StateAwaitingPin, entity.StateEditing)
	if err != nil {
		return nil, err
	}
	sub.Failure = ""
	if err := e.submissions.Save(ctx, sub, e.cfg.ReceiptTTL); err != nil {
		e.logger.Warn("Failed to store cancelled submission", map[string]any{
			"submission_id": sub.ID,
			"error":         err,
		})
	}

	e.publish(ctx, sub, event.PaymentCancelled, errs.Message(errs.ErrPINEntryCancelled))
	e.logger.Info("Payment cancelled", map[string]any{
		"submission_id": sub.ID,
		"user_id":       sub.SenderID,
	})
	return sub, nil
}

// Get returns a submission owned by the session's user. Submissions of other
// users are reported as not found.
func (e *Engine) Get(ctx context.Context, session *auth.Session, submissionID string) (*entity.PaymentSubmission, error) {
	if !session.Valid() {
		return nil, errs.ErrMissingSession
	}
	sub, err := e.submissions.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.SenderID != session.UserID {
		return nil, errs.ErrSubmissionNotFound
	}
	return sub, nil
}

// Run submits the form, asks the prompter for the PIN and then confirms or
// cancels the submission
func (e *Engine) Run(
	ctx context.Context,
	session *auth.Session,
	kind entity.PaymentKind,
	form entity.PaymentForm,
	prompter usecase.PinPrompter,
) (*entity.Receipt, error) {
	sub, err := e.Submit(ctx, session, kind, form)
	if err != nil {
		return nil, err
	}

	entered, err := e.gate.Prompt(ctx, prompter, sub)
	if err != nil {
		if _, cancelErr := e.Cancel(context.WithoutCancel(ctx), session, sub.ID); cancelErr != nil {
			e.logger.Warn("Failed to cancel submission after PIN prompt", map[string]any{
				"submission_id": sub.ID,
				"error":         cancelErr,
			})
		}
		return nil, err
	}

	return e.Confirm(ctx, session, sub.ID, entered)
}

// Shutdown waits for queued payments to finish
func (e *Engine) Shutdown() {
	e.queue.Shutdown()
}

// process runs on the sender's queue and owns the submission from here on
func (e *Engine) process(ctx context.Context, sub *entity.PaymentSubmission, enteredPIN string) (*entity.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.abort(sub, err)
	}
	ctx = context.WithoutCancel(ctx)

	if err := e.senderLock.AcquireLock(ctx, sub.SenderID, e.cfg.LockTimeout); err != nil {
		return nil, e.abort(sub, err)
	}
	defer func() {
		if err := e.senderLock.ReleaseLock(ctx, sub.SenderID); err != nil {
			e.logger.Warn("Failed to release sender lock", map[string]any{
				"user_id": sub.SenderID,
				"error":   err,
			})
		}
	}()

	sender, err := e.uow.GetDirectoryRepository(ctx).GetUserByID(ctx, sub.SenderID)
	if err != nil {
		return nil, e.abort(sub, err)
	}
	if err := e.gate.Verify(sender.PIN, enteredPIN); err != nil {
		return nil, e.abort(sub, err)
	}

	// a recorded payment still needs the PIN before its receipt is released
	existing, found, err := e.idempotency.CheckIdempotency(ctx, sub.ID)
	if err != nil {
		return nil, e.abort(sub, errs.NewPaymentFailedError(sub.Operation(), sub.ID, sub.SenderID, err))
	}
	if found {
		e.logger.Info("Payment already recorded, returning stored outcome", map[string]any{
			"submission_id": sub.ID,
			"user_id":       sub.SenderID,
		})
		return e.settleFromRecord(ctx, sub, existing)
	}

	if !sender.CanDeduct(sub.Amount) {
		return nil, e.abort(sub, errs.NewInsufficientBalanceError(
			sender.ID, entity.AmountToString(sub.Amount), sender.GetBalance()))
	}

	if err := sub.TransitionTo(entity.StateMutating, e.timeProvider); err != nil {
		return nil, e.abort(sub, err)
	}

	receipt, err := e.apply(ctx, sub)
	if err != nil {
		return nil, e.abort(sub, err)
	}

	if err := sub.Settle(receipt, e.timeProvider); err != nil {
		return nil, e.abort(sub, err)
	}
	if err := e.submissions.Save(ctx, sub, e.cfg.ReceiptTTL); err != nil {
		e.logger.Error("Failed to store settled submission", map[string]any{
			"submission_id": sub.ID,
			"error":         err,
		})
	}

	e.publish(ctx, sub, event.PaymentCompleted, "")
	e.logger.Info("Payment settled", map[string]any{
		"submission_id": sub.ID,
		"user_id":       sub.SenderID,
		"receiver_id":   sub.ReceiverID,
		"type":          string(receipt.Type),
		"amount":        entity.AmountToString(receipt.Amount),
		"balance":       entity.AmountToString(receipt.SenderBalance),
	})
	return receipt, nil
}

// apply runs the debit, the credit and the record in one unit of work
func (e *Engine) apply(ctx context.Context, sub *entity.PaymentSubmission) (*entity.Receipt, error) {
	txCtx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, errs.NewPaymentFailedError(sub.Operation(), sub.ID, sub.SenderID, err)
	}

	receipt, err := e.mutate(txCtx, sub)
	if err == nil {
		err = e.uow.Commit(txCtx)
	}
	if err != nil {
		if rbErr := e.uow.Rollback(txCtx); rbErr != nil {
			e.logger.Error("Failed to roll back payment", map[string]any{
				"submission_id": sub.ID,
				"user_id":       sub.SenderID,
				"error":         rbErr,
			})
		}
		if isBusinessError(err) {
			return nil, err
		}
		return nil, errs.NewPaymentFailedError(sub.Operation(), sub.ID, sub.SenderID, err)
	}
	return receipt, nil
}

func (e *Engine) mutate(ctx context.Context, sub *entity.PaymentSubmission) (*entity.Receipt, error) {
	directory := e.uow.GetDirectoryRepository(ctx)
	ledger := e.uow.GetLedgerRepository(ctx)
	txType := sub.TransactionType()

	receiverID := ""
	if txType.HasReceiver() {
		form := trimForm(sub.Form)
		receiver, err := directory.GetUserByAccount(ctx, form.BankCode, form.AccountNumber)
		if err != nil {
			if errs.IsNotFoundError(err) {
				return nil, errs.ErrReceiverNotFound
			}
			return nil, err
		}
		if receiver.ID == sub.SenderID {
			return nil, errs.ErrSelfTransfer
		}
		receiverID = receiver.ID
		sub.ReceiverID = receiver.ID
		sub.ReceiverName = receiver.FullName
	}

	locked, err := e.lockRows(ctx, ledger, sub.SenderID, receiverID)
	if err != nil {
		return nil, err
	}
	sender := locked[sub.SenderID]

	if err := sender.Debit(sub.Amount, e.timeProvider); err != nil {
		return nil, err
	}
	if err := ledger.UpdateBalance(ctx, sender.ID, sender.Balance()); err != nil {
		return nil, err
	}

	if receiverID != "" {
		receiver := locked[receiverID]
		if err := receiver.Credit(sub.Amount, e.timeProvider); err != nil {
			return nil, err
		}
		if err := ledger.UpdateBalance(ctx, receiver.ID, receiver.Balance()); err != nil {
			return nil, err
		}
	}

	if err := sub.TransitionTo(entity.StateRecording, e.timeProvider); err != nil {
		return nil, err
	}

	txn, err := entity.NewTransaction(sub.ID, txType, sender.ID, receiverID, sub.Amount, sub.Description(), e.timeProvider)
	if err != nil {
		return nil, err
	}
	if err := ledger.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	return &entity.Receipt{
		TransactionID: txn.ID,
		Type:          txType,
		Amount:        sub.Amount,
		SenderBalance: sender.Balance(),
		ReceiverName:  sub.ReceiverName,
		Message:       sub.SuccessMessage(),
		SettledAt:     txn.Date,
	}, nil
}

// lockRows locks the sender and receiver rows in id order
func (e *Engine) lockRows(ctx context.Context, ledger persistence.LedgerRepository, ids ...string) (map[string]*entity.User, error) {
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			ordered = append(ordered, id)
		}
	}
	sort.Strings(ordered)

	locked := make(map[string]*entity.User, len(ordered))
	for _, id := range ordered {
		u, err := ledger.GetUserForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = u
	}
	return locked, nil
}

// settleFromRecord finishes a submission whose record already exists
func (e *Engine) settleFromRecord(ctx context.Context, sub *entity.PaymentSubmission, txn *entity.Transaction) (*entity.Receipt, error) {
	sender, err := e.uow.GetDirectoryRepository(ctx).GetUserByID(ctx, sub.SenderID)
	if err != nil {
		return nil, e.abort(sub, err)
	}

	receipt := &entity.Receipt{
		TransactionID: txn.ID,
		Type:          txn.Type,
		Amount:        txn.Amount,
		SenderBalance: sender.Balance(),
		ReceiverName:  sub.ReceiverName,
		Message:       sub.SuccessMessage(),
		SettledAt:     txn.Date,
	}

	sub.State = entity.StateRecording
	if err := sub.Settle(receipt, e.timeProvider); err != nil {
		return nil, err
	}
	if err := e.submissions.Save(ctx, sub, e.cfg.ReceiptTTL); err != nil {
		e.logger.Error("Failed to store settled submission", map[string]any{
			"submission_id": sub.ID,
			"error":         err,
		})
	}
	return receipt, nil
}

// abort returns the submission to editing with the user-facing reason and
// reports the failure. It returns cause.
func (e *Engine) abort(sub *entity.PaymentSubmission, cause error) error {
	ctx := context.Background()
	reason := errs.Message(cause)
	sub.Fail(reason, e.timeProvider)

	if err := e.submissions.Save(ctx, sub, e.cfg.ReceiptTTL); err != nil {
		e.logger.Error("Failed to store failed submission", map[string]any{
			"submission_id": sub.ID,
			"error":         err,
		})
	}
	e.publish(ctx, sub, event.PaymentFailed, reason)

	fields := map[string]any{
		"submission_id": sub.ID,
		"user_id":       sub.SenderID,
		"operation":     sub.Operation(),
		"reason":        reason,
		"error":         cause,
	}
	var pf *errs.PaymentFailedError
	if errors.As(cause, &pf) {
		e.logger.Error("Payment failed", fields)
	} else {
		e.logger.Warn("Payment rejected", fields)
	}
	return cause
}

func (e *Engine) publish(ctx context.Context, sub *entity.PaymentSubmission, status event.PaymentStatus, reason string) {
	evt := event.PaymentEvent{
		SubmissionID: sub.ID,
		UserID:       sub.SenderID,
		ReceiverID:   sub.ReceiverID,
		Type:         string(sub.TransactionType()),
		Amount:       sub.Amount,
		Status:       status,
		Reason:       reason,
		OccurredAt:   e.timeProvider.Now(),
	}
	if err := e.publisher.PublishPaymentEvent(ctx, evt); err != nil {
		e.logger.Warn("Failed to publish payment event", map[string]any{
			"submission_id": sub.ID,
			"topic":         evt.Topic(),
			"error":         err,
		})
	}
}

// isBusinessError reports failures the payer can act on; they are returned
// without the generic payment-failed wrapper
func isBusinessError(err error) bool {
	return errors.Is(err, errs.ErrReceiverNotFound) ||
		errors.Is(err, errs.ErrSelfTransfer) ||
		errors.Is(err, errs.ErrInsufficientBalance)
}
