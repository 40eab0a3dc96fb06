package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/event"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/pin"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/identity"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/memstore"
	timeProvider "github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/time"
	mockcore "github.com/amirhossein-jamali/mwallet/mocks/port/core"
	mockevent "github.com/amirhossein-jamali/mwallet/mocks/port/event"
	mockpersistence "github.com/amirhossein-jamali/mwallet/mocks/port/persistence"
)

const (
	aliceAccount = "1111111111"
	bobAccount   = "2222222222"
)

type fixture struct {
	engine *Engine
	store  *memstore.Store
	subs   *memstore.SubmissionStore
	clock  *timeProvider.ManualTimeProvider

	mu     sync.Mutex
	events []event.PaymentEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := timeProvider.NewManualTimeProvider(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))
	log := logger.NewNoopLogger()
	store := memstore.NewStore(entity.DefaultBanks(), clock, log)
	subs := memstore.NewSubmissionStore(clock)
	gate := pin.NewGate(bcrypt.MinCost, log)

	f := &fixture{store: store, subs: subs, clock: clock}

	publisher := mockevent.NewMockPublisher(t)
	publisher.On("PublishPaymentEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			f.mu.Lock()
			f.events = append(f.events, args.Get(1).(event.PaymentEvent))
			f.mu.Unlock()
		}).
		Return(nil).Maybe()

	f.engine = NewEngine(
		memstore.NewUnitOfWork(store),
		subs,
		memstore.NewSenderLock(clock),
		publisher,
		gate,
		identity.NewGenerator(),
		clock,
		log,
		Config{PinTTL: 5 * time.Minute, ReceiptTTL: time.Hour, LockTimeout: 10 * time.Second},
	)
	t.Cleanup(f.engine.Shutdown)

	f.seed(t, gate, "alice", "Alice Ade", "08031111111", "044", aliceAccount, 5000000)
	f.seed(t, gate, "bob", "Bob Bello", "08052222222", "058", bobAccount, 1000000)
	return f
}

func (f *fixture) seed(t *testing.T, gate *pin.Gate, id, name, phone, bank, account string, balance int64) {
	t.Helper()
	hashed, err := gate.Hash("1234")
	require.NoError(t, err)
	u, err := entity.NewUser(entity.UserParams{
		ID:       id,
		FullName: name,
		Email:    id + "@example.com",
		Phone:    phone,
		Network:  entity.DetectCarrier(phone),
		PIN:      hashed,
		Balance:  balance,
		Accounts: []entity.Account{{BankCode: bank, AccountNumber: account}},
	}, f.clock)
	require.NoError(t, err)
	require.NoError(t, f.directory().CreateUser(context.Background(), u))
}

func (f *fixture) directory() persistence.DirectoryRepository {
	return memstore.NewUnitOfWork(f.store).GetDirectoryRepository(context.Background())
}

func (f *fixture) balance(t *testing.T, id string) int64 {
	t.Helper()
	u, err := f.directory().GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u.Balance()
}

func (f *fixture) transactions(t *testing.T) []*entity.Transaction {
	t.Helper()
	txns, err := memstore.NewUnitOfWork(f.store).GetLedgerRepository(context.Background()).ListTransactions(context.Background())
	require.NoError(t, err)
	return txns
}

func (f *fixture) eventStatuses() []event.PaymentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.PaymentStatus, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Status)
	}
	return out
}

func session(userID string) *auth.Session {
	return &auth.Session{UserID: userID, TokenID: "tok-" + userID}
}

func transferToBob(amount string) entity.PaymentForm {
	return entity.PaymentForm{BankCode: "058", AccountNumber: bobAccount, Amount: amount}
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("Moves the amount and records one completed transfer", func(t *testing.T) {
		f := newFixture(t)

		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("20000"))
		require.NoError(t, err)
		assert.Equal(t, entity.StateAwaitingPin, sub.State)
		assert.Equal(t, "bob", sub.ReceiverID)
		assert.Equal(t, "Bob Bello", sub.ReceiverName)
		assert.Equal(t, int64(2000000), sub.Amount)

		receipt, err := f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		require.NoError(t, err)

		assert.Equal(t, "Transfer successful to Bob Bello", receipt.Message)
		assert.Equal(t, int64(3000000), receipt.SenderBalance)
		assert.Equal(t, sub.ID, receipt.TransactionID)
		assert.Equal(t, int64(3000000), f.balance(t, "alice"))
		assert.Equal(t, int64(3000000), f.balance(t, "bob"))

		txns := f.transactions(t)
		require.Len(t, txns, 1)
		assert.Equal(t, entity.TypeTransfer, txns[0].Type)
		assert.Equal(t, "alice", txns[0].SenderID)
		assert.Equal(t, "bob", txns[0].ReceiverID)
		assert.Equal(t, int64(2000000), txns[0].Amount)
		assert.Equal(t, entity.StatusCompleted, txns[0].Status)
		assert.Equal(t, "Transfer payment to Bob Bello", txns[0].Description)

		stored, err := f.engine.Get(ctx, session("alice"), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StateSettled, stored.State)
		assert.Equal(t, []event.PaymentStatus{event.PaymentCompleted}, f.eventStatuses())
	})

	t.Run("Second confirm returns the receipt without debiting again", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("100"))
		require.NoError(t, err)

		first, err := f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		require.NoError(t, err)
		second, err := f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int64(4990000), f.balance(t, "alice"))
		assert.Equal(t, int64(1010000), f.balance(t, "bob"))
		assert.Len(t, f.transactions(t), 1)
	})

	t.Run("Receiver credit failure restores the sender and writes no record", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("20000"))
		require.NoError(t, err)

		f.store.SetFaultHook(func(op, key string) error {
			if op == "update_balance" && key == "bob" {
				return errors.New("connection reset")
			}
			return nil
		})

		_, err = f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrPaymentFailed)
		assert.Equal(t, "Transfer failed", errs.Message(err))

		assert.Equal(t, int64(5000000), f.balance(t, "alice"))
		assert.Equal(t, int64(1000000), f.balance(t, "bob"))
		assert.Empty(t, f.transactions(t))

		stored, err := f.engine.Get(ctx, session("alice"), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StateEditing, stored.State)
		assert.Equal(t, "Transfer failed", stored.Failure)
		assert.Equal(t, []event.PaymentStatus{event.PaymentFailed}, f.eventStatuses())
	})

	t.Run("Record failure restores both balances", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("20000"))
		require.NoError(t, err)

		f.store.SetFaultHook(func(op, key string) error {
			if op == "create_transaction" {
				return errors.New("disk full")
			}
			return nil
		})

		_, err = f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		assert.ErrorIs(t, err, errs.ErrPaymentFailed)
		assert.Equal(t, int64(5000000), f.balance(t, "alice"))
		assert.Equal(t, int64(1000000), f.balance(t, "bob"))
		assert.Empty(t, f.transactions(t))
	})

	t.Run("Existing record is returned without mutating", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("20000"))
		require.NoError(t, err)

		txn, err := entity.NewTransaction(sub.ID, entity.TypeTransfer, "alice", "bob", 2000000, "Transfer payment to Bob Bello", f.clock)
		require.NoError(t, err)
		require.NoError(t, memstore.NewUnitOfWork(f.store).GetLedgerRepository(ctx).CreateTransaction(ctx, txn))

		receipt, err := f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		require.NoError(t, err)
		assert.Equal(t, sub.ID, receipt.TransactionID)
		assert.Equal(t, int64(5000000), f.balance(t, "alice"))
		assert.Len(t, f.transactions(t), 1)
	})

	t.Run("Existing record with a wrong PIN is rejected", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("20000"))
		require.NoError(t, err)

		txn, err := entity.NewTransaction(sub.ID, entity.TypeTransfer, "alice", "bob", 2000000, "Transfer payment to Bob Bello", f.clock)
		require.NoError(t, err)
		require.NoError(t, memstore.NewUnitOfWork(f.store).GetLedgerRepository(ctx).CreateTransaction(ctx, txn))

		receipt, err := f.engine.Confirm(ctx, session("alice"), sub.ID, "9999")
		assert.ErrorIs(t, err, errs.ErrIncorrectPIN)
		assert.Nil(t, receipt)

		stored, err := f.engine.Get(ctx, session("alice"), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StateEditing, stored.State)
		assert.Nil(t, stored.Receipt)
	})
}

func TestAirtimeAndBills(t *testing.T) {
	ctx := context.Background()

	t.Run("Airtime debits only and records an airtime purchase", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindAirtime, entity.PaymentForm{
			Phone:  "08021234567",
			Amount: "500",
		})
		require.NoError(t, err)
		assert.Equal(t, entity.CarrierAirtel, sub.Network)

		receipt, err := f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		require.NoError(t, err)
		assert.Equal(t, "Airtime purchased successfully", receipt.Message)
		assert.Equal(t, int64(4950000), f.balance(t, "alice"))
		assert.Equal(t, int64(1000000), f.balance(t, "bob"))

		txns := f.transactions(t)
		require.Len(t, txns, 1)
		assert.Equal(t, entity.TypeAirtime, txns[0].Type)
		assert.Equal(t, "alice", txns[0].UserID)
		assert.Empty(t, txns[0].ReceiverID)
		assert.Equal(t, "Airtime purchase for 08021234567 (AIRTEL)", txns[0].Description)
	})

	t.Run("Airtime falls back to the picked network", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindAirtime, entity.PaymentForm{
			Phone:   "07001234567",
			Network: "glo",
			Amount:  "100",
		})
		require.NoError(t, err)
		assert.Equal(t, entity.CarrierGLO, sub.Network)
	})

	t.Run("Bill payment credits the biller", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindBill, entity.PaymentForm{
			BillType:      "electricity",
			BankCode:      "058",
			AccountNumber: bobAccount,
			Amount:        "1500.50",
		})
		require.NoError(t, err)

		receipt, err := f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		require.NoError(t, err)
		assert.Equal(t, "Electricity payment successful to Bob Bello", receipt.Message)
		assert.Equal(t, entity.TypeElectricity, receipt.Type)
		assert.Equal(t, int64(5000000-150050), f.balance(t, "alice"))
		assert.Equal(t, int64(1000000+150050), f.balance(t, "bob"))

		txns := f.transactions(t)
		require.Len(t, txns, 1)
		assert.Equal(t, "Electricity payment to Bob Bello", txns[0].Description)
	})
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		kind    entity.PaymentKind
		form    entity.PaymentForm
		field   string
		message string
	}{
		{"Missing bank", entity.KindTransfer, entity.PaymentForm{AccountNumber: bobAccount, Amount: "10"}, FieldBankCode, "Choose a bank"},
		{"Missing account", entity.KindTransfer, entity.PaymentForm{BankCode: "058", Amount: "10"}, FieldAccountNumber, "Account number is required"},
		{"Short account", entity.KindTransfer, entity.PaymentForm{BankCode: "058", AccountNumber: "12345", Amount: "10"}, FieldAccountNumber, "Account number must be 10 digits"},
		{"Missing amount", entity.KindTransfer, entity.PaymentForm{BankCode: "058", AccountNumber: bobAccount}, FieldAmount, "Amount is required"},
		{"Zero amount", entity.KindTransfer, transferToBob("0"), FieldAmount, "Enter a valid amount"},
		{"Negative amount", entity.KindTransfer, transferToBob("-5"), FieldAmount, "Enter a valid amount"},
		{"Unknown bank", entity.KindTransfer, entity.PaymentForm{BankCode: "999", AccountNumber: bobAccount, Amount: "10"}, FieldBankCode, "Choose a bank"},
		{"Unknown receiver", entity.KindTransfer, entity.PaymentForm{BankCode: "058", AccountNumber: "9999999999", Amount: "10"}, FieldAccountNumber, "Receiver account not found"},
		{"Own account", entity.KindTransfer, entity.PaymentForm{BankCode: "044", AccountNumber: aliceAccount, Amount: "10"}, FieldAccountNumber, "You cannot pay into your own account"},
		{"More than balance", entity.KindTransfer, transferToBob("50000.01"), FieldAmount, "Insufficient balance"},
		{"Missing bill type", entity.KindBill, transferToBob("10"), FieldBillType, "Select bill type"},
		{"Bill amount missing", entity.KindBill, entity.PaymentForm{BillType: "water", BankCode: "058", AccountNumber: bobAccount}, FieldAmount, "Enter amount"},
		{"Missing phone", entity.KindAirtime, entity.PaymentForm{Amount: "10"}, FieldPhone, "Enter phone number"},
		{"Unknown network", entity.KindAirtime, entity.PaymentForm{Phone: "07001234567", Amount: "10"}, FieldNetwork, "Select network"},
		{"Airtime amount missing", entity.KindAirtime, entity.PaymentForm{Phone: "08031234567"}, FieldAmount, "Enter amount"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			sub, err := f.engine.Submit(ctx, session("alice"), tc.kind, tc.form)
			assert.Nil(t, sub)

			var verr *errs.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.message, verr.Fields[tc.field])

			assert.Equal(t, int64(5000000), f.balance(t, "alice"))
			assert.Empty(t, f.transactions(t))
		})
	}

	t.Run("Requires a session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Submit(ctx, nil, entity.KindTransfer, transferToBob("10"))
		assert.ErrorIs(t, err, errs.ErrMissingSession)
		assert.Equal(t, "Please login", errs.Message(err))
	})

	t.Run("Unknown sender", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Submit(ctx, session("ghost"), entity.KindTransfer, transferToBob("10"))
		assert.ErrorIs(t, err, errs.ErrUserNotFound)
	})
}

func TestConfirmRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("Wrong PIN leaves balances and ledger unchanged", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("20000"))
		require.NoError(t, err)

		_, err = f.engine.Confirm(ctx, session("alice"), sub.ID, "9999")
		assert.ErrorIs(t, err, errs.ErrIncorrectPIN)

		assert.Equal(t, int64(5000000), f.balance(t, "alice"))
		assert.Equal(t, int64(1000000), f.balance(t, "bob"))
		assert.Empty(t, f.transactions(t))

		stored, err := f.engine.Get(ctx, session("alice"), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StateEditing, stored.State)
		assert.Equal(t, "Incorrect PIN", stored.Failure)
	})

	t.Run("Malformed PIN keeps the submission awaiting PIN", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("10"))
		require.NoError(t, err)

		_, err = f.engine.Confirm(ctx, session("alice"), sub.ID, "12a")
		assert.ErrorIs(t, err, errs.ErrInvalidPINFormat)

		stored, err := f.engine.Get(ctx, session("alice"), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StateAwaitingPin, stored.State)

		_, err = f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		assert.NoError(t, err)
	})

	t.Run("Balance spent elsewhere is caught at authorization", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("40000"))
		require.NoError(t, err)
		require.NoError(t, memstore.NewUnitOfWork(f.store).GetLedgerRepository(ctx).UpdateBalance(ctx, "alice", 100))

		_, err = f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
		assert.Equal(t, int64(100), f.balance(t, "alice"))
		assert.Empty(t, f.transactions(t))
	})

	t.Run("Another user's submission is not found", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("10"))
		require.NoError(t, err)

		_, err = f.engine.Confirm(ctx, session("bob"), sub.ID, "1234")
		assert.ErrorIs(t, err, errs.ErrSubmissionNotFound)
		_, err = f.engine.Cancel(ctx, session("bob"), sub.ID)
		assert.ErrorIs(t, err, errs.ErrSubmissionNotFound)
	})

	t.Run("Expired submission cannot be confirmed", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("10"))
		require.NoError(t, err)

		f.clock.Advance(6 * time.Minute)
		_, err = f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
		assert.ErrorIs(t, err, errs.ErrSubmissionNotFound)
		assert.Equal(t, int64(5000000), f.balance(t, "alice"))
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	form := transferToBob("20000")

	sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, form)
	require.NoError(t, err)

	cancelled, err := f.engine.Cancel(ctx, session("alice"), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateEditing, cancelled.State)
	assert.Equal(t, form, cancelled.Form)

	_, err = f.engine.Confirm(ctx, session("alice"), sub.ID, "1234")
	assert.ErrorIs(t, err, errs.ErrSubmissionNotPending)

	assert.Equal(t, int64(5000000), f.balance(t, "alice"))
	assert.Equal(t, int64(1000000), f.balance(t, "bob"))
	assert.Empty(t, f.transactions(t))
	assert.Equal(t, []event.PaymentStatus{event.PaymentCancelled}, f.eventStatuses())
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Prompts for the PIN and settles", func(t *testing.T) {
		f := newFixture(t)
		prompted := false
		prompter := usecase.PinPrompterFunc(func(ctx context.Context, sub *entity.PaymentSubmission) (string, error) {
			prompted = true
			assert.Equal(t, entity.StateAwaitingPin, sub.State)
			return " 1234 ", nil
		})

		receipt, err := f.engine.Run(ctx, session("alice"), entity.KindTransfer, transferToBob("20000"), prompter)
		require.NoError(t, err)
		assert.True(t, prompted)
		assert.Equal(t, int64(3000000), receipt.SenderBalance)
	})

	t.Run("Closing the PIN prompt cancels without side effects", func(t *testing.T) {
		f := newFixture(t)
		var subID string
		prompter := usecase.PinPrompterFunc(func(ctx context.Context, sub *entity.PaymentSubmission) (string, error) {
			subID = sub.ID
			return "", errs.ErrPINEntryCancelled
		})

		_, err := f.engine.Run(ctx, session("alice"), entity.KindTransfer, transferToBob("20000"), prompter)
		assert.ErrorIs(t, err, errs.ErrPINEntryCancelled)

		stored, err := f.engine.Get(ctx, session("alice"), subID)
		require.NoError(t, err)
		assert.Equal(t, entity.StateEditing, stored.State)
		assert.Equal(t, int64(5000000), f.balance(t, "alice"))
		assert.Empty(t, f.transactions(t))
	})
}

func TestConcurrentConfirmsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ids := make([]string, 3)
	for i := range ids {
		sub, err := f.engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("20000"))
		require.NoError(t, err)
		ids[i] = sub.ID
	}

	var wg sync.WaitGroup
	results := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = f.engine.Confirm(ctx, session("alice"), id, "1234")
		}(i, id)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, errs.ErrInsufficientBalance):
			insufficient++
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(1000000), f.balance(t, "alice"))
	assert.Equal(t, int64(5000000), f.balance(t, "bob"))
	assert.Len(t, f.transactions(t), 2)
}

func TestConfirm_CommitFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	directory := f.directory()

	ledger := mockpersistence.NewMockLedgerRepository(t)
	ledger.On("TransactionExists", mock.Anything, mock.Anything).Return(false, nil).Once()
	ledger.On("GetUserForUpdate", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, id string) (*entity.User, error) {
			return directory.GetUserByID(ctx, id)
		})
	ledger.On("UpdateBalance", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ledger.On("CreateTransaction", mock.Anything, mock.Anything).Return(nil).Once()

	uow := mockpersistence.NewMockUnitOfWork(t)
	uow.On("GetDirectoryRepository", mock.Anything).Return(directory)
	uow.On("GetLedgerRepository", mock.Anything).Return(ledger)
	uow.On("Begin", mock.Anything).Return(func(ctx context.Context) (context.Context, error) {
		return ctx, nil
	}).Once()
	uow.On("Commit", mock.Anything).Return(errors.New("connection reset by peer")).Once()
	uow.On("Rollback", mock.Anything).Return(errors.New("transaction already closed")).Once()

	log := mockcore.NewMockLogger(t)
	log.EXPECT().Error("Failed to roll back payment", mock.MatchedBy(func(fields map[string]any) bool {
		return fields["user_id"] == "alice"
	})).Return().Once()
	log.EXPECT().Error("Payment failed", mock.Anything).Return().Once()
	log.EXPECT().Debug(mock.Anything, mock.Anything).Return().Maybe()
	log.EXPECT().Info(mock.Anything, mock.Anything).Return().Maybe()
	log.EXPECT().Warn(mock.Anything, mock.Anything).Return().Maybe()

	publisher := mockevent.NewMockPublisher(t)
	publisher.On("PublishPaymentEvent", mock.Anything, mock.MatchedBy(func(evt event.PaymentEvent) bool {
		return evt.Status == event.PaymentFailed
	})).Return(nil).Once()

	engine := NewEngine(
		uow,
		f.subs,
		memstore.NewSenderLock(f.clock),
		publisher,
		pin.NewGate(bcrypt.MinCost, logger.NewNoopLogger()),
		identity.NewGenerator(),
		f.clock,
		log,
		Config{PinTTL: 5 * time.Minute, ReceiptTTL: time.Hour, LockTimeout: 10 * time.Second},
	)
	t.Cleanup(engine.Shutdown)

	sub, err := engine.Submit(ctx, session("alice"), entity.KindTransfer, transferToBob("100"))
	require.NoError(t, err)

	receipt, err := engine.Confirm(ctx, session("alice"), sub.ID, "1234")
	assert.Nil(t, receipt)
	var failed *errs.PaymentFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, sub.ID, failed.SubmissionID)

	stored, err := engine.Get(ctx, session("alice"), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateEditing, stored.State)
	assert.NotEmpty(t, stored.Failure)
	assert.Nil(t, stored.Receipt)
}
