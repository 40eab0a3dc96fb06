package entity

import (
	"fmt"
	"strings"
	"time"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	tport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// PaymentKind identifies the payment page a submission came from
type PaymentKind string

// Payment kinds
const (
	KindTransfer PaymentKind = "transfer"
	KindAirtime  PaymentKind = "airtime"
	KindBill     PaymentKind = "bill"
)

// SubmissionState is a step of the payment workflow
type SubmissionState string

// Workflow states
const (
	StateEditing     SubmissionState = "editing"
	StateValidating  SubmissionState = "validating"
	StateAwaitingPin SubmissionState = "awaiting_pin"
	StateAuthorizing SubmissionState = "authorizing"
	StateMutating    SubmissionState = "mutating"
	StateRecording   SubmissionState = "recording"
	StateSettled     SubmissionState = "settled"
)

var allowedTransitions = map[SubmissionState][]SubmissionState{
	StateEditing:     {StateValidating},
	StateValidating:  {StateAwaitingPin, StateEditing},
	StateAwaitingPin: {StateAuthorizing, StateEditing},
	StateAuthorizing: {StateMutating, StateEditing},
	StateMutating:    {StateRecording, StateEditing},
	StateRecording:   {StateSettled, StateEditing},
}

// CanTransition reports whether the workflow may move from one state to another
func CanTransition(from, to SubmissionState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PaymentForm is the raw input of a payment page, kept verbatim so a
// cancelled or failed submission can be handed back for editing.
type PaymentForm struct {
	BankCode      string `json:"bankCode,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Network       string `json:"network,omitempty"`
	BillType      string `json:"billType,omitempty"`
	Amount        string `json:"amount"`
}

// Receipt is the outcome of a settled submission
type Receipt struct {
	TransactionID string          `json:"transactionId"`
	Type          TransactionType `json:"type"`
	Amount        int64           `json:"amount"`
	SenderBalance int64           `json:"senderBalance"`
	ReceiverName  string          `json:"receiverName,omitempty"`
	Message       string          `json:"message"`
	SettledAt     time.Time       `json:"settledAt"`
}

// PaymentSubmission tracks one pass through the payment workflow
type PaymentSubmission struct {
	ID           string          `json:"id"`
	SenderID     string          `json:"senderId"`
	Kind         PaymentKind     `json:"kind"`
	Form         PaymentForm     `json:"form"`
	State        SubmissionState `json:"state"`
	Amount       int64           `json:"amount"`
	BillType     TransactionType `json:"billType,omitempty"`
	ReceiverID   string          `json:"receiverId,omitempty"`
	ReceiverName string          `json:"receiverName,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	Network      Carrier         `json:"network,omitempty"`
	Receipt      *Receipt        `json:"receipt,omitempty"`
	Failure      string          `json:"failure,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	ExpiresAt    time.Time       `json:"expiresAt"`
}

// NewPaymentSubmission starts a submission in the validating state
func NewPaymentSubmission(id, senderID string, kind PaymentKind, form PaymentForm, timeProvider tport.TimeProvider) *PaymentSubmission {
	now := timeProvider.Now()
	return &PaymentSubmission{
		ID:        id,
		SenderID:  senderID,
		Kind:      kind,
		Form:      form,
		State:     StateValidating,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the submission to the next state
func (s *PaymentSubmission) TransitionTo(state SubmissionState, timeProvider tport.TimeProvider) error {
	if !CanTransition(s.State, state) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrSubmissionNotPending, s.State, state)
	}
	s.State = state
	s.UpdatedAt = timeProvider.Now()
	return nil
}

// Fail returns the submission to editing with a reason
func (s *PaymentSubmission) Fail(reason string, timeProvider tport.TimeProvider) {
	if s.State == StateSettled {
		return
	}
	s.State = StateEditing
	s.Failure = reason
	s.UpdatedAt = timeProvider.Now()
}

// Settle records the receipt and finishes the workflow
func (s *PaymentSubmission) Settle(receipt *Receipt, timeProvider tport.TimeProvider) error {
	if err := s.TransitionTo(StateSettled, timeProvider); err != nil {
		return err
	}
	s.Receipt = receipt
	s.Failure = ""
	return nil
}

// TransactionType maps the submission to its ledger type
func (s *PaymentSubmission) TransactionType() TransactionType {
	switch s.Kind {
	case KindTransfer:
		return TypeTransfer
	case KindAirtime:
		return TypeAirtime
	default:
		return s.BillType
	}
}

// Operation names the workflow for messages: "transfer", "airtime purchase",
// "electricity payment".
func (s *PaymentSubmission) Operation() string {
	switch s.Kind {
	case KindTransfer:
		return "transfer"
	case KindAirtime:
		return "airtime purchase"
	default:
		if s.BillType == "" {
			return "bill payment"
		}
		return string(s.BillType) + " payment"
	}
}

// Description builds the ledger description for a settled submission
func (s *PaymentSubmission) Description() string {
	switch s.Kind {
	case KindTransfer:
		return "Transfer payment to " + s.ReceiverName
	case KindAirtime:
		return fmt.Sprintf("Airtime purchase for %s (%s)", s.Phone, s.Network)
	default:
		return capitalize(string(s.BillType)) + " payment to " + s.ReceiverName
	}
}

// SuccessMessage is shown to the payer once the submission settles
func (s *PaymentSubmission) SuccessMessage() string {
	switch s.Kind {
	case KindTransfer:
		return "Transfer successful to " + s.ReceiverName
	case KindAirtime:
		return "Airtime purchased successfully"
	default:
		return capitalize(string(s.BillType)) + " payment successful to " + s.ReceiverName
	}
}

// IsExpired reports whether an unconfirmed submission has timed out
func (s *PaymentSubmission) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.State != StateSettled && now.After(s.ExpiresAt)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s == string(TypeTV) {
		return "TV"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
