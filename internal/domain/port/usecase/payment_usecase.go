package usecase

import (
	"context"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
)

// PinPrompter collects the PIN for a submission awaiting confirmation.
// Returning ErrPINEntryCancelled cancels the submission.
type PinPrompter interface {
	PromptPIN(ctx context.Context, submission *entity.PaymentSubmission) (string, error)
}

// PinPrompterFunc adapts a function to PinPrompter
type PinPrompterFunc func(ctx context.Context, submission *entity.PaymentSubmission) (string, error)

// PromptPIN calls f
func (f PinPrompterFunc) PromptPIN(ctx context.Context, submission *entity.PaymentSubmission) (string, error) {
	return f(ctx, submission)
}

// PaymentUseCase runs the payment workflow shared by transfer, airtime and bills
type PaymentUseCase interface {
	// Submit validates a payment form and parks it awaiting PIN confirmation
	Submit(ctx context.Context, session *auth.Session, kind entity.PaymentKind, form entity.PaymentForm) (*entity.PaymentSubmission, error)

	// Confirm authorizes a pending submission with the PIN and moves the money
	Confirm(ctx context.Context, session *auth.Session, submissionID, pin string) (*entity.Receipt, error)

	// Cancel returns a pending submission to editing with its form intact
	Cancel(ctx context.Context, session *auth.Session, submissionID string) (*entity.PaymentSubmission, error)

	// Get returns a submission owned by the session's user
	Get(ctx context.Context, session *auth.Session, submissionID string) (*entity.PaymentSubmission, error)

	// Run submits the form, prompts for the PIN and confirms or cancels
	Run(ctx context.Context, session *auth.Session, kind entity.PaymentKind, form entity.PaymentForm, prompter PinPrompter) (*entity.Receipt, error)
}
