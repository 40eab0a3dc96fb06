package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
)

// Form field names used as ValidationError keys
const (
	FieldBankCode      = "bankCode"
	FieldAccountNumber = "accountNumber"
	FieldPhone         = "phone"
	FieldNetwork       = "network"
	FieldBillType      = "billType"
	FieldAmount        = "amount"
)

// FormValidator checks a payment form and fills in the resolved amount,
// receiver and network on the submission
type FormValidator struct{}

// NewFormValidator creates a new FormValidator
func NewFormValidator() *FormValidator {
	return &FormValidator{}
}

// Validate runs the checks of the submission's payment page. Field failures
// are collected into one ValidationError; lookup failures other than "not
// found" are returned as they are.
func (v *FormValidator) Validate(
	ctx context.Context,
	directory persistence.DirectoryRepository,
	sender *entity.User,
	sub *entity.PaymentSubmission,
) error {
	form := trimForm(sub.Form)
	verr := errs.NewValidationError()

	switch sub.Kind {
	case entity.KindTransfer:
		v.validateAccount(verr, form)
		v.validateAmount(verr, form.Amount, "Amount is required", sub)
	case entity.KindBill:
		billType, ok := entity.ParseBillType(strings.ToLower(form.BillType))
		if !ok {
			verr.Add(FieldBillType, "Select bill type")
		}
		sub.BillType = billType
		v.validateAccount(verr, form)
		v.validateAmount(verr, form.Amount, "Enter amount", sub)
	case entity.KindAirtime:
		v.validatePhone(verr, form, sub)
		v.validateAmount(verr, form.Amount, "Enter amount", sub)
	default:
		return errs.ErrInvalidRequest
	}

	if verr.HasErrors() {
		return verr
	}

	if sub.Kind != entity.KindAirtime {
		if err := v.resolveReceiver(ctx, directory, verr, form, sender, sub); err != nil {
			return err
		}
		if verr.HasErrors() {
			return verr
		}
	}

	if !sender.CanDeduct(sub.Amount) {
		verr.Add(FieldAmount, "Insufficient balance")
	}
	return verr.OrNil()
}

func (v *FormValidator) validateAccount(verr *errs.ValidationError, form entity.PaymentForm) {
	if form.BankCode == "" {
		verr.Add(FieldBankCode, "Choose a bank")
	}
	switch {
	case form.AccountNumber == "":
		verr.Add(FieldAccountNumber, "Account number is required")
	case !entity.IsValidAccountNumber(form.AccountNumber):
		verr.Add(FieldAccountNumber, "Account number must be 10 digits")
	}
}

func (v *FormValidator) validateAmount(verr *errs.ValidationError, raw, missing string, sub *entity.PaymentSubmission) {
	if raw == "" {
		verr.Add(FieldAmount, missing)
		return
	}
	amount, err := entity.ValidateAndConvertAmount(raw)
	if err != nil || amount == 0 {
		verr.Add(FieldAmount, "Enter a valid amount")
		return
	}
	sub.Amount = amount
}

// validatePhone accepts the detected carrier first and falls back to the
// network the user picked
func (v *FormValidator) validatePhone(verr *errs.ValidationError, form entity.PaymentForm, sub *entity.PaymentSubmission) {
	if !entity.IsValidPhone(form.Phone) {
		verr.Add(FieldPhone, "Enter phone number")
		return
	}
	sub.Phone = form.Phone

	network := entity.DetectCarrier(form.Phone)
	if network == entity.CarrierUnknown {
		picked, ok := entity.ParseCarrier(form.Network)
		if !ok {
			verr.Add(FieldNetwork, "Select network")
			return
		}
		network = picked
	}
	sub.Network = network
}

func (v *FormValidator) resolveReceiver(
	ctx context.Context,
	directory persistence.DirectoryRepository,
	verr *errs.ValidationError,
	form entity.PaymentForm,
	sender *entity.User,
	sub *entity.PaymentSubmission,
) error {
	if _, err := directory.GetBank(ctx, form.BankCode); err != nil {
		if errors.Is(err, errs.ErrBankNotFound) {
			verr.Add(FieldBankCode, "Choose a bank")
			return nil
		}
		return err
	}

	receiver, err := directory.GetUserByAccount(ctx, form.BankCode, form.AccountNumber)
	if err != nil {
		if errs.IsNotFoundError(err) {
			verr.Add(FieldAccountNumber, "Receiver account not found")
			return nil
		}
		return err
	}
	if receiver.ID == sender.ID {
		verr.Add(FieldAccountNumber, "You cannot pay into your own account")
		return nil
	}

	sub.ReceiverID = receiver.ID
	sub.ReceiverName = receiver.FullName
	return nil
}

func trimForm(form entity.PaymentForm) entity.PaymentForm {
	return entity.PaymentForm{
		BankCode:      strings.TrimSpace(form.BankCode),
		AccountNumber: strings.TrimSpace(form.AccountNumber),
		Phone:         strings.TrimSpace(form.Phone),
		Network:       strings.TrimSpace(form.Network),
		BillType:      strings.TrimSpace(form.BillType),
		Amount:        strings.TrimSpace(form.Amount),
	}
}
