package error

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error codes for standardized API responses
const (
	// 4xxx - Client errors
	CodeInsufficientBalance  = 4001
	CodeInvalidAmount        = 4002
	CodeValidation           = 4003
	CodeDuplicateTransaction = 4004
	CodeConstraintViolation  = 4005
	CodeAmountOverflow       = 4006
	CodeInvalidPINFormat     = 4007
	CodeDuplicateEmail       = 4008
	CodeSelfTransfer         = 4009
	CodeInvalidPhone         = 4010
	CodeUnknownNetwork       = 4011
	CodeSubmissionNotPending = 4012
	CodePINEntryCancelled    = 4013

	// 41xx - Authentication and authorization
	CodeMissingSession     = 4101
	CodeIncorrectPIN       = 4102
	CodeInvalidCredentials = 4103
	CodeForbidden          = 4104

	// 404x - Resolution
	CodeUserNotFound        = 4040
	CodeReceiverNotFound    = 4041
	CodeAccountNotFound     = 4042
	CodeSubmissionNotFound  = 4043
	CodeBankNotFound        = 4044
	CodeTransactionNotFound = 4045

	CodeUserLocked = 4230

	// 5xxx - Server errors
	CodeInternalServer   = 5000
	CodePaymentFailed    = 5020
	CodeStoreUnavailable = 5030
)

// Base error types
var (
	// ErrInsufficientBalance is returned when a user has insufficient funds for a payment
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned when the amount format is invalid
	ErrInvalidAmount = errors.New("invalid amount format")

	// ErrNegativeAmount is returned when the amount is negative
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrNegativeBalance is returned when an operation would result in negative balance
	ErrNegativeBalance = errors.New("balance cannot be negative")

	// ErrAmountOverflow is returned when the amount is too large and would cause overflow
	ErrAmountOverflow = errors.New("amount is too large and would cause overflow")

	// ErrValidation is the root of every field-level validation failure
	ErrValidation = errors.New("validation failed")

	ErrInvalidUserID          = errors.New("user ID cannot be empty")
	ErrInvalidTransactionID   = errors.New("transaction ID cannot be empty")
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrDuplicateTransaction is returned when a transaction with the same ID already exists
	ErrDuplicateTransaction = errors.New("transaction with this ID already exists")

	// ErrDuplicateEmail is returned at signup when the email is already registered
	ErrDuplicateEmail = errors.New("this email already exists")

	// ErrDuplicateAccount is returned when a (bank, account number) pair is already assigned
	ErrDuplicateAccount = errors.New("account number already assigned")

	ErrSelfTransfer = errors.New("cannot pay into your own account")

	ErrInvalidPhone      = errors.New("phone number must be 11 digits")
	ErrUnknownNetwork    = errors.New("network could not be detected")
	ErrInvalidPINFormat  = errors.New("PIN must be 4 digits")
	ErrPINEntryCancelled = errors.New("PIN entry cancelled")

	// ErrMissingSession is returned when no logged-in user is attached to the call
	ErrMissingSession = errors.New("no active session")

	// ErrIncorrectPIN is returned when the entered PIN does not match the stored one
	ErrIncorrectPIN = errors.New("incorrect PIN")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("resource belongs to another user")

	// ErrUserNotFound is returned when the requested user doesn't exist
	ErrUserNotFound = errors.New("user not found")

	// ErrReceiverNotFound is returned when no user owns the target bank account
	ErrReceiverNotFound = errors.New("receiver account not found")

	// ErrAccountNotFound is returned by account-holder lookups
	ErrAccountNotFound = errors.New("account not found")

	ErrBankNotFound        = errors.New("bank not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrSubmissionNotFound is returned for unknown or expired payment submissions
	ErrSubmissionNotFound = errors.New("payment submission not found")

	// ErrSubmissionNotPending is returned when a submission is not awaiting a PIN
	ErrSubmissionNotPending = errors.New("payment submission is not awaiting PIN")

	// ErrPaymentFailed is the root of every failure after the PIN was accepted
	ErrPaymentFailed = errors.New("payment failed")

	// ErrInvalidRequest is returned when the request format is invalid
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")

	// ErrUserLocked is returned when a user is locked by another operation
	ErrUserLocked = errors.New("user is locked by another operation")

	// ErrDatabaseConnection is returned when there's a problem connecting to the database
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrStoreUnavailable is returned when the remote store cannot be reached or rejects a call
	ErrStoreUnavailable = errors.New("remote store unavailable")

	// ErrDuplicateUser is returned when trying to create a user that already exists
	ErrDuplicateUser = errors.New("user already exists")

	// ErrConstraintViolation is returned when a database constraint is violated
	ErrConstraintViolation = errors.New("database constraint violation")

	// ErrNotFound is returned when a generic resource is not found
	ErrNotFound = errors.New("resource not found")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrPaymentFailed):
		return CodePaymentFailed
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrNegativeAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRequest):
		return CodeValidation
	case errors.Is(err, ErrDuplicateTransaction):
		return CodeDuplicateTransaction
	case errors.Is(err, ErrAmountOverflow):
		return CodeAmountOverflow
	case errors.Is(err, ErrInvalidPINFormat):
		return CodeInvalidPINFormat
	case errors.Is(err, ErrDuplicateEmail):
		return CodeDuplicateEmail
	case errors.Is(err, ErrSelfTransfer):
		return CodeSelfTransfer
	case errors.Is(err, ErrInvalidPhone):
		return CodeInvalidPhone
	case errors.Is(err, ErrUnknownNetwork):
		return CodeUnknownNetwork
	case errors.Is(err, ErrSubmissionNotPending):
		return CodeSubmissionNotPending
	case errors.Is(err, ErrPINEntryCancelled):
		return CodePINEntryCancelled
	case errors.Is(err, ErrMissingSession):
		return CodeMissingSession
	case errors.Is(err, ErrIncorrectPIN):
		return CodeIncorrectPIN
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrReceiverNotFound):
		return CodeReceiverNotFound
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrSubmissionNotFound):
		return CodeSubmissionNotFound
	case errors.Is(err, ErrBankNotFound):
		return CodeBankNotFound
	case errors.Is(err, ErrTransactionNotFound):
		return CodeTransactionNotFound
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrUserLocked):
		return CodeUserLocked
	case errors.Is(err, ErrConstraintViolation):
		return CodeConstraintViolation
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrDatabaseConnection):
		return CodeStoreUnavailable
	default:
		return CodeInternalServer
	}
}

// Message returns the text shown to wallet users for a known error
func Message(err error) string {
	var pf *PaymentFailedError
	if errors.As(err, &pf) {
		return pf.UserMessage()
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.First()
	}

	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient balance"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrNegativeAmount), errors.Is(err, ErrAmountOverflow):
		return "Enter a valid amount"
	case errors.Is(err, ErrInvalidPINFormat):
		return "Enter your 4-digit PIN"
	case errors.Is(err, ErrIncorrectPIN):
		return "Incorrect PIN"
	case errors.Is(err, ErrMissingSession):
		return "Please login"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrDuplicateEmail):
		return "This email already exists"
	case errors.Is(err, ErrReceiverNotFound), errors.Is(err, ErrAccountNotFound):
		return "Receiver account not found"
	case errors.Is(err, ErrSelfTransfer):
		return "You cannot pay into your own account"
	case errors.Is(err, ErrInvalidPhone):
		return "Enter a valid 11-digit phone number"
	case errors.Is(err, ErrUnknownNetwork):
		return "Select network"
	case errors.Is(err, ErrPINEntryCancelled):
		return "Payment cancelled"
	case errors.Is(err, ErrSubmissionNotFound):
		return "Payment not found or expired"
	case errors.Is(err, ErrSubmissionNotPending):
		return "Payment is no longer awaiting PIN"
	case errors.Is(err, ErrBankNotFound):
		return "Choose a bank"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrForbidden):
		return "Not allowed"
	case errors.Is(err, ErrUserLocked):
		return "Another payment is in progress, please try again"
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrDatabaseConnection):
		return "Service temporarily unavailable"
	default:
		return "Internal server error"
	}
}

// ValidationError collects field-level validation failures
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty ValidationError
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for a field; the first message for a field wins
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns the error when fields failed and nil otherwise
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// First returns the message of the alphabetically first field
func (e *ValidationError) First() string {
	keys := e.sortedFields()
	if len(keys) == 0 {
		return ""
	}
	return e.Fields[keys[0]]
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	keys := e.sortedFields()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// Is matches ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// LogFields returns a map of fields for structured logging
func (e *ValidationError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "validation_error",
		"fields":     e.Fields,
		"error_code": CodeValidation,
	}
}

func (e *ValidationError) sortedFields() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InsufficientBalanceError provides detailed error information for insufficient balance
type InsufficientBalanceError struct {
	UserID      string
	Amount      string
	CurrBalance string
}

// Error implements the error interface
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for user %s: required %s, available %s",
		e.UserID, e.Amount, e.CurrBalance)
}

// Is checks if the target error is an ErrInsufficientBalance
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// LogFields returns a map of fields for structured logging
func (e *InsufficientBalanceError) LogFields() map[string]any {
	return map[string]any{
		"error_type":      "insufficient_balance",
		"user_id":         e.UserID,
		"amount":          e.Amount,
		"current_balance": e.CurrBalance,
		"error_code":      CodeInsufficientBalance,
	}
}

// NewInsufficientBalanceError creates a new detailed insufficient balance error
func NewInsufficientBalanceError(userID, amount, currentBalance string) error {
	return &InsufficientBalanceError{
		UserID:      userID,
		Amount:      amount,
		CurrBalance: currentBalance,
	}
}

// PaymentFailedError reports a failure after the PIN was accepted. Balances
// have been restored by the time it is returned.
type PaymentFailedError struct {
	Operation    string
	SubmissionID string
	UserID       string
	Err          error
}

// Error implements the error interface
func (e *PaymentFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Operation)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *PaymentFailedError) Unwrap() error {
	return e.Err
}

// Is matches ErrPaymentFailed
func (e *PaymentFailedError) Is(target error) bool {
	return target == ErrPaymentFailed
}

// UserMessage returns the generic "<operation> failed" text
func (e *PaymentFailedError) UserMessage() string {
	if e.Operation == "" {
		return "Payment failed"
	}
	return strings.ToUpper(e.Operation[:1]) + e.Operation[1:] + " failed"
}

// LogFields returns a map of fields for structured logging
func (e *PaymentFailedError) LogFields() map[string]any {
	fields := map[string]any{
		"error_type":    "payment_failed",
		"operation":     e.Operation,
		"submission_id": e.SubmissionID,
		"user_id":       e.UserID,
		"error_code":    CodePaymentFailed,
	}
	if e.Err != nil {
		fields["error"] = e.Err.Error()
	}
	return fields
}

// NewPaymentFailedError wraps err as a generic payment failure
func NewPaymentFailedError(operation, submissionID, userID string, err error) error {
	return &PaymentFailedError{
		Operation:    operation,
		SubmissionID: submissionID,
		UserID:       userID,
		Err:          err,
	}
}

// DuplicateTransactionError provides detailed information about duplicate transaction attempts
type DuplicateTransactionError struct {
	TransactionID string
	UserID        string
}

// Error implements the error interface
func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf("duplicate transaction detected: transactionID=%s for user %s",
		e.TransactionID, e.UserID)
}

// Is checks if the target error is an ErrDuplicateTransaction
func (e *DuplicateTransactionError) Is(target error) bool {
	return target == ErrDuplicateTransaction
}

// LogFields returns a map of fields for structured logging
func (e *DuplicateTransactionError) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "duplicate_transaction",
		"transaction_id": e.TransactionID,
		"user_id":        e.UserID,
		"error_code":     CodeDuplicateTransaction,
	}
}

// NewDuplicateTransactionError creates a new detailed duplicate transaction error
func NewDuplicateTransactionError(transactionID, userID string) error {
	return &DuplicateTransactionError{
		TransactionID: transactionID,
		UserID:        userID,
	}
}

// IsDuplicateTransactionError checks if the error is a duplicate transaction error
func IsDuplicateTransactionError(err error) bool {
	return errors.Is(err, ErrDuplicateTransaction)
}

// IsInsufficientBalanceError checks if the error is related to insufficient balance
func IsInsufficientBalanceError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// IsUserNotFoundError checks if the error is a user not found error
func IsUserNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrReceiverNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrBankNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsUserLockedError checks if the error is related to a locked user
func IsUserLockedError(err error) bool {
	return errors.Is(err, ErrUserLocked)
}

// IsAuthError checks if the error is an authentication or authorization failure
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingSession) ||
		errors.Is(err, ErrIncorrectPIN) ||
		errors.Is(err, ErrInvalidCredentials)
}
