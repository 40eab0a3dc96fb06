package pin

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"
	"golang.org/x/crypto/bcrypt"
)

// Length is the number of digits in a PIN
const Length = 4

// MinPasswordLength is the shortest password accepted at signup
const MinPasswordLength = 6

// Gate checks PINs and passwords against their stored hashes
type Gate struct {
	cost   int
	logger coreport.Logger
}

// NewGate creates a Gate hashing with the given bcrypt cost.
// A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewGate(cost int, logger coreport.Logger) *Gate {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Gate{cost: cost, logger: logger}
}

// CheckFormat validates a PIN as entered
func (g *Gate) CheckFormat(pin string) error {
	pin = strings.TrimSpace(pin)
	if len(pin) != Length {
		return errs.ErrInvalidPINFormat
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return errs.ErrInvalidPINFormat
		}
	}
	return nil
}

// Verify compares the entered PIN with the stored one
func (g *Gate) Verify(stored, entered string) error {
	if err := g.CheckFormat(entered); err != nil {
		return err
	}
	if !g.matches(stored, strings.TrimSpace(entered)) {
		return errs.ErrIncorrectPIN
	}
	return nil
}

// Hash returns the bcrypt hash of a PIN
func (g *Gate) Hash(pin string) (string, error) {
	if err := g.CheckFormat(pin); err != nil {
		return "", err
	}
	return g.hash(strings.TrimSpace(pin))
}

// HashPassword returns the bcrypt hash of a password
func (g *Gate) HashPassword(password string) (string, error) {
	return g.hash(password)
}

// VerifyPassword compares a password with the stored one
func (g *Gate) VerifyPassword(stored, password string) bool {
	return password != "" && g.matches(stored, password)
}

// Prompt asks the prompter for the PIN of a submission and checks its format
func (g *Gate) Prompt(ctx context.Context, prompter usecase.PinPrompter, submission *entity.PaymentSubmission) (string, error) {
	if prompter == nil {
		return "", errs.ErrPINEntryCancelled
	}

	entered, err := prompter.PromptPIN(ctx, submission)
	if err != nil {
		if errors.Is(err, errs.ErrPINEntryCancelled) || errors.Is(err, context.Canceled) {
			return "", errs.ErrPINEntryCancelled
		}
		return "", err
	}
	return strings.TrimSpace(entered), nil
}

func (g *Gate) hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), g.cost)
	if err != nil {
		g.logger.Error("Failed to hash secret", map[string]any{"error": err.Error()})
		return "", err
	}
	return string(hashed), nil
}

// matches accepts bcrypt hashes and, for records created outside this
// service, plaintext values
func (g *Gate) matches(stored, entered string) bool {
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(entered)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(entered)) == 1
}
