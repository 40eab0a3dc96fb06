package entity

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
)

// MaxDecimalPlaces defines the maximum number of decimal places allowed for money amounts.
// Amounts are stored as int64 minor units (kobo), 100 per naira.
const MaxDecimalPlaces = 2

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ValidateAndConvertAmount parses a decimal amount string into minor units.
// "20000" -> 2000000, "1.5" -> 150. Signs, exponents, separators, currency
// symbols and more than two decimal places are rejected.
func ValidateAndConvertAmount(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if len(amount) == 0 {
		return 0, fmt.Errorf("%w: empty value", errs.ErrInvalidAmount)
	}

	if strings.HasPrefix(amount, "-") {
		return 0, errs.ErrNegativeAmount
	}

	if strings.ContainsAny(amount, "eE+") {
		return 0, fmt.Errorf("%w: invalid number format", errs.ErrInvalidAmount)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidAmount, err.Error())
	}

	return AmountFromDecimal(value)
}

// AmountFromDecimal converts a decimal value into minor units
func AmountFromDecimal(value decimal.Decimal) (int64, error) {
	if value.IsNegative() {
		return 0, errs.ErrNegativeAmount
	}

	minor := value.Shift(MaxDecimalPlaces)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: maximum %d decimal places allowed", errs.ErrInvalidAmount, MaxDecimalPlaces)
	}
	if minor.GreaterThan(maxMinorUnits) {
		return 0, errs.ErrAmountOverflow
	}

	return minor.IntPart(), nil
}

// AmountToDecimal converts minor units back to a decimal value
func AmountToDecimal(amountInMinor int64) decimal.Decimal {
	return decimal.New(amountInMinor, -MaxDecimalPlaces)
}

// AmountToString formats minor units with exactly two decimal places:
// 1015 -> "10.15", 1000 -> "10.00", -1 -> "-0.01".
func AmountToString(amountInMinor int64) string {
	return AmountToDecimal(amountInMinor).StringFixed(MaxDecimalPlaces)
}

// AddAmounts adds two minor-unit amounts, failing instead of wrapping around
func AddAmounts(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, errs.ErrAmountOverflow
	}
	return a + b, nil
}
