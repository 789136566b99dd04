package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidRate is returned when an exchange rate is zero or negative.
	ErrInvalidRate = errors.New("money: invalid exchange rate")
	// ErrNegativeAmount is returned when a monetary amount is negative.
	ErrNegativeAmount = errors.New("money: negative amount")
)

// ToLocal converts a USD amount to local currency at the given rate.
// Rounding is half-up to 2 decimal places (decimal.Round, half away from
// zero; amounts here are never negative so the two policies coincide).
func ToLocal(amountUSD, rate decimal.Decimal) (decimal.Decimal, error) {
	if rate.Sign() <= 0 {
		return decimal.Zero, ErrInvalidRate
	}
	return amountUSD.Mul(rate).Round(2), nil
}

// Round2 rounds an amount to 2 decimal places, half-up.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// EnsureNonNegative validates that an amount is zero or positive.
func EnsureNonNegative(amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return nil
}
