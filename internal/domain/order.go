package domain

import (
	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the number of decimal places between the display
// amount and the provider's smallest currency unit (rupees -> paise).
const MinorUnitExponent = 2

type Order struct {
	OrderID     string
	Amount      decimal.Decimal
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// ToMinorUnits scales a display amount into provider minor units. Amounts
// with more precision than a minor unit are rejected rather than rounded.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(MinorUnitExponent)
	if !minor.IsInteger() {
		return 0, E(KindInvalidAmount, "Amount has more than two decimal places")
	}
	return minor.IntPart(), nil
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorUnitExponent)
}

// ValidateAmount checks 0 < amount <= max.
func ValidateAmount(amount, max decimal.Decimal) error {
	if !amount.IsPositive() {
		return E(KindInvalidAmount, "Amount must be greater than zero")
	}
	if amount.GreaterThan(max) {
		return E(KindInvalidAmount, "Amount exceeds the maximum of "+max.String())
	}
	if _, err := ToMinorUnits(amount); err != nil {
		return err
	}
	return nil
}
