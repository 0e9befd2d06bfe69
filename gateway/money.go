package gateway

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents for USD). Every adapter
// receives amounts pre-converted to this unit; floats never cross the
// gateway boundary.
type Money struct {
	Amount   int64
	Currency string
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, errors.New("amount cannot be negative")
	}
	if currency == "" {
		return Money{}, errors.New("currency is required")
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// ParseMoney converts a major-unit decimal string ("10.99") into minor
// units exactly. Sub-cent precision is rejected rather than rounded.
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return Money{}, fmt.Errorf("amount %q has sub-cent precision", s)
	}
	return NewMoney(cents.IntPart(), currency)
}

// Major renders the amount back in major units for provider protocols that
// insist on decimal strings.
func (m Money) Major() string {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Major(), m.Currency)
}
