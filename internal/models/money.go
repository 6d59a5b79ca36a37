package models

import "math"

// Money is a fixed-point currency amount in minor units (cents).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney converts a major-unit float (e.g. 12.90) to Money.
func NewMoney(amount float64, currency string) Money {
	return Money{
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
	}
}

// ToFloat returns the amount in major units.
func (m Money) ToFloat() float64 {
	return float64(m.Amount) / 100
}

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(qty int) Money {
	return Money{Amount: m.Amount * int64(qty), Currency: m.Currency}
}

// Add sums two amounts. Currencies are expected to match; the caller
// validates mixed-currency carts before arithmetic.
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}
