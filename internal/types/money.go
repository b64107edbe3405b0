// README: Common money value object used across modules (minor units).
package types

import "math"

type Money struct {
	Amount   int64
	Currency string
}

// Sub returns a - b. Currencies are assumed to match; the engine runs
// single-currency per deployment.
func (a Money) Sub(b Money) Money {
	return Money{Amount: a.Amount - b.Amount, Currency: a.Currency}
}

// RoundHalfUpMinor rounds a fractional minor-unit value to the nearest
// whole minor unit, halves away from zero. This is the single rounding
// rule for all money math so commission amounts stay reproducible.
func RoundHalfUpMinor(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
