// README: Commission split math; runs exactly once per order, at delivery.
package payout

import "fleet/internal/types"

// Split derives the platform commission and courier payout from an order
// total. Commission is rounded half-up to a whole minor unit; the payout is
// the exact remainder, so commission + payout always equals the total.
func Split(total types.Money, rate float64) (commission, courierPayout types.Money) {
	commission = types.Money{
		Amount:   types.RoundHalfUpMinor(float64(total.Amount) * rate),
		Currency: total.Currency,
	}
	return commission, total.Sub(commission)
}
