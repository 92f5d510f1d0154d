package common

import "math"

// ComputeLedger splits a gross booking amount into the platform fee
// retained on payout and the artist's net share. Amounts are rounded
// to cents with the fee absorbing the remainder, so
// fee + net == total always holds.
func ComputeLedger(total float64, rate float64) (fee float64, net float64) {
	fee = math.Round(total*rate*100) / 100
	net = math.Round((total-fee)*100) / 100
	fee = total - net
	return fee, net
}
