package util

import "math"

// RoundMoney rounds an amount to 2 decimal places. Money is stored as
// float64 with rounding applied at write time, matching the persisted format.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
