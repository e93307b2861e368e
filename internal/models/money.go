package models

import "github.com/shopspring/decimal"

// RoundMoney rounds an amount to 2 decimals (half away from zero) for display.
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatMoney renders an amount with exactly 2 decimals, e.g. "270.00".
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// ToMinorUnits converts a major-unit amount (kr) to integer minor units (öre).
func ToMinorUnits(v float64) int64 {
	return decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
}
