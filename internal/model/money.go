package model

import "github.com/shopspring/decimal"

// FormatMinor renders a minor-unit amount as a two-decimal major-unit string,
// e.g. 650 -> "6.50", -45 -> "-0.45".
func FormatMinor(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
