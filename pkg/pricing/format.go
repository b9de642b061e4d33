package pricing

import "github.com/shopspring/decimal"

// FormatAmount renders an amount with two decimals for display.
func FormatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
