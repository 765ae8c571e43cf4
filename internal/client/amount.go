package client

import "github.com/shopspring/decimal"

// FormatAmount renders a monetary value with exactly two decimal places,
// rounding to the nearest cent. PayPal rejects values with more precision
// and float formatting drift would change the charged amount.
func FormatAmount(value float64) string {
	return decimal.NewFromFloat(value).Round(2).StringFixed(2)
}
