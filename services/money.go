package services

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to cents; for the non-negative amounts
// handled here that is half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns round2(amount * rate / 100).
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate).Div(hundred))
}

func validPercent(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}
