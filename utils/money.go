package utils

import "github.com/shopspring/decimal"

// PaymentEpsilon tolerates 2dp rounding drift when deciding whether an amount
// settles a total.
var PaymentEpsilon = decimal.NewFromFloat(0.01)

// Round2 rounds half-up to 2 fractional digits. All monetary amounts pass
// through here before being stored or compared.
func Round2(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// ClampNonNegative floors an amount at zero.
func ClampNonNegative(x decimal.Decimal) decimal.Decimal {
	if x.IsNegative() {
		return decimal.Zero
	}
	return x
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// IsSettled reports whether paid covers total within PaymentEpsilon.
func IsSettled(paid, total decimal.Decimal) bool {
	return total.Sub(paid).LessThanOrEqual(PaymentEpsilon)
}
