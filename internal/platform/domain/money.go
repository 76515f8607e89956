package domain

import "fmt"

// CurrencyUSD is the only currency transfers are priced in.
const CurrencyUSD = "USD"

// Cents is an amount in the minor unit of CurrencyUSD.
type Cents int64

// Amount returns the value in major units.
func (c Cents) Amount() float64 {
	return float64(c) / 100
}

// String formats the amount as "123.45".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// CentsFromAmount converts a major-unit amount to Cents, rounding half away from zero.
func CentsFromAmount(amount float64) Cents {
	if amount < 0 {
		return Cents(amount*100 - 0.5)
	}
	return Cents(amount*100 + 0.5)
}
