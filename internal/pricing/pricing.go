// Package pricing computes order totals in integer minor currency units.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Line struct {
	UnitPrice int64
	Quantity  int
}

func (l Line) Amount() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Total sums every line. Negative quantities count as zero.
func Total(lines ...Line) int64 {
	var total int64
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		total += l.Amount()
	}
	return total
}

var symbols = map[string]string{
	"usd": "$",
	"cad": "CA$",
	"aud": "A$",
	"gbp": "£",
	"eur": "€",
}

// Format renders a minor-unit amount for display, e.g. 5000 "usd" -> "$50.00".
func Format(amount int64, currency string) string {
	value := decimal.New(amount, -2).StringFixed(2)
	currency = strings.ToLower(currency)
	if symbol, ok := symbols[currency]; ok {
		if strings.HasPrefix(value, "-") {
			return "-" + symbol + strings.TrimPrefix(value, "-")
		}
		return symbol + value
	}
	return value + " " + strings.ToUpper(currency)
}
