// Package money holds the rounding and formatting rules for currency amounts.
package money

import (
	"github.com/shopspring/decimal"
)

// Places is the number of decimals kept on monetary totals.
const Places = 2

// Symbol prefixes formatted amounts.
const Symbol = "Bs."

// Round rounds an amount to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds the given amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Format renders an amount the way receipts and summaries print it, e.g. "Bs. 12.50".
func Format(d decimal.Decimal) string {
	return Symbol + " " + d.StringFixed(Places)
}

// Average divides total by count, returning zero for an empty set.
func Average(total decimal.Decimal, count int) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return Round(total.Div(decimal.NewFromInt(int64(count))))
}
