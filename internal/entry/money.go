package entry

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatAmount renders amount in currency, e.g. "$1,500.00" for USD.
// Amounts are rounded half away from zero to the currency's minor unit.
// Unknown currency codes fall back to "<amount> <code>".
func FormatAmount(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.String() + " " + currency
	}

	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

// FormatFloat is FormatAmount for a stored entry amount.
func FormatFloat(amount float64, currency string) string {
	return FormatAmount(decimal.NewFromFloat(amount), currency)
}
