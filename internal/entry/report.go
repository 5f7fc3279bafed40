package entry

import (
	"github.com/shopspring/decimal"
)

// Totals aggregates a set of entries. Sums are exact decimals so repeated
// float amounts do not drift.
type Totals struct {
	Count   int             `json:"count"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Net     decimal.Decimal `json:"net"`
}

// Summarize totals entries by kind. Net is inflow minus outflow.
// Entries with a non-canonical kind are counted but not summed.
func Summarize(entries []Entry) Totals {
	t := Totals{
		Inflow:  decimal.Zero,
		Outflow: decimal.Zero,
	}
	for _, e := range entries {
		t.Count++
		amount := decimal.NewFromFloat(e.Amount)
		switch e.Kind {
		case KindInflow:
			t.Inflow = t.Inflow.Add(amount)
		case KindOutflow:
			t.Outflow = t.Outflow.Add(amount)
		}
	}
	t.Net = t.Inflow.Sub(t.Outflow)
	return t
}
