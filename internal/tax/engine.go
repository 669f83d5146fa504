// Package tax computes VAT totals for invoice lines and resolves invoice status
// from payment totals. Everything here is pure: no I/O, no rounding, no clocks.
package tax

import (
	"invoicetool/internal/model"

	"github.com/shopspring/decimal"
)

// Breakdown accumulates base and tax for one (declared category, declared rate) pair.
type Breakdown struct {
	Category model.TaxCategory `json:"category"`
	Rate     decimal.Decimal   `json:"rate"`
	Base     decimal.Decimal   `json:"base"`
	Tax      decimal.Decimal   `json:"tax"`
}

// Totals is the engine result. Amounts are unrounded; round only when presenting.
type Totals struct {
	Net       decimal.Decimal `json:"total_net"`
	Tax       decimal.Decimal `json:"total_tax"`
	Breakdown []Breakdown     `json:"breakdown"`
}

// Gross returns Net + Tax.
func (t Totals) Gross() decimal.Decimal {
	return t.Net.Add(t.Tax)
}

// ZeroRated reports whether category always yields zero tax, whatever rate was stored.
func ZeroRated(category model.TaxCategory) bool {
	switch category {
	case model.TaxReverseCharge, model.TaxEUSupply, model.TaxExport, model.TaxZero:
		return true
	}
	return false
}

// EffectiveRate is the rate actually applied to a line.
func EffectiveRate(line model.InvoiceLine) decimal.Decimal {
	if ZeroRated(line.TaxCategory) {
		return decimal.Zero
	}
	return line.TaxRate
}

// Compute sums net and tax over lines and groups them by declared category and rate.
// Breakdown entries appear in the order their key first occurs in lines.
func Compute(lines []model.InvoiceLine) Totals {
	totals := Totals{Net: decimal.Zero, Tax: decimal.Zero}
	index := make(map[breakdownKey]int)

	for _, line := range lines {
		base := line.Base()
		amount := base.Mul(EffectiveRate(line))
		totals.Net = totals.Net.Add(base)
		totals.Tax = totals.Tax.Add(amount)

		// String() drops trailing zeros, so 0.19 and 0.190 share a key
		key := breakdownKey{category: line.TaxCategory, rate: line.TaxRate.String()}
		i, ok := index[key]
		if !ok {
			i = len(totals.Breakdown)
			index[key] = i
			totals.Breakdown = append(totals.Breakdown, Breakdown{
				Category: line.TaxCategory,
				Rate:     line.TaxRate,
				Base:     decimal.Zero,
				Tax:      decimal.Zero,
			})
		}
		totals.Breakdown[i].Base = totals.Breakdown[i].Base.Add(base)
		totals.Breakdown[i].Tax = totals.Breakdown[i].Tax.Add(amount)
	}
	return totals
}

type breakdownKey struct {
	category model.TaxCategory
	rate     string
}
