package plan

import "strings"

// LocalPricing is the per-country price view consumed by the pricing page.
// Amounts are in the smallest unit of Currency, keyed by plan id. The
// zero-price plan is always present with amount 0.
type LocalPricing struct {
	Country  string
	Currency string
	Amounts  map[string]int64
}

// localPriceTable holds the static regional price points. Countries absent
// from the table fall back to the catalog's base (USD) prices. No currency
// conversion happens at runtime: every row is a deliberately chosen price.
type localPriceRow struct {
	currency string
	amounts  map[string]int64 // plan id -> amount in minor units
}

var localPriceTable = map[string]localPriceRow{
	"EG": {currency: "EGP", amounts: map[string]int64{"pro": 49900, "business": 129900}},
	"SA": {currency: "SAR", amounts: map[string]int64{"pro": 7500, "business": 18900}},
	"AE": {currency: "AED", amounts: map[string]int64{"pro": 6900, "business": 17900}},
	"JO": {currency: "JOD", amounts: map[string]int64{"pro": 1390, "business": 3490}},
	"KW": {currency: "KWD", amounts: map[string]int64{"pro": 590, "business": 1490}},
	"QA": {currency: "QAR", amounts: map[string]int64{"pro": 6900, "business": 17900}},
	"GB": {currency: "GBP", amounts: map[string]int64{"pro": 1500, "business": 3900}},
	"DE": {currency: "EUR", amounts: map[string]int64{"pro": 1800, "business": 4500}},
	"FR": {currency: "EUR", amounts: map[string]int64{"pro": 1800, "business": 4500}},
	"ES": {currency: "EUR", amounts: map[string]int64{"pro": 1800, "business": 4500}},
	"IT": {currency: "EUR", amounts: map[string]int64{"pro": 1800, "business": 4500}},
	"NL": {currency: "EUR", amounts: map[string]int64{"pro": 1800, "business": 4500}},
}

// LocalPricing resolves the price list for a country. Pure function over the
// static table and the seeded catalog; no I/O. Unknown countries get the
// catalog's base prices.
func (r *Registry) LocalPricing(countryCode string) LocalPricing {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))

	row, ok := localPriceTable[cc]
	if !ok {
		base := LocalPricing{
			Country:  cc,
			Currency: r.LowestTier().Price.Currency,
			Amounts:  make(map[string]int64, len(r.byTier)),
		}
		for _, p := range r.byTier {
			base.Amounts[p.ID] = p.Price.Amount
		}
		return base
	}

	local := LocalPricing{
		Country:  cc,
		Currency: row.currency,
		Amounts:  make(map[string]int64, len(r.byTier)),
	}
	for _, p := range r.byTier {
		if p.IsFree() {
			local.Amounts[p.ID] = 0
			continue
		}
		if amount, ok := row.amounts[p.ID]; ok {
			local.Amounts[p.ID] = amount
		} else {
			local.Amounts[p.ID] = p.Price.Amount
		}
	}
	return local
}
