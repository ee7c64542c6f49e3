package gateway

import "strings"

// walletCountries routes to the wallet-based gateway unconditionally: these
// markets run on local wallet rails regardless of card configuration.
var walletCountries = map[string]struct{}{
	"EG": {}, "SA": {}, "AE": {}, "JO": {}, "KW": {},
	"QA": {}, "BH": {}, "OM": {}, "LB": {}, "IQ": {},
}

// cardCountries is the broad allow-list for the card-based gateway.
var cardCountries = map[string]struct{}{
	"US": {}, "CA": {}, "GB": {}, "IE": {}, "AU": {}, "NZ": {},
	"DE": {}, "FR": {}, "ES": {}, "IT": {}, "NL": {}, "BE": {},
	"AT": {}, "PT": {}, "SE": {}, "NO": {}, "DK": {}, "FI": {},
	"CH": {}, "PL": {}, "CZ": {}, "JP": {}, "SG": {}, "HK": {},
}

// RouterConfig controls the card-gateway fallback. CardEnabled should be true
// only when the card provider carries a non-empty secret; with it false every
// card-list country falls back to the wallet gateway.
type RouterConfig struct {
	CardEnabled bool
}

// Router maps a country code to the payment gateway that should bill it.
// Pure function over static tables and the configuration captured at
// construction; no side effects, no I/O.
type Router struct {
	cardEnabled bool
}

func NewRouter(cfg RouterConfig) *Router {
	return &Router{cardEnabled: cfg.CardEnabled}
}

// Select returns the gateway for a country code. Wallet-region countries map
// to the wallet gateway unconditionally; card-list countries map to the card
// gateway only while it is configured; everything else, including unknown
// codes, defaults to the wallet gateway.
func (r *Router) Select(countryCode string) Provider {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))

	if _, ok := walletCountries[cc]; ok {
		return ProviderPaymob
	}
	if _, ok := cardCountries[cc]; ok && r.cardEnabled {
		return ProviderPaddle
	}
	return ProviderPaymob
}

// WalletCountries returns the wallet-region country codes; used by tests and
// the pricing page to advertise local payment methods.
func WalletCountries() []string {
	out := make([]string, 0, len(walletCountries))
	for cc := range walletCountries {
		out = append(out, cc)
	}
	return out
}

// CardCountries returns the card allow-list country codes.
func CardCountries() []string {
	out := make([]string, 0, len(cardCountries))
	for cc := range cardCountries {
		out = append(out, cc)
	}
	return out
}
