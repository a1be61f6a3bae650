package sim

import (
	"strings"

	"github.com/rustyeddy/dwxconnect/market"
)

// splitPair splits a six letter FX symbol such as "EURUSD" into base and
// quote. Broker suffixes ("EURUSD.m") are ignored.
func splitPair(symbol string) (base, quote string, ok bool) {
	if len(symbol) < 6 {
		return "", "", false
	}
	s := strings.ToUpper(symbol[:6])
	return s[:3], s[3:], true
}

// quoteToAccountRate converts an amount in symbol's quote currency into the
// account currency using the latest prices. Symbols that are not FX pairs,
// and crosses with no priced conversion pair, convert at 1.
func quoteToAccountRate(symbol, account string, prices map[string]market.Tick) float64 {
	base, quote, ok := splitPair(symbol)
	if !ok || quote == account {
		return 1
	}

	// USDJPY on a USD account: JPY per USD, inverted.
	if base == account {
		if tk, ok := prices[symbol]; ok && tk.Mid() > 0 {
			return 1 / tk.Mid()
		}
		return 1
	}

	// Crosses: look for QUOTEACCOUNT or ACCOUNTQUOTE.
	if tk, ok := prices[quote+account]; ok && tk.Mid() > 0 {
		return tk.Mid()
	}
	if tk, ok := prices[account+quote]; ok && tk.Mid() > 0 {
		return 1 / tk.Mid()
	}
	return 1
}
