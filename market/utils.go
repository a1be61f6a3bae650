package market

import (
	"fmt"
	"strings"
)

// KeySeparator joins symbol and timeframe in bar and historic data keys.
const KeySeparator = "_"

// Key builds the "SYMBOL_TIMEFRAME" key used by the bar and historic data files.
func Key(symbol, timeframe string) string {
	return symbol + KeySeparator + timeframe
}

// SplitKey recovers symbol and timeframe from a "SYMBOL_TIMEFRAME" key. The
// split happens at the last separator, since timeframes never contain one
// but some broker symbols do.
func SplitKey(key string) (symbol, timeframe string, ok bool) {
	i := strings.LastIndex(key, KeySeparator)
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// TFStringToSeconds returns the width of a terminal timeframe such as "M15".
func TFStringToSeconds(tf string) (int32, error) {
	switch tf {
	case "M1":
		return 60, nil
	case "M5":
		return 300, nil
	case "M15":
		return 900, nil
	case "M30":
		return 1800, nil
	case "H1":
		return 3600, nil
	case "H4":
		return 14400, nil
	case "D1":
		return 86400, nil
	case "W1":
		return 604800, nil
	case "MN1":
		return 2592000, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe string: %s", tf)
	}
}

// Subscription is one (symbol, timeframe) pair for bar data.
type Subscription struct {
	Symbol    string `json:"symbol" yaml:"symbol"`
	Timeframe string `json:"timeframe" yaml:"timeframe"`
}

func (s Subscription) Key() string { return Key(s.Symbol, s.Timeframe) }
