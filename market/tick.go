package market

// Tick is the latest bid/ask the terminal published for one symbol.
type Tick struct {
	Symbol string  `json:"symbol,omitempty"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// SameQuote reports whether two ticks carry the same bid/ask pair.
func (t Tick) SameQuote(o Tick) bool {
	return t.Bid == o.Bid && t.Ask == o.Ask
}
