package broker

import "strconv"

// Account is the terminal's account_info object. It is kept as an opaque
// map and replaced wholesale on every orders file change; the getters read
// the well-known fields.
type Account map[string]any

func (a Account) Float(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func (a Account) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (a Account) Number() string      { return a.String("number") }
func (a Account) Name() string        { return a.String("name") }
func (a Account) Currency() string    { return a.String("currency") }
func (a Account) Leverage() float64   { return a.Float("leverage") }
func (a Account) Balance() float64    { return a.Float("balance") }
func (a Account) Equity() float64     { return a.Float("equity") }
func (a Account) FreeMargin() float64 { return a.Float("free_margin") }

// Clone returns a shallow copy so callers cannot mutate the stored snapshot.
func (a Account) Clone() Account {
	if a == nil {
		return nil
	}
	out := make(Account, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
