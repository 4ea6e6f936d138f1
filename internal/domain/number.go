package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a ledger quantity or amount. It decodes leniently: JSON numbers
// and numeric strings are accepted, anything else decodes to zero.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			*n = 0
			return nil
		}
		*n = Number(ParseNumber(raw))
		return nil
	}
	*n = Number(ParseNumber(string(data)))
	return nil
}

func (n Number) Float() float64 {
	return float64(n)
}

func (n Number) Decimal() decimal.Decimal {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func NumberFromDecimal(d decimal.Decimal) Number {
	f, _ := d.Float64()
	return Number(f)
}

// ParseNumber converts raw input to a float, returning 0 for anything that
// is not a finite decimal.
func ParseNumber(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	raw = strings.ReplaceAll(raw, ",", "")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// CoerceNumber is ParseNumber for values taken out of a decoded document.
func CoerceNumber(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		return ParseNumber(val.String())
	case Number:
		return float64(val)
	case string:
		return ParseNumber(val)
	default:
		return 0
	}
}
