package gridcapacity

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a float64 that decodes leniently from upstream JSON. Numbers,
// numeric strings ("1,204.5", "87%") and null are accepted; anything else
// decodes to 0 without an error.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		value, _ := ParseNumber(s)
		*n = Number(value)
		return nil
	}
	value, _ := ParseNumber(json.Number(data))
	*n = Number(value)
	return nil
}

// Float64 returns the value as float64.
func (n Number) Float64() float64 { return float64(n) }

// Ptr returns a pointer to the value as float64.
func (n Number) Ptr() *float64 {
	v := float64(n)
	return &v
}

// ParseNumber converts a loosely typed value to a finite float64.
// It returns 0 and false when the value is missing or unparseable.
func ParseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case Number:
		return finite(float64(v))
	case *float64:
		if v == nil {
			return 0, false
		}
		return finite(*v)
	case json.Number:
		return parseNumericString(string(v))
	case string:
		return parseNumericString(v)
	default:
		return 0, false
	}
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		return finite(f)
	}
	f, _ := d.Float64()
	return finite(f)
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	f, _ := finite(v)
	return f
}

// RoundTo rounds half-up (towards positive infinity) to the given number of
// decimal places. Non-finite values round to 0.
func RoundTo(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return RoundDecimal(decimal.NewFromFloat(value), places)
}

// RoundDecimal rounds d half-up to places and converts it to float64.
func RoundDecimal(d decimal.Decimal, places int32) float64 {
	half := decimal.New(5, -(places + 1))
	f, _ := d.Add(half).RoundFloor(places).Float64()
	return f
}

// Round1 rounds half-up to one decimal place.
func Round1(value float64) float64 { return RoundTo(value, 1) }
