package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Envelope is the body returned by every Zermelo API endpoint.
type Envelope struct {
	Response json.RawMessage `json:"response"`
}

// Int is an integer query parameter that may be unset.
type Int struct {
	Value int64
	Valid bool
}

func IntOf(v int64) Int {
	return Int{Value: v, Valid: true}
}

// ParseInt coerces s the way a loose integer cast does: leading whitespace,
// an optional sign and the leading digits are used, anything after them is
// dropped. A string without leading digits coerces to 0.
func ParseInt(s string) Int {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}

	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	if end == digits {
		return IntOf(0)
	}

	// on overflow ParseInt returns the clamped int64 bound
	v, _ := strconv.ParseInt(s[:end], 10, 64)

	return IntOf(v)
}

func (i Int) String() string {
	return strconv.FormatInt(i.Value, 10)
}

func (i *Int) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*i = Int{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch val := v.(type) {
	case json.Number:
		*i = parseNumber(val)
	case string:
		*i = ParseInt(val)
	case bool:
		if val {
			*i = IntOf(1)
		} else {
			*i = IntOf(0)
		}
	default:
		return fmt.Errorf("roster.Int: unexpected type %T", v)
	}

	return nil
}

// parseNumber coerces a JSON number like its string form. Exponent notation
// goes through float64 and is clamped to the int64 range.
func parseNumber(n json.Number) Int {
	if !strings.ContainsAny(n.String(), "eE") {
		return ParseInt(n.String())
	}

	f, err := n.Float64()
	if err != nil && !math.IsInf(f, 0) {
		return IntOf(0)
	}

	switch {
	case math.IsNaN(f):
		return IntOf(0)
	case f >= math.MaxInt64:
		return IntOf(math.MaxInt64)
	case f <= math.MinInt64:
		return IntOf(math.MinInt64)
	}

	return IntOf(int64(f))
}

func (i Int) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}

	return []byte(i.String()), nil
}
