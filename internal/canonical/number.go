package canonical

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number renders a numeric value as canonical decimal text: no exponent,
// no insignificant trailing zeros, integral values collapse to integer
// text. 2, 2.0 and 2.00 all render as "2"; 2.50 renders as "2.5".
//
// Non-numeric input falls back to its literal text so callers can use the
// output as a deterministic sort key without pre-validating.
func Number(value any) string {
	switch v := value.(type) {
	case json.Number:
		return normalizeDecimal(v.String())
	case float64:
		return FloatText(v)
	case float32:
		return FloatText(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return normalizeDecimal(v)
	default:
		if f, ok := AsFloat(value); ok {
			return FloatText(f)
		}
		return strings.TrimSpace(strconvAny(value))
	}
}

// FloatText renders a float64 as canonical decimal text.
func FloatText(f float64) string {
	return normalizeDecimal(strconv.FormatFloat(f, 'f', -1, 64))
}

// normalizeDecimal rewrites a decimal literal into canonical form. Inputs
// that are not decimal literals are returned unchanged.
func normalizeDecimal(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	// Exponent forms go through float parsing to get plain decimal text.
	if strings.ContainsAny(text, "eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return text
		}
		text = strconv.FormatFloat(f, 'f', -1, 64)
	}
	neg := strings.HasPrefix(text, "-")
	body := strings.TrimPrefix(strings.TrimPrefix(text, "-"), "+")
	if body == "" || !isDecimal(body) {
		return text
	}

	intPart, fracPart, hasDot := strings.Cut(body, ".")
	intPart = strings.TrimLeft(intPart, "0")
	if hasDot {
		fracPart = strings.TrimRight(fracPart, "0")
	}
	if intPart == "" {
		intPart = "0"
	}
	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

func isDecimal(s string) bool {
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return s != "." && s != ""
}

// AsFloat coerces a JSON-like scalar to float64. Strings holding decimal
// literals are accepted; booleans, maps, lists and nil are not.
func AsFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, isFinite(v)
	case float32:
		return float64(v), isFinite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil && isFinite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil && isFinite(f)
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func strconvAny(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
