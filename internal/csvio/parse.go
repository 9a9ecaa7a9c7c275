package csvio

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/bomgraph/bomgraph/internal/canonical"
)

var (
	intPattern   = regexp.MustCompile(`^[+-]?\d+$`)
	floatPattern = regexp.MustCompile(`^[+-]?(\d+\.\d+|\d+\.|\.\d+)$`)
)

// ParseScalar infers a typed attribute value from a CSV cell. Empty cells
// parse to nil, "true"/"false" (any case) to bool, integer literals to
// int64, decimal literals to float64, and cells opening with '{' or '['
// to a decoded JSON tree. Anything else, JSON that fails to decode
// included, stays a string.
//
// JSON numbers decode as json.Number so the source literal survives into
// canonical hashing.
func ParseScalar(raw string) any {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	switch strings.ToLower(text) {
	case "true":
		return true
	case "false":
		return false
	}

	if intPattern.MatchString(text) {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
	}
	if floatPattern.MatchString(text) {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		decoder := json.NewDecoder(strings.NewReader(text))
		decoder.UseNumber()
		var value any
		if err := decoder.Decode(&value); err == nil {
			return value
		}
		return text
	}

	return text
}

// ParseQty parses a CSV quantity cell to a float. The second return is
// false for empty or non-numeric cells.
func ParseQty(raw string) (float64, bool) {
	value := ParseScalar(raw)
	if value == nil {
		return 0, false
	}
	return canonical.AsFloat(value)
}
