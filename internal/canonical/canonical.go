// Package canonical normalizes BOM records and serializes them into the
// compact, key-sorted, ASCII-only form that content signatures are hashed
// over. Logically identical records must serialize identically regardless
// of attribute key order or numeric literal spelling; semantically
// different records must not.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns a canonical copy of a JSON-like value tree:
//
//   - maps are copied (key ordering is applied at serialization time)
//   - lists preserve order
//   - booleans and nil pass through unchanged
//   - integers pass through unchanged
//   - floats and numeric literals collapse to canonical decimal text,
//     carried as json.Number so 2, 2.0 and 2.00 become indistinguishable
//   - strings are NFC normalized
//
// Returns an error for values that cannot appear in a canonical payload
// (channels, funcs, non-finite floats).
func Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		return norm.NFC.String(v), nil
	case int:
		return json.Number(Number(v)), nil
	case int64:
		return json.Number(Number(v)), nil
	case json.Number:
		return json.Number(Number(v)), nil
	case float64:
		if !isFinite(v) {
			return nil, fmt.Errorf("non-finite number %v is not canonicalizable", v)
		}
		return json.Number(FloatText(v)), nil
	case float32:
		return Normalize(float64(v))
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			normalized, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = normalized
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			normalized, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", key, err)
			}
			out[norm.NFC.String(key)] = normalized
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type for canonical form: %T", value)
	}
}

// Marshal serializes a canonical value tree as compact, key-sorted,
// ASCII-only JSON. The input is normalized first, so callers may pass raw
// attribute maps directly.
func Marshal(value any) ([]byte, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeValue(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(v.String())
	case string:
		writeString(buf, v)
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, key)
			buf.WriteByte(':')
			if err := writeValue(buf, v[key]); err != nil {
				return fmt.Errorf("value for key %q: %w", key, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported canonical value type: %T", value)
	}
	return nil
}

// writeString emits a JSON string with every non-ASCII rune escaped, so
// the serialized payload is pure ASCII regardless of attribute content.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			switch {
			case r < 0x20:
				fmt.Fprintf(buf, `\u%04x`, r)
			case r < 0x80:
				buf.WriteByte(byte(r))
			case r > 0xffff:
				// Astral plane runes escape as a UTF-16 surrogate pair.
				r -= 0x10000
				fmt.Fprintf(buf, `\u%04x\u%04x`, 0xd800+(r>>10), 0xdc00+(r&0x3ff))
			default:
				fmt.Fprintf(buf, `\u%04x`, r)
			}
		}
	}
	buf.WriteByte('"')
}
