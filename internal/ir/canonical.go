package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// This is the only serialization used for digests.
//
// Differences from json.Marshal:
//  1. object keys sorted by UTF-16 code units
//  2. no HTML escaping
//  3. strings NFC normalized
//  4. floats and null are errors
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case IRString:
		return writeCanonicalString(buf, string(val))
	case string:
		return writeCanonicalString(buf, val)
	case IRInt:
		fmt.Fprintf(buf, "%d", int64(val))
	case int64:
		fmt.Fprintf(buf, "%d", val)
	case int:
		fmt.Fprintf(buf, "%d", val)
	case uint64:
		fmt.Fprintf(buf, "%d", val)
	case IRBool:
		writeBool(buf, bool(val))
	case bool:
		writeBool(buf, val)
	case IRArray:
		return writeCanonicalArray(buf, val)
	case IRObject:
		return writeCanonicalObject(buf, val)
	case []any, map[string]any:
		irv, err := toIRValue(val)
		if err != nil {
			return err
		}
		return writeCanonical(buf, irv)
	case float64, float32:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteString("true")
		return
	}
	buf.WriteString("false")
}

func toIRValue(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden")
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case int64:
		return IRInt(val), nil
	case int:
		return IRInt(val), nil
	case uint64:
		return IRInt(int64(val)), nil
	case bool:
		return IRBool(val), nil
	case json.Number:
		return convertToIRValue(val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := toIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := toIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden")
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// writeCanonicalString writes s NFC normalized with only the escapes RFC
// 8785 requires: quote, backslash and control characters. U+2028 and U+2029
// are written literally, unlike encoding/json.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	s = norm.NFC.String(s)

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
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return nil
}

func writeCanonicalArray(buf *bytes.Buffer, arr IRArray) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeCanonicalObject(buf *bytes.Buffer, obj IRObject) error {
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// MarshalJSON writes the object in canonical form so stored payloads match
// digested payloads byte for byte.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// MarshalJSON writes the array in canonical form.
func (arr IRArray) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(arr)
}
