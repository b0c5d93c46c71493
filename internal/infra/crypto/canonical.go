package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

var ErrNotCanonicalizable = errors.New("value cannot be canonicalized")

// Canonicalize returns the RFC 8785 (JCS) form of v. Raw JSON input ([]byte or
// json.RawMessage) is parsed first; any other value goes through encoding/json.
func Canonicalize(v any) ([]byte, error) {
	var raw []byte
	switch value := v.(type) {
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotCanonicalizable, err)
		}
		raw = encoded
	}
	return CanonicalizeJSON(raw)
}

func CanonicalizeJSON(input []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrNotCanonicalizable, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrNotCanonicalizable)
	}

	var enc canonicalEncoder
	if err := enc.value(value); err != nil {
		return nil, err
	}
	return enc.buf.Bytes(), nil
}

type canonicalEncoder struct {
	buf bytes.Buffer
}

func (e *canonicalEncoder) value(v any) error {
	switch value := v.(type) {
	case nil:
		e.buf.WriteString("null")
	case bool:
		e.buf.WriteString(strconv.FormatBool(value))
	case string:
		e.string(value)
	case json.Number:
		f, err := strconv.ParseFloat(value.String(), 64)
		if err != nil {
			return fmt.Errorf("%w: number %q: %v", ErrNotCanonicalizable, value, err)
		}
		if err := checkExactInteger(value.String(), f); err != nil {
			return err
		}
		num, err := formatNumber(f)
		if err != nil {
			return err
		}
		e.buf.WriteString(num)
	case map[string]any:
		return e.object(value)
	case []any:
		e.buf.WriteByte('[')
		for i, item := range value {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			if err := e.value(item); err != nil {
				return err
			}
		}
		e.buf.WriteByte(']')
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrNotCanonicalizable, v)
	}
	return nil
}

func (e *canonicalEncoder) object(obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// JCS orders members by their UTF-16 code units.
	sort.Slice(keys, func(i, j int) bool {
		return lessUTF16(keys[i], keys[j])
	})

	e.buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.string(k)
		e.buf.WriteByte(':')
		if err := e.value(obj[k]); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

func (e *canonicalEncoder) string(s string) {
	e.buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			e.buf.WriteByte('\\')
			e.buf.WriteRune(r)
		case r == '\b':
			e.buf.WriteString(`\b`)
		case r == '\f':
			e.buf.WriteString(`\f`)
		case r == '\n':
			e.buf.WriteString(`\n`)
		case r == '\r':
			e.buf.WriteString(`\r`)
		case r == '\t':
			e.buf.WriteString(`\t`)
		case r < 0x20:
			e.buf.WriteString(`\u00`)
			e.buf.WriteByte(hexDigits[r>>4])
			e.buf.WriteByte(hexDigits[r&0x0f])
		default:
			e.buf.WriteRune(r)
		}
	}
	e.buf.WriteByte('"')
}

func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

// checkExactInteger rejects integer literals that float64 cannot hold exactly
// (beyond 2^53 in magnitude); canonicalizing them would map distinct values to
// the same bytes.
func checkExactInteger(literal string, f float64) error {
	if strings.ContainsAny(literal, ".eE") {
		return nil
	}
	want, ok := new(big.Int).SetString(literal, 10)
	if !ok {
		return fmt.Errorf("%w: number %q", ErrNotCanonicalizable, literal)
	}
	got, _ := big.NewFloat(f).Int(nil)
	if got.Cmp(want) != 0 {
		return fmt.Errorf("%w: integer %s is not exactly representable as an IEEE 754 double", ErrNotCanonicalizable, literal)
	}
	return nil
}

// formatNumber renders f the way ECMAScript Number.prototype.toString does.
func formatNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: non-finite number", ErrNotCanonicalizable)
	}
	if f == 0 {
		return "0", nil
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expPart, ok := strings.Cut(sci, "e")
	if !ok {
		return "", fmt.Errorf("%w: unexpected float format %q", ErrNotCanonicalizable, sci)
	}
	exp, err := strconv.Atoi(expPart)
	if err != nil {
		return "", fmt.Errorf("%w: float exponent: %v", ErrNotCanonicalizable, err)
	}
	digits := strings.Replace(mantissa, ".", "", 1)

	if exp < -6 || exp >= 21 {
		out := digits[:1]
		if len(digits) > 1 {
			out += "." + digits[1:]
		}
		expSign := "+"
		if exp < 0 {
			expSign = "-"
			exp = -exp
		}
		return sign + out + "e" + expSign + strconv.Itoa(exp), nil
	}

	point := exp + 1
	switch {
	case point >= len(digits):
		return sign + digits + strings.Repeat("0", point-len(digits)), nil
	case point <= 0:
		return sign + "0." + strings.Repeat("0", -point) + digits, nil
	default:
		return sign + digits[:point] + "." + digits[point:], nil
	}
}
