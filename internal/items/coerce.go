package items

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrMalformedInput aborts the whole run: a required field is missing or
	// a value cannot be parsed into its declared numeric type.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnspecifiedTriState marks a neutral-drop value outside {"", "0", "1"}.
	ErrUnspecifiedTriState = errors.New("unspecified neutral-drop value")
)

type Kind uint8

const (
	KindInt Kind = iota + 1
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a bonus value as it was encoded in the feed.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

func StringValue(v string) Value { return Value{kind: KindString, s: v} }

func (v Value) Kind() Kind { return v.kind }

// ValueOf classifies a JSON value. Numbers written with a fraction or an
// exponent are floats; everything else numeric is an integer.
func ValueOf(r gjson.Result) (Value, error) {
	switch r.Type {
	case gjson.Number:
		if strings.ContainsAny(r.Raw, ".eE") {
			return FloatValue(r.Float()), nil
		}
		i, err := strconv.ParseInt(r.Raw, 10, 64)
		if err != nil {
			return FloatValue(r.Float()), nil
		}
		return IntValue(i), nil
	case gjson.String:
		return StringValue(r.Str), nil
	default:
		return Value{}, fmt.Errorf("%w: expected number or numeric string, got %s", ErrMalformedInput, describe(r))
	}
}

// Int resolves the value for an integer field. Floats truncate toward zero.
func (v Value) Int() (int, error) {
	switch v.kind {
	case KindInt:
		return int(v.i), nil
	case KindFloat:
		if v.f < float64(math.MinInt) || v.f >= float64(math.MaxInt) {
			return 0, fmt.Errorf("%w: %g is out of integer range", ErrMalformedInput, v.f)
		}
		return int(v.f), nil
	case KindString:
		n, err := strconv.Atoi(v.s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformedInput, v.s)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: empty value", ErrMalformedInput)
	}
}

// Float resolves the value for a floating-point field.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindInt:
		return float64(v.i), nil
	case KindFloat:
		return v.f, nil
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedInput, v.s)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: empty value", ErrMalformedInput)
	}
}

// Percent resolves a percentage-like field to a ratio.
func (v Value) Percent() (float64, error) {
	f, err := v.Float()
	if err != nil {
		return 0, err
	}
	return f / 100, nil
}

func describe(r gjson.Result) string {
	if !r.Exists() {
		return "nothing"
	}
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.True, gjson.False:
		return "bool"
	case gjson.JSON:
		if r.IsArray() {
			return "array"
		}
		return "object"
	default:
		return r.Type.String()
	}
}
