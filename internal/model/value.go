package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
	KindBool
)

// Value is a single cell of a row. Columns vary per worksheet template, so a
// row stores one of these per column key instead of a fixed struct.
type Value struct {
	kind ValueKind
	num  decimal.Decimal
	text string
	b    bool

	// raw marks text that holds a nested JSON object or array verbatim.
	raw bool
}

func Null() Value                    { return Value{} }
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }
func Text(s string) Value            { return Value{kind: KindText, text: s} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }

func NumberFromInt(n int64) Value { return Number(decimal.NewFromInt(n)) }

// RawJSON wraps a nested object or array as text. It reads like any other
// text cell and is written back unchanged.
func RawJSON(raw string) Value { return Value{kind: KindText, text: raw, raw: true} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

// Decimal coerces the value to a number. Numeric text counts as a number;
// booleans, non-numeric text and null do not.
func (v Value) Decimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		d, err := decimal.NewFromString(strings.TrimSpace(v.text))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return v.num.String()
	case KindText:
		return v.text
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num.Equal(other.num)
	case KindText:
		return v.text == other.text && v.raw == other.raw
	case KindBool:
		return v.b == other.b
	default:
		return true
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindText:
		if v.raw {
			return []byte(v.text), nil
		}
		return json.Marshal(v.text)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	parsed, err := valueFromToken(tok)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func valueFromToken(tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return Null(), fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(d), nil
	default:
		return Null(), fmt.Errorf("unsupported row value %v", tok)
	}
}
