package attribute

import (
	"strconv"
	"strings"
	"time"

	"github.com/maruel/natural"
)

// Type is the comparison rule for a Value.
type Type uint8

const (
	TypeNumeric Type = iota
	TypeString
	TypeNatural
	TypeTime
)

func (t Type) String() string {
	switch t {
	case TypeNumeric:
		return "numeric"
	case TypeString:
		return "string"
	case TypeNatural:
		return "natural"
	case TypeTime:
		return "time"
	default:
		return "unknown"
	}
}

// Value is a comparable attribute value.
type Value struct {
	typ  Type
	num  int64
	str  string
	time time.Time
}

// Numeric returns a numeric value.
func Numeric(n int64) Value {
	return Value{typ: TypeNumeric, num: n}
}

// String returns a value compared lexically.
func String(s string) Value {
	return Value{typ: TypeString, str: s}
}

// Natural returns a string value compared in natural order ("file2" < "file10").
func Natural(s string) Value {
	return Value{typ: TypeNatural, str: s}
}

// Time returns a time value.
func Time(t time.Time) Value {
	return Value{typ: TypeTime, time: t}
}

// Type returns the comparison rule of v.
func (v Value) Type() Type {
	return v.typ
}

// Int returns the numeric payload, zero for other types.
func (v Value) Int() int64 {
	return v.num
}

// AsTime returns the time payload, the zero time for other types.
func (v Value) AsTime() time.Time {
	return v.time
}

// Compare returns -1, 0 or +1 as v sorts before, equal to or after o.
// Values of different types compare by type only.
func (v Value) Compare(o Value) int {
	if v.typ != o.typ {
		return cmpInt(int64(v.typ), int64(o.typ))
	}

	switch v.typ {
	case TypeNumeric:
		return cmpInt(v.num, o.num)
	case TypeString:
		return strings.Compare(v.str, o.str)
	case TypeNatural:
		return compareNatural(v.str, o.str)
	case TypeTime:
		return v.time.Compare(o.time)
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.typ {
	case TypeNumeric:
		return strconv.FormatInt(v.num, 10)
	case TypeTime:
		return v.time.Format(time.RFC3339Nano)
	default:
		return v.str
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareNatural orders runs of digits by numeric value. Strings the natural
// order cannot tell apart fall back to the lexical comparison so distinct
// strings never compare equal.
func compareNatural(a, b string) int {
	switch {
	case a == b:
		return 0
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	default:
		return strings.Compare(a, b)
	}
}
