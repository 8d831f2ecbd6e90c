// Package core holds the booking domain: event records, their
// normalization, the status policy, month windows and money aggregation.
//
// This file contains the lenient numeric form value used at the write
// boundary and the rupee formatter used by summaries and invoices.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a raw numeric form value. It decodes from JSON numbers and from
// JSON strings so that browser forms can post either.
type Number string

// UnmarshalJSON accepts numbers, numeric strings and null. Any other JSON
// value is kept verbatim and later coerced to zero by Float.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*n = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = Number(str)
	default:
		*n = Number(s)
	}
	return nil
}

// Float parses the value. Empty, non-numeric, NaN and infinite values
// yield 0.
func (n Number) Float() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NumberOf formats v as a Number.
func NumberOf(v float64) *Number {
	n := Number(strconv.FormatFloat(v, 'f', -1, 64))
	return &n
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func numberValue(n *Number) float64 {
	if n == nil {
		return 0
	}
	return n.Float()
}

// FormatINR renders an amount as whole rupees with Indian digit grouping,
// e.g. 123456.4 -> "₹1,23,456".
func FormatINR(amount float64) string {
	rounded := int64(math.Round(amount))
	neg := rounded < 0
	if neg {
		rounded = -rounded
	}
	digits := strconv.FormatInt(rounded, 10)

	var b strings.Builder
	if len(digits) > 3 {
		head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
		first := len(head) % 2
		if first > 0 {
			b.WriteString(head[:first])
		}
		for i := first; i < len(head); i += 2 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(head[i : i+2])
		}
		b.WriteByte(',')
		b.WriteString(tail)
	} else {
		b.WriteString(digits)
	}

	if neg {
		return "-₹" + b.String()
	}
	return "₹" + b.String()
}
