// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package lualex

import (
	"errors"
	"strconv"
	"strings"
)

// Number is the value of a numeral.
type Number struct {
	// IsFloat reports whether the numeral denotes a float.
	// If false, the value is in Int.
	IsFloat bool
	Int     int64
	Float   float64
}

// ParseNumeral converts the text of a [NumeralToken] to its value
// according to the [lexical rules of Lua]:
//
//   - A decimal numeral without a radix point or exponent is an integer
//     if it fits in 64 bits and a float otherwise.
//   - A hexadecimal numeral without a radix point or exponent is always an integer.
//     If its value overflows, it wraps around.
//   - All other numerals are floats.
//     Floats that overflow become infinities.
//
// Signs, surrounding whitespace, "inf", and "nan" are not part of a numeral.
// Any error returned will be of type [*strconv.NumError].
//
// [lexical rules of Lua]: https://lua.org/manual/5.4/manual.html#3.1
func ParseNumeral(s string) (Number, error) {
	digits, isHex := cutHexPrefix(s)
	exponentDelims := "eE"
	if isHex {
		exponentDelims = "pP"
	}
	mantissa, exponent, hasExponent := digits, "", false
	if i := strings.IndexAny(digits, exponentDelims); i >= 0 {
		mantissa, exponent, hasExponent = digits[:i], digits[i+1:], true
	}
	whole, frac, hasPoint := strings.Cut(mantissa, ".")
	if whole == "" && frac == "" || !allDigits(whole, isHex) || !allDigits(frac, isHex) {
		return Number{}, numeralSyntaxError(s)
	}
	if hasExponent {
		if len(exponent) > 0 && (exponent[0] == '+' || exponent[0] == '-') {
			exponent = exponent[1:]
		}
		if exponent == "" || !allDigits(exponent, false) {
			return Number{}, numeralSyntaxError(s)
		}
	}

	if !hasPoint && !hasExponent {
		if isHex {
			var x uint64
			for _, c := range []byte(whole) {
				d, _ := hexDigit(c)
				x = x<<4 | uint64(d)
			}
			return Number{Int: int64(x)}, nil
		}
		if i, err := strconv.ParseInt(whole, 10, 64); err == nil {
			return Number{Int: i}, nil
		}
	}

	toParse := s
	if isHex && !hasExponent {
		// Go hex float literals must have an exponent.
		toParse += "p0"
	}
	f, err := strconv.ParseFloat(toParse, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Number{}, numeralSyntaxError(s)
	}
	return Number{IsFloat: true, Float: f}, nil
}

func numeralSyntaxError(s string) error {
	return &strconv.NumError{
		Func: "ParseNumeral",
		Num:  s,
		Err:  strconv.ErrSyntax,
	}
}

func allDigits(s string, isHex bool) bool {
	for _, c := range []byte(s) {
		if !isDigit(c) && !(isHex && isHexDigit(c)) {
			return false
		}
	}
	return true
}

func cutHexPrefix(s string) (rest string, hex bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:], true
	}
	return s, false
}
