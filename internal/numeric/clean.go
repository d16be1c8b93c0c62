// Package numeric turns locale-formatted number strings into decimals.
//
// Argentine documents write 1.234,56 while software exports and some
// suppliers write 1,234.56. The separator that is the decimal point is
// decided from the shape of the string alone.
package numeric

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Clean parses raw and reports whether it holds a usable positive number.
//
// When both ',' and '.' appear, the rightmost one is the decimal separator
// and the other is stripped. When only one kind appears, a trailing group of
// exactly three digits marks it as a thousands separator; any other trailing
// group makes its last occurrence the decimal point. Zero, negative and
// non-numeric inputs return false.
func Clean(raw string) (decimal.Decimal, bool) {
	s := strip(raw)
	if s == "" || strings.HasPrefix(s, "-") {
		return decimal.Zero, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = single(s, ",", lastComma)
	case lastDot >= 0:
		s = single(s, ".", lastDot)
	}

	if strings.Count(s, ".") > 1 {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// Format renders d with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// single resolves a string that uses only one kind of separator.
func single(s, sep string, last int) string {
	tail := s[last+1:]
	if len(tail) == 3 {
		return strings.ReplaceAll(s, sep, "")
	}
	head := strings.ReplaceAll(s[:last], sep, "")
	return head + "." + tail
}

// strip keeps digits, separators and a leading minus sign.
func strip(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), ".,")
}
