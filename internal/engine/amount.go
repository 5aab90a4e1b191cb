package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// zeroAmount is zero at the two-place scale every parsed amount carries.
var zeroAmount = decimal.New(0, -2)

// ParseAmount converts billing amount text into an exact non-negative decimal
// scaled to two fractional digits. Input with more places is rejected.
//
// Accepted shapes include 1234.56, 1234,56, 1.234,56, 1,234.56 and an optional
// currency prefix. When both separators appear the last one is the decimal
// mark. A lone separator followed by exactly three digits is a thousands
// separator when the digits before it form a valid group, as is any
// separator that repeats. Malformed grouping such as 1.234.56 or 12.34,56 is
// rejected rather than read as another number.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := cleanAmount(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, fmt.Errorf("%w: negative value %q", ErrInvalidAmount, raw)
	}
	s = strings.TrimPrefix(s, "+")

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return decimal.Zero, fmt.Errorf("%w: unexpected character %q in %q", ErrInvalidAmount, r, raw)
		}
	}

	normalized, err := normalizeSeparators(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, raw, err)
	}

	if _, frac, ok := strings.Cut(normalized, "."); ok && len(frac) > 2 {
		return decimal.Zero, fmt.Errorf("%w: more than two decimal places in %q", ErrInvalidAmount, raw)
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, raw, err)
	}
	return d.Round(2), nil
}

func cleanAmount(raw string) string {
	s := strings.TrimSpace(raw)
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"R$", "BRL", "$"} {
		if strings.HasPrefix(upper, prefix) {
			s = s[len(prefix):]
			break
		}
	}

	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\t' {
			return -1
		}
		return r
	}, s)
}

func normalizeSeparators(s string) (string, error) {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		mark, group := byte('.'), byte(',')
		if lastComma > lastDot {
			mark, group = ',', '.'
		}
		if strings.Count(s, string(mark)) > 1 {
			return "", fmt.Errorf("repeated decimal mark")
		}
		whole, frac, _ := strings.Cut(s, string(mark))
		if !grouped(whole, group) {
			return "", fmt.Errorf("malformed digit grouping")
		}
		return strings.ReplaceAll(whole, string(group), "") + "." + frac, nil

	case lastDot >= 0 || lastComma >= 0:
		sep := byte('.')
		if lastComma >= 0 {
			sep = ','
		}
		if strings.Count(s, string(sep)) > 1 {
			if !grouped(s, sep) {
				return "", fmt.Errorf("malformed digit grouping")
			}
			return strings.ReplaceAll(s, string(sep), ""), nil
		}
		// 1.500 is fifteen hundred; 0.500 and 1234.567 fall through to the
		// decimal reading and fail the two-place limit.
		if grouped(s, sep) {
			return strings.ReplaceAll(s, string(sep), ""), nil
		}
		return strings.Replace(s, string(sep), ".", 1), nil
	}

	return s, nil
}

// grouped reports whether s is a thousands-grouped integer: one to three
// leading digits without a leading zero, then one or more sep+three digits.
// A string without sep is accepted as a plain integer.
func grouped(s string, sep byte) bool {
	if strings.IndexByte(s, sep) < 0 {
		return s != ""
	}
	groups := strings.Split(s, string(sep))
	if head := groups[0]; head == "" || len(head) > 3 || head[0] == '0' {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
