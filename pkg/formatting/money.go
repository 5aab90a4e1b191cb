package formatting

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders d as Brazilian reais with two decimals, "." grouping and
// "," as the decimal mark: FormatBRL(-1234.5) is "-R$ 1.234,50".
func FormatBRL(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	return sign + "R$ " + group(whole, '.') + "," + frac
}

func group(digits string, sep byte) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
