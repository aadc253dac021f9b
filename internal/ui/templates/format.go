package templates

import (
	"strings"

	"github.com/shopspring/decimal"
)

const undefinedValue = "—"

// Money formats v as dollars with thousands separators and the given number
// of decimal places, e.g. Money(1234.5, 2) == "$1,234.50".
func Money(v float64, places int32) string {
	s := decimal.NewFromFloat(v).StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, hasFrac := strings.Cut(s, ".")
	grouped := groupThousands(intPart)
	if hasFrac {
		grouped += "." + frac
	}
	return sign + "$" + grouped
}

// OptionalMoney renders a nil value as a dash.
func OptionalMoney(v *float64, places int32) string {
	if v == nil {
		return undefinedValue
	}
	return Money(*v, places)
}

func groupThousands(digits string) string {
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
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
