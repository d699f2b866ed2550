package notify

import (
	"strings"

	"github.com/shopspring/decimal"

	"resto-dashboard/internal/domain"
)

// FormatAmount renders a monetary amount the way tenant receipts do:
// integer part grouped by thousands with a space, fractional part kept only
// when the amount actually has one ("5 000", "12 500.50").
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(max(0, -d.Exponent()))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// Summary is the one-line new-order announcement, e.g. "Alice — 5 000 FCFA".
func Summary(o domain.Order, currency string) string {
	return o.CustomerName + " — " + FormatAmount(o.Total) + " " + currency
}
