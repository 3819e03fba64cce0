package allocation

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"budget/internal/domain"
)

var (
	gbpPrinter = message.NewPrinter(language.BritishEnglish)
	maxAmount  = decimal.NewFromInt(domain.MaxAmount)
)

// ParseAmount reads a whole-pound amount as typed into the allocation form.
// A leading pound sign, thousands separators and a zero fractional part are
// accepted; blank input is zero. Amounts above domain.MaxAmount are rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, domain.ErrInvalidAmount
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) || d.GreaterThan(maxAmount) {
		return 0, domain.ErrInvalidAmount
	}
	return d.IntPart(), nil
}

// FormatGBP renders whole pounds with thousands separators, e.g. £5,000,000.
func FormatGBP(amount int64) string {
	if amount < 0 {
		return "-£" + gbpPrinter.Sprintf("%d", -amount)
	}
	return "£" + gbpPrinter.Sprintf("%d", amount)
}
