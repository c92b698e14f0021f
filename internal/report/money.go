package report

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySuffix follows every formatted amount.
const CurrencySuffix = "₸"

// German grouping uses "." as the thousands separator.
var printer = message.NewPrinter(language.German)

// Money formats an amount in whole currency units, e.g. 10000 -> "10.000₸".
func Money(amount int64) string {
	return printer.Sprintf("%d", amount) + CurrencySuffix
}

// average divides sum by n rounding half to even. Zero n yields zero.
func average(sum int64, n int) int64 {
	if n == 0 {
		return 0
	}
	return decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(n))).RoundBank(0).IntPart()
}

func dateOf(t time.Time) string {
	return t.Format("02.01.2006")
}

func clockOf(t time.Time) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.Format("15:04")
}
