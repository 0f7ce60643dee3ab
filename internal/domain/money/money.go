// Package money formats rupee amounts the way Indian customers read them.
package money

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var indianEnglish = language.MustParse("en-IN")

// FormatIndian groups digits using the en-IN convention (1,13,928).
func FormatIndian(n int64) string {
	return message.NewPrinter(indianEnglish).Sprintf("%d", n)
}

// FormatINR renders a whole-rupee amount with the rupee sign.
func FormatINR(n int64) string {
	return "₹" + FormatIndian(n)
}

// FormatINRMonthly renders a monthly plan price.
func FormatINRMonthly(n int64) string {
	return FormatINR(n) + "/month"
}

// Round2 rounds to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
