package storage

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCents renders an amount in cents with thousands separators,
// e.g. 123450 → "1,234.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + printer.Sprintf("%d", cents/100) + fmt.Sprintf(".%02d", cents%100)
}

// FormatWeight renders a tier weight as a percentage, e.g. "12.5%".
func FormatWeight(w float64) string {
	s := strings.TrimRight(strings.TrimRight(printer.Sprintf("%.2f", w), "0"), ".")
	return s + "%"
}
