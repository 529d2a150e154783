package pricing

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RoundPrice renders an amount with two decimals, the form marketplace APIs
// expect for price values.
func RoundPrice(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// PsychologicalPrice rounds an amount down to a .99 ending for display.
func PsychologicalPrice(amount float64) string {
	return fmt.Sprintf("%d.99", int(amount))
}

// FormatPrice renders an amount with its currency symbol localized for the
// given BCP 47 language tag, e.g. "de-DE" for EBAY_DE listings.
func FormatPrice(amount float64, currencyCode, langTag string) string {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return fmt.Sprintf("%s %s", RoundPrice(amount), currencyCode)
	}
	tag, err := language.Parse(langTag)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return p.Sprintf("%v", currency.Symbol(unit.Amount(amount)))
}
