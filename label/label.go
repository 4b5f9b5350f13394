package label

import "strings"

// Symbol is a three-letter ISO 4217 currency code, upper case
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// Normalize folds an arbitrary user-supplied code to the canonical
// upper-case form used as a rate table key
func Normalize(code string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(code)))
}

// Currency represents a supported currency
type Currency struct {
	Symbol Symbol
	Name   string
}

const (
	AUD Symbol = "AUD"
	CAD Symbol = "CAD"
	CHF Symbol = "CHF"
	CNY Symbol = "CNY"
	CZK Symbol = "CZK"
	DKK Symbol = "DKK"
	EUR Symbol = "EUR"
	GBP Symbol = "GBP"
	HUF Symbol = "HUF"
	JPY Symbol = "JPY"
	NOK Symbol = "NOK"
	NZD Symbol = "NZD"
	PLN Symbol = "PLN"
	RON Symbol = "RON"
	SEK Symbol = "SEK"
	USD Symbol = "USD"
)

// Currencies is the registry of currencies kantor knows how to label.
// Rate tables may contain additional codes; these are the ones exposed
// to presentation pickers
var Currencies = map[Symbol]Currency{
	AUD: {Symbol: AUD, Name: "Australian Dollar"},
	CAD: {Symbol: CAD, Name: "Canadian Dollar"},
	CHF: {Symbol: CHF, Name: "Swiss Franc"},
	CNY: {Symbol: CNY, Name: "Yuan Renminbi"},
	CZK: {Symbol: CZK, Name: "Czech Koruna"},
	DKK: {Symbol: DKK, Name: "Danish Krone"},
	EUR: {Symbol: EUR, Name: "Euro"},
	GBP: {Symbol: GBP, Name: "Pound Sterling"},
	HUF: {Symbol: HUF, Name: "Forint"},
	JPY: {Symbol: JPY, Name: "Yen"},
	NOK: {Symbol: NOK, Name: "Norwegian Krone"},
	NZD: {Symbol: NZD, Name: "New Zealand Dollar"},
	PLN: {Symbol: PLN, Name: "Zloty"},
	RON: {Symbol: RON, Name: "Romanian Leu"},
	SEK: {Symbol: SEK, Name: "Swedish Krona"},
	USD: {Symbol: USD, Name: "US Dollar"},
}
