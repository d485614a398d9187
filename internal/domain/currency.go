package domain

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
)

// Currency is a lower-case vs_currency code understood by the market API.
type Currency string

const (
	USD Currency = "usd"
	INR Currency = "inr"
	EUR Currency = "eur"

	DefaultCurrency = USD
)

// SupportedCurrencies lists the selectable display currencies in menu order.
var SupportedCurrencies = []Currency{USD, INR, EUR}

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(code)))
	for _, s := range SupportedCurrencies {
		if c == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
}

// Upper returns the ISO code, e.g. "USD".
func (c Currency) Upper() string {
	return strings.ToUpper(string(c))
}

// Symbol returns the display grapheme, e.g. "$". Unknown codes have none.
func (c Currency) Symbol() string {
	cur := money.GetCurrency(c.Upper())
	if cur == nil {
		return ""
	}
	return cur.Grapheme
}

// Next cycles through SupportedCurrencies.
func (c Currency) Next() Currency {
	for i, s := range SupportedCurrencies {
		if s == c {
			return SupportedCurrencies[(i+1)%len(SupportedCurrencies)]
		}
	}
	return DefaultCurrency
}
