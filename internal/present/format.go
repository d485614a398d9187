// Package present turns dashboard views into display-ready strings shared by
// every surface.
package present

import (
	"strconv"
	"strings"

	"coinboard/internal/domain"

	"github.com/Rhymond/go-money"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Placeholder is shown for missing values.
const Placeholder = "—"

// Direction classifies a 24h change.
type Direction string

const (
	Positive Direction = "positive"
	Negative Direction = "negative"
)

// sub-unit prices keep more fraction digits
const smallPriceFraction = 6

var one = decimal.NewFromInt(1)

// FormatPrice renders a price with the currency symbol, e.g. "$65,000.00".
// Missing prices render as the placeholder.
func FormatPrice(cur domain.Currency, d *decimal.Decimal) string {
	if d == nil {
		return Placeholder
	}
	return FormatAmount(cur, *d)
}

// FormatAmount renders a non-nullable amount with the currency symbol.
func FormatAmount(cur domain.Currency, d decimal.Decimal) string {
	mc := money.New(0, cur.Upper()).Currency()
	fraction := mc.Fraction
	if d.Abs().LessThan(one) && !d.IsZero() {
		fraction = smallPriceFraction
	}
	f := money.NewFormatter(fraction, mc.Decimal, mc.Thousand, mc.Grapheme, mc.Template)
	return f.Format(d.Shift(int32(fraction)).Round(0).IntPart())
}

// FormatChange renders a 24h change with two decimals and its direction.
// A missing change renders as "0.00%" and counts as positive.
func FormatChange(d *decimal.Decimal) (string, Direction) {
	if d == nil {
		return "0.00%", Positive
	}
	dir := Positive
	if d.IsNegative() {
		dir = Negative
	}
	return d.StringFixed(2) + "%", dir
}

// FormatMarketCap renders whole currency units with thousands separators.
// Missing or zero market caps render as the placeholder.
func FormatMarketCap(cur domain.Currency, d *decimal.Decimal) string {
	if d == nil || d.IsZero() {
		return Placeholder
	}
	return cur.Symbol() + humanize.Comma(d.Round(0).IntPart())
}

// FormatCompact renders a short market cap, e.g. "$1.3 T".
func FormatCompact(cur domain.Currency, d *decimal.Decimal) string {
	if d == nil || d.IsZero() {
		return Placeholder
	}
	f, _ := d.Float64()
	v, unit := humanize.ComputeSI(f)
	return cur.Symbol() + humanize.FtoaWithDigits(v, 1) + siSuffix(unit)
}

func siSuffix(unit string) string {
	switch unit {
	case "k":
		return "K"
	case "M":
		return "M"
	case "G":
		return "B"
	case "T":
		return "T"
	}
	return unit
}

// FormatRank renders the market-cap rank or "" when absent.
func FormatRank(r *int) string {
	if r == nil {
		return ""
	}
	return strconv.Itoa(*r)
}

// FormatSymbol upper-cases a ticker symbol.
func FormatSymbol(s string) string {
	return strings.ToUpper(s)
}
