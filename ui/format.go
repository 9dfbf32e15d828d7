package ui

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	printerMu sync.RWMutex
	printer   = message.NewPrinter(language.AmericanEnglish)
)

// SetLanguage switches number grouping to the given language tag. POSIX
// locale suffixes such as ".UTF-8" are ignored; unparseable tags leave the
// current setting alone.
func SetLanguage(tag string) {
	if i := strings.IndexAny(tag, ".@"); i >= 0 {
		tag = tag[:i]
	}
	t, err := language.Parse(tag)
	if err != nil {
		return
	}
	printerMu.Lock()
	printer = message.NewPrinter(t)
	printerMu.Unlock()
}

// FormatNumber groups thousands and keeps at most three decimals, so 1234.5
// prints as 1,234.5 in English.
func FormatNumber(value float64) string {
	printerMu.RLock()
	p := printer
	printerMu.RUnlock()
	return p.Sprint(number.Decimal(value, number.MaxFractionDigits(3)))
}

// FormatMoney prefixes the grouped value with the currency symbol.
func FormatMoney(symbol string, value float64) string {
	return symbol + FormatNumber(value)
}

// FormatWhole rounds to whole currency units without grouping.
func FormatWhole(symbol string, value float64) string {
	return fmt.Sprintf("%s%.0f", symbol, value)
}

// FormatSignedMoney adds a leading + for non-negative values.
func FormatSignedMoney(symbol string, value float64) string {
	if value >= 0 {
		return "+" + FormatMoney(symbol, value)
	}
	return FormatMoney(symbol, value)
}

// FormatCurrency is FormatSignedMoney coloured by sign.
func FormatCurrency(symbol string, value float64) string {
	return ChangeStyle(value).Render(FormatSignedMoney(symbol, value))
}

// FormatChange renders a signed percentage with the given decimals, e.g. +1.25%.
func FormatChange(value float64, decimals int) string {
	s := fmt.Sprintf("%.*f%%", decimals, value)
	if value >= 0 {
		s = "+" + s
	}
	return s
}

// FormatVolume shows a share count in millions with one decimal.
func FormatVolume(volume float64) string {
	return fmt.Sprintf("%.1fM", volume/1e6)
}

// FormatPrice renders a price in the accent colour.
func FormatPrice(symbol string, value float64) string {
	return PriceStyle.Render(FormatMoney(symbol, value))
}

// FormatMarketValue renders a holding or portfolio value.
func FormatMarketValue(symbol string, value float64) string {
	return MarketValueStyle.Render(FormatMoney(symbol, value))
}

// FormatCompact abbreviates large values, e.g. 2.5B.
func FormatCompact(value float64) string {
	switch {
	case value >= 1e12:
		return fmt.Sprintf("%.1fT", value/1e12)
	case value >= 1e9:
		return fmt.Sprintf("%.1fB", value/1e9)
	case value >= 1e6:
		return fmt.Sprintf("%.1fM", value/1e6)
	case value >= 1e3:
		return fmt.Sprintf("%.1fK", value/1e3)
	}
	return fmt.Sprintf("%.0f", value)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
