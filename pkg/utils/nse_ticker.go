package utils

import (
	"strings"

	"github.com/seenimoa/stockqa/pkg/models"
)

// DefaultTicker is the ticker the form is pre-filled with.
const DefaultTicker = "RELIANCE"

// FullyQualifiedTicker appends the exchange suffix Yahoo Finance expects:
// ".NS" for NSE and ".BO" for BSE. The ticker itself is passed through as
// typed, apart from surrounding whitespace.
func FullyQualifiedTicker(market models.Market, ticker string) string {
	return strings.TrimSpace(ticker) + market.Suffix()
}

// FromYFinanceTicker strips the .NS or .BO suffix to get the exchange ticker.
func FromYFinanceTicker(yfTicker string) string {
	yfTicker = strings.TrimSuffix(yfTicker, ".NS")
	yfTicker = strings.TrimSuffix(yfTicker, ".BO")
	return yfTicker
}

// MarketOf infers the exchange from a Yahoo Finance symbol suffix.
func MarketOf(yfTicker string) (models.Market, bool) {
	switch {
	case strings.HasSuffix(yfTicker, ".NS"):
		return models.MarketNSE, true
	case strings.HasSuffix(yfTicker, ".BO"):
		return models.MarketBSE, true
	}
	return "", false
}
