// Package models defines the core data structures used throughout stockqa.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Market identifies the Indian exchange a ticker trades on.
type Market string

const (
	MarketNSE Market = "NSE"
	MarketBSE Market = "BSE"
)

// Markets lists the selectable exchanges in display order.
var Markets = []Market{MarketNSE, MarketBSE}

// Suffix returns the Yahoo Finance symbol suffix for the market.
func (m Market) Suffix() string {
	if m == MarketBSE {
		return ".BO"
	}
	return ".NS"
}

// Valid reports whether m is one of the supported exchanges.
func (m Market) Valid() bool {
	return m == MarketNSE || m == MarketBSE
}

// ParseMarket parses a market selector, case-insensitively.
func ParseMarket(s string) (Market, error) {
	m := Market(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown market %q (want NSE or BSE)", s)
	}
	return m, nil
}

// Query holds the user's fetch parameters. Start and End are calendar dates;
// Start <= End is expected but not enforced.
type Query struct {
	Market Market    `json:"market"`
	Ticker string    `json:"ticker"` // e.g., "RELIANCE"
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// PriceBar is one trading day of the price series. Prices are adjusted for
// splits and dividends.
type PriceBar struct {
	Date        time.Time `json:"date"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      int64     `json:"volume"`
	Dividends   float64   `json:"dividends"`
	StockSplits float64   `json:"stock_splits"`
}

// PriceSeries is a date-ordered table of daily bars for one symbol.
type PriceSeries struct {
	Symbol   string     `json:"symbol"`   // e.g., "RELIANCE.NS"
	Currency string     `json:"currency"` // e.g., "INR"
	Exchange string     `json:"exchange"` // provider's exchange name, e.g., "NSI"
	Bars     []PriceBar `json:"bars"`
}

// Empty reports whether the series has no rows. A nil series is empty.
func (s *PriceSeries) Empty() bool {
	return s == nil || len(s.Bars) == 0
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the Close column.
func (s *PriceSeries) Closes() []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// First returns the earliest bar date, or the zero time for an empty series.
func (s *PriceSeries) First() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Bars[0].Date
}

// Last returns the latest bar date, or the zero time for an empty series.
func (s *PriceSeries) Last() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// Answer is a question put to the model together with its reply.
type Answer struct {
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	Model     string        `json:"model,omitempty"`
	ToolCalls int           `json:"tool_calls"`
	Tokens    int           `json:"tokens"`
	Duration  time.Duration `json:"duration"`
}
