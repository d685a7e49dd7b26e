package api

import (
	"strconv"
	"strings"

	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

const (
	chartWidth  = 960
	chartHeight = 320

	// vertical room kept free for the axis labels
	chartPadTop    = 20
	chartPadBottom = 20
)

// chartView is a server-side line chart of the Close column, rendered as an
// SVG polyline by the page template.
type chartView struct {
	Label     string
	Width     int
	Height    int
	BottomY   int
	Points    string
	Min       float64
	Max       float64
	FirstDate string
	LastDate  string
}

// newChartView scales the closes into a width x height box, oldest bar at
// the left edge. It returns nil for an empty series.
func newChartView(series *models.PriceSeries, width, height int) *chartView {
	closes := series.Closes()
	if len(closes) == 0 {
		return nil
	}

	lo, hi := closes[0], closes[0]
	for _, c := range closes[1:] {
		lo = min(lo, c)
		hi = max(hi, c)
	}

	plotH := float64(height - chartPadTop - chartPadBottom)
	span := hi - lo
	step := 0.0
	if len(closes) > 1 {
		step = float64(width) / float64(len(closes)-1)
	}

	var b strings.Builder
	for i, c := range closes {
		y := float64(chartPadTop) + plotH/2
		if span > 0 {
			y = float64(chartPadTop) + (hi-c)/span*plotH
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(i)*step, 'f', 1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(y, 'f', 1, 64))
	}

	return &chartView{
		Label:     chartLabel(series.Symbol),
		Width:     width,
		Height:    height,
		BottomY:   height - 4,
		Points:    b.String(),
		Min:       lo,
		Max:       hi,
		FirstDate: utils.FormatDateIST(series.First()),
		LastDate:  utils.FormatDateIST(series.Last()),
	}
}

// chartLabel captions the chart from the provider symbol, e.g.
// "RELIANCE.BO" becomes "RELIANCE Close (BSE)".
func chartLabel(symbol string) string {
	label := utils.FromYFinanceTicker(symbol) + " Close"
	if m, ok := utils.MarketOf(symbol); ok {
		label += " (" + string(m) + ")"
	}
	return label
}
