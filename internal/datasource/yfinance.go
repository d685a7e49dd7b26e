package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

// DefaultYFinanceBaseURL is the Yahoo Finance API host.
const DefaultYFinanceBaseURL = "https://query1.finance.yahoo.com"

// YFinance implements PriceSource using the Yahoo Finance chart API.
type YFinance struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// YFinanceOption configures the Yahoo Finance source.
type YFinanceOption func(*YFinance)

// WithBaseURL points the source at a different host (tests, proxies).
// An empty URL keeps the default.
func WithBaseURL(u string) YFinanceOption {
	return func(y *YFinance) {
		if u != "" {
			y.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) YFinanceOption {
	return func(y *YFinance) { y.client = c }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) YFinanceOption {
	return func(y *YFinance) { y.logger = l }
}

// NewYFinance creates a new Yahoo Finance data source.
func NewYFinance(opts ...YFinanceOption) *YFinance {
	y := &YFinance{
		baseURL: DefaultYFinanceBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 chart API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Events     *yfEvents    `json:"events"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol       string `json:"symbol"`
	Currency     string `json:"currency"`
	ExchangeName string `json:"exchangeName"`
}

type yfEvents struct {
	Dividends map[string]yfDividend `json:"dividends"`
	Splits    map[string]yfSplit    `json:"splits"`
}

type yfDividend struct {
	Amount float64 `json:"amount"`
	Date   int64   `json:"date"`
}

type yfSplit struct {
	Date        int64   `json:"date"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
}

type yfIndicators struct {
	Quote    []yfOHLCV    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// History returns daily split- and dividend-adjusted OHLCV bars plus
// dividend and split columns.
// Both dates are taken as IST calendar days; end is exclusive, so a range
// with start == end has no rows.
func (y *YFinance) History(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error) {
	from := utils.StartOfDayIST(start)
	to := utils.StartOfDayIST(end)
	if !to.After(from) {
		return nil, fmt.Errorf("%w: %s between %s and %s", ErrNoData, symbol,
			utils.FormatDateIST(from), utils.FormatDateIST(to))
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div|split")
	q.Set("includeAdjustedClose", "true")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(symbol), q.Encode())

	y.logger.Debug("yfinance history request", "symbol", symbol,
		"start", utils.FormatDateIST(from), "end", utils.FormatDateIST(to))

	data, status, err := doGet(ctx, y.client, u, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		// Unknown symbols come back as 404 with a chart error payload.
		if status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNoData, symbol, chartErrorDescription(data))
		}
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance chart: %w", err)
	}

	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNoData, symbol, e.Description)
		}
		return nil, fmt.Errorf("yfinance chart error: %s", e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	result := resp.Chart.Result[0]
	series := &models.PriceSeries{
		Symbol:   coalesce(result.Meta.Symbol, symbol),
		Currency: result.Meta.Currency,
		Exchange: result.Meta.ExchangeName,
		Bars:     clipBars(parseYFBars(result), from, to),
	}
	if series.Empty() {
		return nil, fmt.Errorf("%w: %s between %s and %s", ErrNoData, symbol,
			utils.FormatDateIST(from), utils.FormatDateIST(to))
	}

	y.logger.Debug("yfinance history response", "symbol", series.Symbol, "bars", series.Len())
	return series, nil
}

// --- Helpers ---

// parseYFBars converts the columnar chart payload into rows keyed by IST
// calendar date. Rows where every price is null are dropped. Prices are
// adjusted for splits and dividends: when the payload carries an adjusted
// close, Open, High and Low are scaled by adjclose/close and Close becomes
// the adjusted close.
func parseYFBars(result yfChartResult) []models.PriceBar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	dividends := map[string]float64{}
	splits := map[string]float64{}
	if ev := result.Events; ev != nil {
		for _, d := range ev.Dividends {
			dividends[dayKey(d.Date)] += d.Amount
		}
		for _, s := range ev.Splits {
			if s.Denominator != 0 {
				splits[dayKey(s.Date)] = s.Numerator / s.Denominator
			}
		}
	}

	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, okO := at(q.Open, i)
		high, okH := at(q.High, i)
		low, okL := at(q.Low, i)
		cl, okC := at(q.Close, i)
		if !okO && !okH && !okL && !okC {
			continue
		}

		b := models.PriceBar{
			Date:  utils.StartOfDayIST(time.Unix(ts, 0)),
			Open:  open,
			High:  high,
			Low:   low,
			Close: cl,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		if adj, ok := at(adjCloses, i); ok && okC && cl != 0 {
			adjustBar(&b, adj/cl)
		}
		key := dayKey(ts)
		b.Dividends = dividends[key]
		b.StockSplits = splits[key]
		bars = append(bars, b)
	}
	return bars
}

// adjustBar scales the bar's prices by ratio.
func adjustBar(b *models.PriceBar, ratio float64) {
	b.Open *= ratio
	b.High *= ratio
	b.Low *= ratio
	b.Close *= ratio
}

// clipBars keeps bars dated in [from, to).
func clipBars(bars []models.PriceBar, from, to time.Time) []models.PriceBar {
	out := bars[:0]
	for _, b := range bars {
		if b.Date.Before(from) || !b.Date.Before(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func at(col []*float64, i int) (float64, bool) {
	if i < len(col) && col[i] != nil {
		return *col[i], true
	}
	return 0, false
}

func dayKey(ts int64) string {
	return utils.FormatDateIST(time.Unix(ts, 0))
}

func chartErrorDescription(body []byte) string {
	var resp yfChartResponse
	if json.Unmarshal(body, &resp) == nil && resp.Chart.Error != nil {
		return resp.Chart.Error.Description
	}
	return "symbol not found"
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
