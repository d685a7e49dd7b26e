// Package session runs the fetch and answer stages behind the user surfaces.
// Every outcome, failures included, is returned as a result value carrying
// the message to display; nothing here is fatal to the process.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/stockqa/internal/datasource"
	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

// Display messages.
const (
	MsgInvalidTicker = "Please enter a valid stock ticker."
	MsgNoData        = "No data found. Please check the ticker symbol and try again."
	MsgEmptyQuestion = "Please enter a question."
	MsgNoSeries      = "No stock data loaded. Fetch data before asking a question."
)

// Asker answers a question about a series.
type Asker interface {
	Ask(ctx context.Context, series *models.PriceSeries, question string) (*models.Answer, error)
}

// FetchStatus classifies a fetch outcome.
type FetchStatus string

const (
	FetchOK            FetchStatus = "ok"
	FetchInvalidTicker FetchStatus = "invalid_ticker"
	FetchNoData        FetchStatus = "no_data"
	FetchFailed        FetchStatus = "error"
)

// FetchResult is the outcome of one Fetch.
type FetchResult struct {
	Status  FetchStatus         `json:"status"`
	Query   models.Query        `json:"query"`
	Symbol  string              `json:"symbol,omitempty"`  // fully-qualified, e.g. RELIANCE.NS
	Heading string              `json:"heading,omitempty"` // set on success
	Message string              `json:"message,omitempty"` // set on failure
	Series  *models.PriceSeries `json:"series,omitempty"`
	Err     error               `json:"-"`
}

// OK reports whether a non-empty series was fetched.
func (r *FetchResult) OK() bool { return r.Status == FetchOK }

// AnswerStatus classifies an answer outcome.
type AnswerStatus string

const (
	AnswerOK            AnswerStatus = "ok"
	AnswerEmptyQuestion AnswerStatus = "empty_question"
	AnswerNoSeries      AnswerStatus = "no_series"
	AnswerFailed        AnswerStatus = "error"
)

// AnswerResult is the outcome of one Answer.
type AnswerResult struct {
	Status  AnswerStatus   `json:"status"`
	Answer  *models.Answer `json:"answer,omitempty"`
	Message string         `json:"message,omitempty"`
	Err     error          `json:"-"`
}

// OK reports whether the model produced an answer.
func (r *AnswerResult) OK() bool { return r.Status == AnswerOK }

// Service wires the market-data source to the Q&A agent.
type Service struct {
	Source datasource.PriceSource
	Asker  Asker
	Logger *slog.Logger
}

// NewService creates a Service. A nil logger means slog.Default().
func NewService(source datasource.PriceSource, asker Asker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Source: source, Asker: asker, Logger: logger}
}

// Fetch validates q and fetches the daily series for it. The ticker is
// passed to the provider verbatim with the market suffix appended.
func (s *Service) Fetch(ctx context.Context, q models.Query) *FetchResult {
	q.Ticker = strings.TrimSpace(q.Ticker)
	if q.Market == "" {
		q.Market = models.MarketNSE
	}
	res := &FetchResult{Query: q}

	if q.Ticker == "" {
		res.Status = FetchInvalidTicker
		res.Message = MsgInvalidTicker
		return res
	}
	if !q.Market.Valid() {
		res.Status = FetchFailed
		res.Err = fmt.Errorf("unknown market %q", q.Market)
		res.Message = "Error fetching data: " + res.Err.Error()
		return res
	}

	res.Symbol = utils.FullyQualifiedTicker(q.Market, q.Ticker)
	start := time.Now()
	series, err := s.Source.History(ctx, res.Symbol, q.Start, q.End)
	switch {
	case datasource.IsNoData(err), err == nil && series.Empty():
		s.Logger.Info("no data", "symbol", res.Symbol, "start", utils.FormatDateIST(q.Start), "end", utils.FormatDateIST(q.End))
		res.Status = FetchNoData
		res.Message = MsgNoData
	case err != nil:
		s.Logger.Warn("fetch failed", "symbol", res.Symbol, "source", s.Source.Name(), "error", err)
		res.Status = FetchFailed
		res.Err = err
		res.Message = "Error fetching data: " + err.Error()
	default:
		s.Logger.Info("fetched series", "symbol", res.Symbol, "rows", series.Len(), "duration", time.Since(start))
		res.Status = FetchOK
		res.Series = series
		res.Heading = fmt.Sprintf("Stock data for %s on %s", q.Ticker, q.Market)
	}
	return res
}

// Answer asks question about series. A blank question or a missing series
// is reported without calling the agent; otherwise the agent runs exactly once.
func (s *Service) Answer(ctx context.Context, series *models.PriceSeries, question string) *AnswerResult {
	if series.Empty() {
		return &AnswerResult{Status: AnswerNoSeries, Message: MsgNoSeries}
	}
	if strings.TrimSpace(question) == "" {
		return &AnswerResult{Status: AnswerEmptyQuestion, Message: MsgEmptyQuestion}
	}

	ans, err := s.Asker.Ask(ctx, series, question)
	if err != nil {
		return &AnswerResult{
			Status:  AnswerFailed,
			Message: "Error generating response: " + err.Error(),
			Err:     err,
		}
	}
	return &AnswerResult{Status: AnswerOK, Answer: ans}
}

// NewSession starts an interaction bound to this service.
func (s *Service) NewSession() *Session {
	return &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		svc:     s,
	}
}

// Session holds one interaction's state: the last query and the series it
// produced. It is not safe for concurrent use.
type Session struct {
	ID      string
	Created time.Time
	Query   models.Query
	Series  *models.PriceSeries

	svc *Service
}

// Fetch runs a fetch and replaces the held series. Any failure clears it.
func (s *Session) Fetch(ctx context.Context, q models.Query) *FetchResult {
	res := s.svc.Fetch(ctx, q)
	s.Query = res.Query
	s.Series = res.Series
	return res
}

// Ask answers question against the held series.
func (s *Session) Ask(ctx context.Context, question string) *AnswerResult {
	return s.svc.Answer(ctx, s.Series, question)
}
