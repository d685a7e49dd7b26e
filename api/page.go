package api

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/seenimoa/stockqa/internal/session"
	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

const pageTitle = "Indian Stock Market Data Fetcher and Q&A"

var templateFuncs = template.FuncMap{
	"inr": utils.FormatINR,
}

// formValues echoes the user's input back into the form.
type formValues struct {
	Market   string
	Ticker   string
	Start    string
	End      string
	Question string
}

// rowView is one table row, pre-formatted for display.
type rowView struct {
	Date        string
	Open        string
	High        string
	Low         string
	Close       string
	Volume      string
	Dividends   string
	StockSplits string
}

// pageData is the model for the index template.
type pageData struct {
	Title        string
	MarketStatus string
	Now          string
	Markets      []string
	Form         formValues
	FetchError   string
	Fetch        *session.FetchResult
	Chart        *chartView
	Rows         []rowView
	AnswerResult *session.AnswerResult
}

func (s *Server) newPage(form formValues) *pageData {
	markets := make([]string, len(models.Markets))
	for i, m := range models.Markets {
		markets[i] = string(m)
	}
	return &pageData{
		Title:        pageTitle,
		MarketStatus: utils.MarketStatus(),
		Now:          utils.FormatDateTimeIST(utils.NowIST()),
		Markets:      markets,
		Form:         form,
	}
}

// defaultForm is the initial form state: configured market and ticker,
// configured start date and today as the end date.
func (s *Server) defaultForm() formValues {
	ui := s.cfg.UI
	f := formValues{
		Market: ui.DefaultMarket,
		Ticker: ui.DefaultTicker,
		Start:  ui.DefaultStart,
		End:    utils.FormatDateIST(utils.TodayIST()),
	}
	if f.Market == "" {
		f.Market = string(models.MarketNSE)
	}
	if f.Ticker == "" {
		f.Ticker = utils.DefaultTicker
	}
	if f.Start == "" {
		f.Start = utils.DefaultStartDate
	}
	return f
}

// formFromRequest reads the posted form. Missing date fields fall back to
// the defaults so the form always re-renders with concrete values.
func (s *Server) formFromRequest(r *http.Request) formValues {
	def := s.defaultForm()
	f := formValues{
		Market:   strings.TrimSpace(r.PostFormValue("market")),
		Ticker:   r.PostFormValue("ticker"),
		Start:    strings.TrimSpace(r.PostFormValue("start")),
		End:      strings.TrimSpace(r.PostFormValue("end")),
		Question: r.PostFormValue("question"),
	}
	if f.Market == "" {
		f.Market = def.Market
	}
	if f.Start == "" {
		f.Start = def.Start
	}
	if f.End == "" {
		f.End = def.End
	}
	return f
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.newPage(s.defaultForm()))
}

func (s *Server) handleFetchPage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	page := s.newPage(s.formFromRequest(r))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	s.fetchInto(ctx, page)
	s.renderPage(w, http.StatusOK, page)
}

// handleAskPage re-fetches the series named by the hidden query fields and
// answers the question against it.
func (s *Server) handleAskPage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	page := s.newPage(s.formFromRequest(r))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if s.fetchInto(ctx, page) {
		page.AnswerResult = s.svc.Answer(ctx, page.Fetch.Series, page.Form.Question)
	}
	s.renderPage(w, http.StatusOK, page)
}

// fetchInto runs the fetch for the page's form and fills in the results.
// It reports whether a non-empty series was loaded.
func (s *Server) fetchInto(ctx context.Context, page *pageData) bool {
	q, err := QueryInput{
		Market: page.Form.Market,
		Ticker: page.Form.Ticker,
		Start:  page.Form.Start,
		End:    page.Form.End,
	}.Query(s.cfg.UI)
	if err != nil {
		page.FetchError = "Error fetching data: " + err.Error()
		return false
	}

	res := s.svc.Fetch(ctx, q)
	page.Fetch = res
	if !res.OK() {
		page.FetchError = res.Message
		return false
	}
	page.Chart = newChartView(res.Series, chartWidth, chartHeight)
	page.Rows = rowViews(res.Series)
	return true
}

func rowViews(series *models.PriceSeries) []rowView {
	rows := make([]rowView, 0, series.Len())
	for _, b := range series.Bars {
		rows = append(rows, rowView{
			Date:        utils.FormatDateIST(b.Date),
			Open:        utils.FormatINR(b.Open),
			High:        utils.FormatINR(b.High),
			Low:         utils.FormatINR(b.Low),
			Close:       utils.FormatINR(b.Close),
			Volume:      utils.FormatVolume(b.Volume),
			Dividends:   utils.FormatPrice(b.Dividends),
			StockSplits: utils.FormatPrice(b.StockSplits),
		})
	}
	return rows
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page *pageData) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "index", page); err != nil {
		s.logger.Error("render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	w.Write(buf.Bytes()) //nolint:errcheck
}
