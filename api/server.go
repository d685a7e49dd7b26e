// Package api provides the HTTP surface for stockqa.
//
// It serves the server-rendered fetch/ask page, a JSON API with the same
// operations, credential status, and a websocket session transport.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/session"
	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
	"github.com/seenimoa/stockqa/web"
)

// requestTimeout bounds a single fetch or fetch+answer round trip.
const requestTimeout = 120 * time.Second

// Server is the HTTP server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	svc     *session.Service
	pages   *template.Template
	logger  *slog.Logger
	version string

	wsPongWait time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a configured server with all routes and middleware.
func NewServer(cfg *config.Config, svc *session.Service, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		logger:  slog.Default(),
		version: "dev",

		wsPongWait: pongWait,
	}
	for _, opt := range opts {
		opt(s)
	}

	pages, err := web.Templates(templateFuncs)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.pages = pages
	s.router = s.buildRouter()
	return s, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.API.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Websocket sessions outlive the per-request timeout.
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout + 5*time.Second))

		r.Get("/health", s.handleHealth)

		// Page
		r.Get("/", s.handleIndex)
		r.Post("/fetch", s.handleFetchPage)
		r.Post("/ask", s.handleAskPage)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.StaticFS()))))

		// API v1 routes
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", s.handleHealth)
			r.Post("/fetch", s.handleFetch)
			r.Post("/ask", s.handleAsk)
			r.Get("/config/keys", s.handleConfigKeys)
		})
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// QueryInput is the user's raw form input. Empty fields take the configured
// defaults; dates are YYYY-MM-DD in IST.
type QueryInput struct {
	Market string `json:"market"`
	Ticker string `json:"ticker"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// FetchRequest is the body for POST /api/v1/fetch.
type FetchRequest struct {
	QueryInput
}

// AskRequest is the body for POST /api/v1/ask. The series is re-fetched for
// the query on every call.
type AskRequest struct {
	QueryInput
	Question string `json:"question"`
}

// AskResponse is the payload of a successful POST /api/v1/ask.
type AskResponse struct {
	Symbol string         `json:"symbol"`
	Rows   int            `json:"rows"`
	Answer *models.Answer `json:"answer"`
}

// Query resolves defaults and parses the input into a Query. The ticker
// is left as typed; validation belongs to the session layer.
func (in QueryInput) Query(ui config.UIConfig) (models.Query, error) {
	q := models.Query{Ticker: in.Ticker}

	market := strings.TrimSpace(in.Market)
	if market == "" {
		market = ui.DefaultMarket
	}
	if market == "" {
		market = string(models.MarketNSE)
	}
	m, err := models.ParseMarket(market)
	if err != nil {
		return q, err
	}
	q.Market = m

	start := strings.TrimSpace(in.Start)
	if start == "" {
		start = ui.DefaultStart
	}
	if start == "" {
		start = utils.DefaultStartDate
	}
	if q.Start, err = utils.ParseDateIST(start); err != nil {
		return q, fmt.Errorf("invalid start date %q", in.Start)
	}

	if end := strings.TrimSpace(in.End); end == "" {
		q.End = utils.TodayIST()
	} else if q.End, err = utils.ParseDateIST(end); err != nil {
		return q, fmt.Errorf("invalid end date %q", in.End)
	}
	return q, nil
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       s.version,
			"source":        s.svc.Source.Name(),
			"market_status": utils.MarketStatus(),
			"time_ist":      utils.FormatDateTimeIST(utils.NowIST()),
		},
	})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	q, err := req.Query(s.cfg.UI)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res := s.svc.Fetch(ctx, q)
	writeJSON(w, fetchHTTPStatus(res.Status), APIResponse{
		Success: res.OK(),
		Data:    res,
		Error:   res.Message,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	q, err := req.Query(s.cfg.UI)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	fetched := s.svc.Fetch(ctx, q)
	if !fetched.OK() {
		writeError(w, fetchHTTPStatus(fetched.Status), fetched.Message)
		return
	}

	res := s.svc.Answer(ctx, fetched.Series, req.Question)
	if !res.OK() {
		writeError(w, answerHTTPStatus(res.Status), res.Message)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: AskResponse{
			Symbol: fetched.Symbol,
			Rows:   fetched.Series.Len(),
			Answer: res.Answer,
		},
	})
}

func (s *Server) handleConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}

func fetchHTTPStatus(st session.FetchStatus) int {
	switch st {
	case session.FetchOK:
		return http.StatusOK
	case session.FetchInvalidTicker:
		return http.StatusBadRequest
	case session.FetchNoData:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func answerHTTPStatus(st session.AnswerStatus) int {
	switch st {
	case session.AnswerOK:
		return http.StatusOK
	case session.AnswerEmptyQuestion, session.AnswerNoSeries:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
