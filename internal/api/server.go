// Package api serves backtests over HTTP and streams engine steps over websockets.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/marketdata"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
)

// Options for creating Server.
type Options struct {
	Provider    marketdata.Provider
	RunStore    storage.RunStore
	Engine      backtest.Config
	Concurrency int
	Logger      *zap.Logger
	Metrics     *observability.Metrics

	// Timeout bounds each non-streaming request.
	Timeout time.Duration
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	provider    marketdata.Provider
	runs        storage.RunStore
	engineCfg   backtest.Config
	concurrency int
	logger      *zap.Logger
	metrics     *observability.Metrics
	timeout     time.Duration
	started     time.Time

	// State
	mu         sync.Mutex
	backtests  int
	streams    int
	lastRun    time.Time
	lastTicker string
}

// NewServer creates a Server. Provider and RunStore are required.
func NewServer(opts Options) *Server {
	s := &Server{
		provider:    opts.Provider,
		runs:        opts.RunStore,
		engineCfg:   opts.Engine,
		concurrency: opts.Concurrency,
		logger:      logging.OrNop(opts.Logger),
		metrics:     opts.Metrics,
		timeout:     opts.Timeout,
		started:     time.Now(),
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultMetrics
	}
	if s.engineCfg == (backtest.Config{}) {
		s.engineCfg = backtest.DefaultConfig()
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	return s
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", observability.Handler())
	r.Get("/status", s.handleStatus)

	r.Route("/api/backtests", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Post("/", s.handleCreateBacktest)
		r.Get("/", s.handleListBacktests)
		r.Get("/{runID}", s.handleGetBacktest)
	})

	// Streaming is exempt from the request timeout.
	r.Get("/ws/backtests", s.handleStream)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(began)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	Started       time.Time `json:"started"`
	Backtests     int       `json:"backtests"`
	Streams       int       `json:"streams"`
	LastRun       time.Time `json:"last_run,omitempty"`
	LastTicker    string    `json:"last_ticker,omitempty"`
	InitialCap    float64   `json:"initial_capital"`
	Commission    float64   `json:"commission_rate"`
	MaxConcurrent int       `json:"concurrency"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Started:       s.started,
		Backtests:     s.backtests,
		Streams:       s.streams,
		LastRun:       s.lastRun,
		LastTicker:    s.lastTicker,
		InitialCap:    s.engineCfg.InitialCapital,
		Commission:    s.engineCfg.CommissionRate,
		MaxConcurrent: s.concurrency,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordBacktest(ticker string, stream bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stream {
		s.streams++
	} else {
		s.backtests++
	}
	s.lastRun = time.Now().UTC()
	s.lastTicker = ticker
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
