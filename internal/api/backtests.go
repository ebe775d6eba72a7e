package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/compare"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/marketdata"
	"backtest-lab/internal/storage"
	"backtest-lab/internal/strategy"
)

var errBadRequest = errors.New("bad request")

// BacktestRequest is the body of POST /api/backtests.
type BacktestRequest struct {
	Ticker         string   `json:"ticker"`
	Start          string   `json:"start"` // YYYY-MM-DD
	End            string   `json:"end"`   // YYYY-MM-DD
	Strategies     []string `json:"strategies"`
	InitialCapital float64  `json:"initial_capital,omitempty"`
	CommissionRate *float64 `json:"commission_rate,omitempty"`
}

// BacktestResponse is the comparison result.
type BacktestResponse struct {
	Ticker  string           `json:"ticker"`
	Start   string           `json:"start"`
	End     string           `json:"end"`
	Bars    int              `json:"bars"`
	Results []StrategyResult `json:"results"`
}

// StrategyResult is one strategy's outcome.
type StrategyResult struct {
	Name       string               `json:"name"`
	RunID      string               `json:"run_id"`
	StrategyID string               `json:"strategy_id"`
	FinalValue float64              `json:"final_value"`
	Metrics    domain.MetricsReport `json:"metrics"`
}

// RunResponse is a stored run.
type RunResponse struct {
	RunID           string               `json:"run_id"`
	Ticker          string               `json:"ticker"`
	Strategy        string               `json:"strategy"`
	StrategyID      string               `json:"strategy_id"`
	Start           string               `json:"start"`
	End             string               `json:"end"`
	InitialCapital  float64              `json:"initial_capital"`
	CommissionRate  float64              `json:"commission_rate"`
	Metrics         domain.MetricsReport `json:"metrics"`
	Dates           []string             `json:"dates,omitempty"`
	PortfolioValues []float64            `json:"portfolio_values,omitempty"`
	Trades          []TradeResponse      `json:"trades,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// TradeResponse is one round trip of a stored run.
type TradeResponse struct {
	EntryDate  string  `json:"entry_date"`
	ExitDate   string  `json:"exit_date"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Return     float64 `json:"return"`
	Commission float64 `json:"commission"`
	Open       bool    `json:"open"`
}

// parsedRequest is a validated BacktestRequest.
type parsedRequest struct {
	ticker     string
	start, end time.Time
	configs    []domain.StrategyConfig
	engine     backtest.Config
}

func (s *Server) parseRequest(req BacktestRequest) (*parsedRequest, error) {
	p := &parsedRequest{
		ticker: strings.ToUpper(strings.TrimSpace(req.Ticker)),
		engine: s.engineCfg,
	}
	if p.ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", errBadRequest)
	}

	var err error
	if p.start, err = time.Parse(domain.DateLayout, req.Start); err != nil {
		return nil, fmt.Errorf("%w: start: %v", errBadRequest, err)
	}
	if p.end, err = time.Parse(domain.DateLayout, req.End); err != nil {
		return nil, fmt.Errorf("%w: end: %v", errBadRequest, err)
	}
	if p.end.Before(p.start) {
		return nil, fmt.Errorf("%w: end %s before start %s", errBadRequest, req.End, req.Start)
	}

	if len(req.Strategies) == 0 {
		p.configs = strategy.DefaultConfigs()
	} else if p.configs, err = strategy.ParseStrategies(req.Strategies); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	for _, cfg := range p.configs {
		if _, err := strategy.FromConfig(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}

	if req.InitialCapital != 0 {
		p.engine.InitialCapital = req.InitialCapital
	}
	if req.CommissionRate != nil {
		p.engine.CommissionRate = *req.CommissionRate
	}
	if err := p.engine.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return p, nil
}

func (s *Server) handleCreateBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	p, err := s.parseRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	prices, err := s.provider.Fetch(ctx, p.ticker, p.start, p.end)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	runner, err := compare.New(compare.Options{
		Engine:      p.engine,
		Concurrency: s.concurrency,
		RunStore:    s.runs,
		Logger:      s.logger,
		Metrics:     s.metrics,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	outcomes, err := runner.Run(ctx, prices, p.configs)
	if err != nil {
		s.logger.Warn("backtest failed", zap.String("ticker", p.ticker), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	s.recordBacktest(p.ticker, false)

	resp := BacktestResponse{
		Ticker: p.ticker,
		Start:  p.start.Format(domain.DateLayout),
		End:    p.end.Format(domain.DateLayout),
		Bars:   prices.Len(),
	}
	for _, name := range compare.Names(outcomes, p.configs) {
		out := outcomes[name]
		resp.Results = append(resp.Results, StrategyResult{
			Name:       name,
			RunID:      out.RunID,
			StrategyID: out.Result.Strategy,
			FinalValue: out.Result.FinalValue(),
			Metrics:    out.Metrics,
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetByID(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run, true))
}

// handleListBacktests lists stored runs for ?ticker= without their series.
func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.URL.Query().Get("ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: ticker query parameter is required", errBadRequest))
		return
	}
	runs, err := s.runs.GetByTicker(r.Context(), ticker)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func toRunResponse(run *domain.RunRecord, detail bool) RunResponse {
	resp := RunResponse{
		RunID:          run.RunID,
		Ticker:         run.Ticker,
		Strategy:       run.Strategy,
		Start:          run.StartDate.Format(domain.DateLayout),
		End:            run.EndDate.Format(domain.DateLayout),
		InitialCapital: run.InitialCapital,
		CommissionRate: run.CommissionRate,
		Metrics:        run.Metrics,
		CreatedAt:      run.CreatedAt,
	}
	if run.Result == nil {
		return resp
	}
	resp.StrategyID = run.Result.Strategy
	if !detail {
		return resp
	}
	resp.PortfolioValues = run.Result.PortfolioValues
	resp.Dates = make([]string, len(run.Result.Dates))
	for i, d := range run.Result.Dates {
		resp.Dates[i] = d.Format(domain.DateLayout)
	}
	for _, t := range run.Result.Trades {
		resp.Trades = append(resp.Trades, TradeResponse{
			EntryDate:  t.EntryDate.Format(domain.DateLayout),
			ExitDate:   t.ExitDate.Format(domain.DateLayout),
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Return:     t.Return(),
			Commission: t.Commission,
			Open:       t.Open,
		})
	}
	return resp
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, compare.ErrInvalidConfig),
		errors.Is(err, backtest.ErrInvalidInput),
		errors.Is(err, strategy.ErrUnknownStrategyType),
		errors.Is(err, strategy.ErrInvalidWindow),
		errors.Is(err, domain.ErrEmptySeries),
		errors.Is(err, domain.ErrUnorderedBars):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, marketdata.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
