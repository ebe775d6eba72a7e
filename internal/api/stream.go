package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/compare"
	"backtest-lab/internal/domain"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Stream message types.
const (
	MessageStep   = "step"
	MessageResult = "result"
	MessageError  = "error"
)

// StreamMessage is one websocket frame of a streamed backtest.
// Exactly one of Step, Result or Error is set, matching Type.
type StreamMessage struct {
	Type     string         `json:"type"`
	Strategy string         `json:"strategy,omitempty"`
	Step     *StepPayload   `json:"step,omitempty"`
	Result   *ResultPayload `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// StepPayload is the portfolio state after one bar.
type StepPayload struct {
	Index  int     `json:"index"`
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
	Signal string  `json:"signal"`
	Cash   float64 `json:"cash"`
	Shares float64 `json:"shares"`
	Value  float64 `json:"value"`
	Traded bool    `json:"traded"`
}

// ResultPayload summarizes a finished run.
type ResultPayload struct {
	RunID      string               `json:"run_id"`
	FinalValue float64              `json:"final_value"`
	Metrics    domain.MetricsReport `json:"metrics"`
}

// handleStream runs one strategy and streams every engine step, then the result.
// Query: ticker, start, end, strategy (default BUY_AND_HOLD).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expr := q.Get("strategy")
	if expr == "" {
		expr = domain.StrategyTypeBuyAndHold
	}
	p, err := s.parseRequest(BacktestRequest{
		Ticker:     q.Get("ticker"),
		Start:      q.Get("start"),
		End:        q.Get("end"),
		Strategies: []string{expr},
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Load before upgrading so data errors surface as plain HTTP statuses.
	prices, err := s.provider.Fetch(r.Context(), p.ticker, p.start, p.end)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.metrics.ActiveStreams.Inc()
	defer s.metrics.ActiveStreams.Dec()

	log := s.logger.With(zap.String("ticker", p.ticker), zap.String("strategy", expr))

	// Steps are written from the run goroutine; the result is written after Run returns.
	var writeErr error
	send := func(msg StreamMessage) {
		if writeErr != nil {
			return
		}
		if writeErr = conn.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
			return
		}
		writeErr = conn.WriteJSON(msg)
	}

	runner, err := compare.New(compare.Options{
		Engine:      p.engine,
		Concurrency: 1,
		RunStore:    s.runs,
		Logger:      log,
		Metrics:     s.metrics,
		Observer: func(name string, step backtest.Step) {
			send(stepMessage(name, step))
		},
	})
	if err != nil {
		send(StreamMessage{Type: MessageError, Error: err.Error()})
		return
	}

	outcomes, err := runner.Run(r.Context(), prices, p.configs)
	if err != nil {
		log.Warn("streamed backtest failed", zap.Error(err))
		send(StreamMessage{Type: MessageError, Error: err.Error()})
		return
	}
	s.recordBacktest(p.ticker, true)

	for _, name := range compare.Names(outcomes, p.configs) {
		out := outcomes[name]
		send(StreamMessage{
			Type:     MessageResult,
			Strategy: name,
			Result: &ResultPayload{
				RunID:      out.RunID,
				FinalValue: out.Result.FinalValue(),
				Metrics:    out.Metrics,
			},
		})
	}
	if writeErr != nil {
		log.Debug("stream client went away", zap.Error(writeErr))
		return
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Debug("set close deadline failed", zap.Error(err))
		return
	}
	closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, fmt.Sprintf("%d bars", prices.Len()))
	if err := conn.WriteMessage(websocket.CloseMessage, closing); err != nil {
		log.Debug("write close frame failed", zap.Error(err))
	}
}

func stepMessage(name string, step backtest.Step) StreamMessage {
	return StreamMessage{
		Type:     MessageStep,
		Strategy: name,
		Step: &StepPayload{
			Index:  step.Index,
			Date:   step.Date.Format(domain.DateLayout),
			Price:  step.Price,
			Signal: step.Signal.String(),
			Cash:   step.Cash,
			Shares: step.Shares,
			Value:  step.Value,
			Traded: step.Traded,
		},
	}
}
