package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lpmanager/pkg/lifecycle"
	"lpmanager/pkg/metrics"
	"lpmanager/pkg/pool/whirlpool"
	"lpmanager/pkg/protocol"
	"lpmanager/pkg/sol"
)

// Quoter is the read-only part of *lifecycle.Manager.
type Quoter interface {
	QuoteIncrease(ctx context.Context, positionMint solana.PublicKey, input whirlpool.QuoteInput, slippageBps uint16) (whirlpool.LiquidityQuote, error)
	QuoteDecrease(ctx context.Context, positionMint solana.PublicKey, input whirlpool.QuoteInput, slippageBps uint16) (whirlpool.LiquidityQuote, error)
	QuoteOpen(ctx context.Context, pool solana.PublicKey, tickLower, tickUpper int32, input whirlpool.QuoteInput, slippageBps uint16) (whirlpool.LiquidityQuote, error)
	QuotePositionFees(ctx context.Context, positionMint solana.PublicKey) (lifecycle.PositionFees, error)
}

type server struct {
	quoter  Quoter
	metrics *metrics.Metrics
	logger  *zap.Logger
	started time.Time

	mu        sync.Mutex
	lastQuote time.Time
	quotes    uint64
}

func newServer(q Quoter, m *metrics.Metrics, logger *zap.Logger) *server {
	return &server{quoter: q, metrics: m, logger: logger, started: time.Now()}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote/increase", s.handlePositionQuote(true))
	mux.HandleFunc("/quote/decrease", s.handlePositionQuote(false))
	mux.HandleFunc("/quote/open", s.handleOpenQuote)
	mux.HandleFunc("/quote/fees", s.handleFees)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/", handleRoot)
	return corsMiddleware(mux)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "Whirlpool Position Quote Service",
		"status":  "running",
		"endpoints": map[string]string{
			"increase": "/quote/increase?position=<mint>&liquidity=|amountA=|amountB=&slippageBps=<bps>",
			"decrease": "/quote/decrease?position=<mint>&liquidity=|amountA=|amountB=&slippageBps=<bps>",
			"open":     "/quote/open?pool=<address>&tickLower=<i>&tickUpper=<i>&liquidity=|amountA=|amountB=",
			"fees":     "/quote/fees?position=<mint>",
			"health":   "/health",
			"metrics":  "/metrics",
		},
	})
}

func (s *server) handlePositionQuote(increase bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		started := time.Now()

		mint, err := queryPubkey(r, "position")
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		input, err := queryInput(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slippage, err := querySlippage(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		quote := s.quoter.QuoteDecrease
		if increase {
			quote = s.quoter.QuoteIncrease
		}
		q, err := quote(r.Context(), mint, input, slippage)
		if err != nil {
			s.writeQuoteError(w, err)
			return
		}
		s.served()
		writeJSON(w, http.StatusOK, QuoteResponse{
			PositionMint: mint.String(),
			Quote:        lifecycle.NewQuoteView(q),
			TimeTaken:    time.Since(started).String(),
		})
	}
}

func (s *server) handleOpenQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()

	pool, err := queryPubkey(r, "pool")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	lower, err := queryInt32(r, "tickLower")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	upper, err := queryInt32(r, "tickUpper")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	input, err := queryInput(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	slippage, err := querySlippage(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	q, err := s.quoter.QuoteOpen(r.Context(), pool, lower, upper, input, slippage)
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}
	s.served()
	writeJSON(w, http.StatusOK, QuoteResponse{
		Pool:      pool.String(),
		TickLower: &lower,
		TickUpper: &upper,
		Quote:     lifecycle.NewQuoteView(q),
		TimeTaken: time.Since(started).String(),
	})
}

func (s *server) handleFees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()

	mint, err := queryPubkey(r, "position")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	fees, err := s.quoter.QuotePositionFees(r.Context(), mint)
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}
	s.served()
	writeJSON(w, http.StatusOK, FeesResponse{
		PositionMint: mint.String(),
		Fees:         lifecycle.NewFeesView(fees),
		TimeTaken:    time.Since(started).String(),
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	health := HealthResponse{
		Status:    "healthy",
		LastQuote: s.lastQuote,
		Quotes:    s.quotes,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, health)
}

func (s *server) served() {
	s.mu.Lock()
	s.quotes++
	s.lastQuote = time.Now()
	s.mu.Unlock()
}

func (s *server) writeQuoteError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, protocol.ErrPositionNotFound), errors.Is(err, protocol.ErrPoolNotFound), errors.Is(err, protocol.ErrTickArrayNotFound):
		status = http.StatusNotFound
	case sol.IsRetryable(err):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("quote failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, err.Error(), status)
}

func queryPubkey(r *http.Request, name string) (solana.PublicKey, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return solana.PublicKey{}, fmt.Errorf("missing required parameter: %s", name)
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s: %v", name, err)
	}
	return key, nil
}

func queryInt32(r *http.Request, name string) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return int32(v), nil
}

// queryInput reads exactly one of liquidity, amountA and amountB.
func queryInput(r *http.Request) (whirlpool.QuoteInput, error) {
	var (
		input whirlpool.QuoteInput
		found int
	)
	for _, p := range []struct {
		name string
		make func(cosmath.Int) whirlpool.QuoteInput
	}{
		{"liquidity", whirlpool.ByLiquidity},
		{"amountA", whirlpool.ByTokenA},
		{"amountB", whirlpool.ByTokenB},
	} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		amount, ok := cosmath.NewIntFromString(raw)
		if !ok || amount.IsNegative() {
			return input, fmt.Errorf("invalid %s parameter (must be a non-negative integer)", p.name)
		}
		input = p.make(amount)
		found++
	}
	if found != 1 {
		return input, errors.New("exactly one of liquidity, amountA, amountB is required")
	}
	return input, nil
}

// querySlippage returns lifecycle.DefaultSlippage when the parameter is
// absent. An explicit 0 quotes exact bounds.
func querySlippage(r *http.Request) (uint16, error) {
	raw := r.URL.Query().Get("slippageBps")
	if raw == "" {
		return lifecycle.DefaultSlippage, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 10000 {
		return 0, errors.New("invalid slippageBps parameter (must be 0-10000)")
	}
	return uint16(v), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, QuoteError{Error: message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
