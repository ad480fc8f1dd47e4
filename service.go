// FILE: service.go
// Package main – Signal Service (C8, §4.8).
//
// A synchronous request/response surface over net/http.ServeMux, in the
// teacher's main.go style (plain handlers registered on a mux, JSON
// responses via encoding/json, promhttp.Handler mounted alongside). The
// request counter is a single atomic int64 — the spec explicitly allows
// "at most off-by-one" races (§5), so no lock is used.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SignalService exposes /signal, /healthz, /metrics, / (§4.8).
type SignalService struct {
	settings  Settings
	market    *MarketDataClient
	engine    *InferenceEngine
	log       *slog.Logger
	startedAt time.Time

	requestCount int64
}

func NewSignalService(settings Settings, market *MarketDataClient, engine *InferenceEngine, log *slog.Logger) *SignalService {
	return &SignalService{settings: settings, market: market, engine: engine, log: log, startedAt: time.Now()}
}

// Mux builds the HTTP handler for this service.
func (s *SignalService) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/signal", s.handleSignal)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/metrics", promhttp.Handler().ServeHTTP)
	mux.HandleFunc("/", s.handleBanner)
	return mux
}

type signalResponse struct {
	Decision    string   `json:"decision"`
	Confidence  float64  `json:"confidence"`
	Probability float64  `json:"probability"`
	Uncertainty *float64 `json:"uncertainty,omitempty"`
	ModelID     string   `json:"model_id"`
	Reasoning   []string `json:"reasoning"`
	LatencyMS   int64    `json:"latency_ms"`
	RequestID   string   `json:"request_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *SignalService) handleSignal(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.requestCount, 1)
	mtxSignalRequests.Inc()
	requestID := uuid.NewString()

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeJSONError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "1h"
	}
	if !ValidTimeframe(timeframe) {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unrecognized timeframe %q", timeframe))
		return
	}
	uncertainty := false
	if raw := r.URL.Query().Get("uncertainty"); raw != "" {
		uncertainty, _ = strconv.ParseBool(raw)
	}

	start := time.Now()
	warmup := 100
	limit := s.settings.SeqLen + warmup

	candles, err := s.market.GetKlines(r.Context(), symbol, timeframe, limit, nil, nil)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	signal, err := s.engine.Predict(candles, uncertainty, requestID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	mtxDecisions.WithLabelValues(string(signal.Decision)).Inc()

	resp := signalResponse{
		Decision:    string(signal.Decision),
		Confidence:  signal.Confidence,
		Probability: signal.Probability,
		Uncertainty: signal.Uncertainty,
		ModelID:     signal.ModelID,
		Reasoning:   signal.Reasoning,
		LatencyMS:   time.Since(start).Milliseconds(),
		RequestID:   requestID,
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeEngineError maps an engine/client error to the status class §7
// names: InsufficientData -> 4xx, everything else -> 5xx.
func (s *SignalService) writeEngineError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientData
	if errors.As(err, &insufficient) {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("got %d candles, need %d", insufficient.Got, insufficient.Need))
		return
	}
	var clientErr *UpstreamClientError
	if errors.As(err, &clientErr) {
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSONError(w, http.StatusInternalServerError, err.Error())
}

type healthzResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	EngineState string `json:"engine_state"`
}

func (s *SignalService) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthzResponse{
		Status:      "ok",
		ModelLoaded: s.engine.Loaded(),
		EngineState: string(s.engine.State()),
	})
}

type bannerResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *SignalService) handleBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, bannerResponse{
		Name:    "Nirvana trading-signal service",
		Version: "1.0.0",
		Status:  "operational",
		Endpoints: map[string]string{
			"health": "/healthz",
			"signal": "/signal?symbol=BTCUSDT&timeframe=15m",
			"metrics": "/metrics",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
