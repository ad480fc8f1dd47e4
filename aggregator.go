// FILE: aggregator.go
// Package main – Real-time Aggregator (C9, §4.9) and websocket ingestion.
//
// TradeAggregator folds a stream of trade ticks into closed OHLCV candles
// at an arbitrary sub-minute interval; grounded on original_source's
// src/data/binance_ws.py OHLCVAggregator bucket-folding logic. The
// websocket reconnect loop is adapted from MooArnon-time-series-rag-agent's
// internal/market KLineStreamer (dial, read-until-error, sleep, reconnect),
// generalized from a kline stream to the raw aggTrade envelope this spec
// names in §6.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Trade is one parsed aggTrade tick (§6 websocket envelope).
type Trade struct {
	Symbol   string
	TimeMs   int64
	Price    float64
	Quantity float64
}

// TradeAggregator folds a stream of Trades for one (symbol, interval) into
// closed Candles. Not safe for concurrent use from multiple goroutines.
type TradeAggregator struct {
	symbol         string
	intervalMs     int64
	currentBucket  int64
	current        Candle
	hasCurrent     bool
}

// NewTradeAggregator constructs an aggregator with interval_seconds = N
// (§4.9).
func NewTradeAggregator(symbol string, intervalSeconds int) *TradeAggregator {
	return &TradeAggregator{symbol: symbol, intervalMs: int64(intervalSeconds) * 1000}
}

// ProcessTrade folds one trade into the running candle. It returns the
// just-closed Candle (and true) exactly once, the instant a bucket
// transition is observed; otherwise it returns (Candle{}, false).
func (a *TradeAggregator) ProcessTrade(t Trade) (Candle, bool) {
	bucketStart := (t.TimeMs / a.intervalMs) * a.intervalMs

	if !a.hasCurrent {
		a.startBucket(bucketStart, t)
		return Candle{}, false
	}

	if bucketStart > a.currentBucket {
		closed := a.current
		a.startBucket(bucketStart, t)
		return closed, true
	}

	a.current.High = max(a.current.High, t.Price)
	a.current.Low = min(a.current.Low, t.Price)
	a.current.Close = t.Price
	a.current.Volume += t.Quantity
	return Candle{}, false
}

func (a *TradeAggregator) startBucket(bucketStart int64, t Trade) {
	a.currentBucket = bucketStart
	a.current = Candle{
		Time:   time.UnixMilli(bucketStart).UTC(),
		Open:   t.Price,
		High:   t.Price,
		Low:    t.Price,
		Close:  t.Price,
		Volume: t.Quantity,
	}
	a.hasCurrent = true
}

// aggTradeEnvelope is the subset of the combined-stream wrapper and
// aggTrade payload the aggregator consumes (§6).
type aggTradeEnvelope struct {
	Data struct {
		EventType string `json:"e"`
		Symbol    string `json:"s"`
		TradeTime int64  `json:"T"`
		Price     string `json:"p"`
		Quantity  string `json:"q"`
	} `json:"data"`
}

// ParseTrade decodes one raw websocket message into a Trade. Malformed
// messages return MalformedMessage and must be dropped by the caller
// without any partial aggregator update (§4.9 "Failure").
func ParseTrade(message []byte) (Trade, error) {
	var env aggTradeEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return Trade{}, &MalformedMessage{Cause: err}
	}
	if env.Data.EventType != "aggTrade" {
		return Trade{}, &MalformedMessage{Cause: fmt.Errorf("unexpected event type %q", env.Data.EventType)}
	}
	price, err := strconv.ParseFloat(env.Data.Price, 64)
	if err != nil {
		return Trade{}, &MalformedMessage{Cause: err}
	}
	qty, err := strconv.ParseFloat(env.Data.Quantity, 64)
	if err != nil {
		return Trade{}, &MalformedMessage{Cause: err}
	}
	return Trade{
		Symbol:   env.Data.Symbol,
		TimeMs:   env.Data.TradeTime,
		Price:    price,
		Quantity: qty,
	}, nil
}

// RunAggTradeStream dials wsBase's combined aggTrade stream for symbols
// and feeds each closed candle from a per-symbol TradeAggregator to onCandle.
// It reconnects with a backoff sleep on any read error, and exits cleanly
// when ctx is cancelled (§5 "Websocket recv and reconnect sleeps").
func RunAggTradeStream(ctx context.Context, wsBase string, symbols []string, intervalSeconds int, log *slog.Logger, onCandle func(symbol string, c Candle)) {
	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = strings.ToLower(s) + "@aggTrade"
	}
	url := fmt.Sprintf("%s/stream?streams=%s", wsBase, strings.Join(streams, "/"))

	aggregators := make(map[string]*TradeAggregator, len(symbols))
	for _, s := range symbols {
		aggregators[s] = NewTradeAggregator(s, intervalSeconds)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			log.Error("aggregator: websocket connect failed", "error", err)
			if !sleepOrDone(ctx, 5*time.Second) {
				return
			}
			continue
		}

		readLoop(ctx, conn, aggregators, log, onCandle)
		conn.Close()

		if !sleepOrDone(ctx, time.Second) {
			return
		}
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, aggregators map[string]*TradeAggregator, log *slog.Logger, onCandle func(symbol string, c Candle)) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warn("aggregator: websocket read error, reconnecting", "error", err)
			return
		}
		trade, err := ParseTrade(message)
		if err != nil {
			log.Warn("aggregator: dropping malformed trade message", "error", err)
			continue
		}
		agg, ok := aggregators[trade.Symbol]
		if !ok {
			continue
		}
		if closed, ok := agg.ProcessTrade(trade); ok {
			onCandle(trade.Symbol, closed)
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
