// FILE: marketdata.go
// Package main – Market Data Client (C2, §4.2).
//
// Converts the upstream REST endpoints into typed Go responses, absorbing
// transient failures via httpclient.go's retry policy. Kline-array parsing
// is grounded on the teacher's binance_broker.go GetRecentCandles (the
// 12-column array-of-arrays shape, openTime in ms, numeric fields carried
// as JSON strings).
package main

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"
)

// MarketDataClient is the rate-limited, retrying client for klines and 24h
// ticker statistics (§4.2). It is long-lived and shared across callers.
type MarketDataClient struct {
	http *httpClient
}

// NewMarketDataClient constructs a client against restBase. Construction is
// explicit per §9 — no package-level singleton.
func NewMarketDataClient(restBase string, maxRetries int, jitter float64) *MarketDataClient {
	return &MarketDataClient{http: newHTTPClient(restBase, maxRetries, jitter)}
}

// Close releases the underlying connection pool. Idempotent.
func (m *MarketDataClient) Close() { m.http.close() }

// GetKlines returns up to min(limit, 1000) candles ordered by timestamp
// ascending for symbol/interval.
func (m *MarketDataClient) GetKlines(ctx context.Context, symbol, interval string, limit int, start, end *time.Time) ([]Candle, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	if start != nil {
		q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if end != nil {
		q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	}

	body, err := m.http.get(ctx, "/api/v3/klines", q)
	if err != nil {
		return nil, err
	}

	// kline row: [openTime, open, high, low, close, volume, closeTime,
	// quoteVolume, trades, takerBuyBase, takerBuyQuote, ignore]
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	out := make([]Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		openTimeMs, _ := row[0].(float64)
		open, _ := strconv.ParseFloat(toStr(row[1]), 64)
		high, _ := strconv.ParseFloat(toStr(row[2]), 64)
		low, _ := strconv.ParseFloat(toStr(row[3]), 64)
		cls, _ := strconv.ParseFloat(toStr(row[4]), 64)
		vol, _ := strconv.ParseFloat(toStr(row[5]), 64)
		out = append(out, Candle{
			Time:   time.UnixMilli(int64(openTimeMs)).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cls,
			Volume: vol,
		})
	}
	return out, nil
}

// Ticker24h is the subset of 24h ticker fields the core consumes (§6).
type Ticker24h struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

// Get24hTicker returns all symbols' 24h stats when symbol is empty, or a
// single symbol's stats otherwise.
func (m *MarketDataClient) Get24hTicker(ctx context.Context, symbol string) ([]Ticker24h, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	body, err := m.http.get(ctx, "/api/v3/ticker/24hr", q)
	if err != nil {
		return nil, err
	}
	if symbol != "" {
		var single Ticker24h
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, err
		}
		return []Ticker24h{single}, nil
	}
	var all []Ticker24h
	if err := json.Unmarshal(body, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func toStr(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
