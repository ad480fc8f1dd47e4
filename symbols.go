// FILE: symbols.go
// Package main – Symbol Selector (C3, §4.3).
//
// Grounded on original_source's src/data/symbols.py: filter to *USDT pairs,
// drop leveraged tokens, sort by 24h quote volume descending, take top_n.
// Never raises — on any error it returns the hard-coded fallback list, in
// the teacher's defensive style (binance_broker.go's conservative fallback
// constants follow the same "never block the caller" idea).
package main

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

var leveragedSubstrings = []string{"DOWN", "UP", "BULL", "BEAR"}

// fallbackSymbols is the static universe used when the live fetch fails.
var fallbackSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT",
	"ADAUSDT", "AVAXUSDT", "DOGEUSDT", "DOTUSDT", "MATICUSDT",
	"LINKUSDT", "LTCUSDT", "UNIUSDT", "ATOMUSDT", "ETCUSDT",
	"XLMUSDT", "ALGOUSDT", "VETUSDT", "FILUSDT", "TRXUSDT",
}

// SymbolSelector produces the active universe (C3).
type SymbolSelector struct {
	client *MarketDataClient
	log    *slog.Logger
}

func NewSymbolSelector(client *MarketDataClient, log *slog.Logger) *SymbolSelector {
	return &SymbolSelector{client: client, log: log}
}

// GetTopNUSDT returns the first topN USDT pairs by 24h quote volume,
// excluding leveraged tokens. Never returns an error; on failure it falls
// back to the static list.
func (s *SymbolSelector) GetTopNUSDT(ctx context.Context, topN int) []string {
	tickers, err := s.client.Get24hTicker(ctx, "")
	if err != nil {
		s.log.Warn("symbol selector: falling back to static universe", "error", err)
		return cloneFallback(topN)
	}

	type volSymbol struct {
		symbol string
		volume float64
	}
	var candidates []volSymbol
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		if isLeveraged(t.Symbol) {
			continue
		}
		vol, _ := strconv.ParseFloat(t.QuoteVolume, 64)
		candidates = append(candidates, volSymbol{symbol: t.Symbol, volume: vol})
	}
	if len(candidates) == 0 {
		s.log.Warn("symbol selector: no USDT pairs found, falling back")
		return cloneFallback(topN)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].volume > candidates[j].volume })

	if topN > len(candidates) {
		topN = len(candidates)
	}
	out := make([]string, topN)
	for i := 0; i < topN; i++ {
		out[i] = candidates[i].symbol
	}
	return out
}

func isLeveraged(symbol string) bool {
	for _, sub := range leveragedSubstrings {
		if strings.Contains(symbol, sub) {
			return true
		}
	}
	return false
}

func cloneFallback(topN int) []string {
	if topN <= 0 || topN > len(fallbackSymbols) {
		topN = len(fallbackSymbols)
	}
	out := make([]string, topN)
	copy(out, fallbackSymbols[:topN])
	return out
}
