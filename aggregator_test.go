package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeAggregatorFoldsWithinBucket(t *testing.T) {
	agg := NewTradeAggregator("BTCUSDT", 5)

	_, closed := agg.ProcessTrade(Trade{Symbol: "BTCUSDT", TimeMs: 1000, Price: 100, Quantity: 1})
	assert.False(t, closed)

	_, closed = agg.ProcessTrade(Trade{Symbol: "BTCUSDT", TimeMs: 2000, Price: 105, Quantity: 2})
	assert.False(t, closed)

	_, closed = agg.ProcessTrade(Trade{Symbol: "BTCUSDT", TimeMs: 3000, Price: 95, Quantity: 1})
	assert.False(t, closed)

	assert.Equal(t, 100.0, agg.current.Open)
	assert.Equal(t, 105.0, agg.current.High)
	assert.Equal(t, 95.0, agg.current.Low)
	assert.Equal(t, 95.0, agg.current.Close)
	assert.Equal(t, 4.0, agg.current.Volume)
}

func TestTradeAggregatorEmitsOnBucketTransition(t *testing.T) {
	agg := NewTradeAggregator("BTCUSDT", 5)
	agg.ProcessTrade(Trade{Symbol: "BTCUSDT", TimeMs: 1000, Price: 100, Quantity: 1})
	agg.ProcessTrade(Trade{Symbol: "BTCUSDT", TimeMs: 4000, Price: 110, Quantity: 1})

	closed, ok := agg.ProcessTrade(Trade{Symbol: "BTCUSDT", TimeMs: 5000, Price: 120, Quantity: 2})
	require.True(t, ok)
	assert.Equal(t, 100.0, closed.Open)
	assert.Equal(t, 110.0, closed.High)
	assert.Equal(t, 100.0, closed.Low)
	assert.Equal(t, 110.0, closed.Close)
	assert.Equal(t, 2.0, closed.Volume)
	assert.True(t, closed.Valid())

	assert.Equal(t, 120.0, agg.current.Open)
}

func TestTradeAggregatorIdempotentReplay(t *testing.T) {
	trades := []Trade{
		{Symbol: "ETHUSDT", TimeMs: 1000, Price: 10, Quantity: 1},
		{Symbol: "ETHUSDT", TimeMs: 2000, Price: 11, Quantity: 1},
		{Symbol: "ETHUSDT", TimeMs: 6000, Price: 12, Quantity: 1},
		{Symbol: "ETHUSDT", TimeMs: 11000, Price: 9, Quantity: 1},
	}

	run := func() []Candle {
		agg := NewTradeAggregator("ETHUSDT", 5)
		var closed []Candle
		for _, tr := range trades {
			if c, ok := agg.ProcessTrade(tr); ok {
				closed = append(closed, c)
			}
		}
		return closed
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestParseTradeRejectsMalformedMessage(t *testing.T) {
	_, err := ParseTrade([]byte(`not json`))
	require.Error(t, err)
	var malformed *MalformedMessage
	require.ErrorAs(t, err, &malformed)
}

func TestParseTradeAcceptsAggTradeEnvelope(t *testing.T) {
	msg := []byte(`{"data":{"e":"aggTrade","s":"BTCUSDT","T":1700000000000,"p":"65000.50","q":"0.001"}}`)
	trade, err := ParseTrade(msg)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", trade.Symbol)
	assert.Equal(t, int64(1700000000000), trade.TimeMs)
	assert.InDelta(t, 65000.50, trade.Price, 1e-9)
	assert.InDelta(t, 0.001, trade.Quantity, 1e-9)
}
