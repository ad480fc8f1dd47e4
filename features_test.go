package main

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticCandles(n int) []Candle {
	out := make([]Candle, n)
	price := 100.0
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price += math.Sin(float64(i)/7) * 0.8
		open := price
		closeP := price + math.Cos(float64(i)/5)*0.3
		high := math.Max(open, closeP) + 0.5
		low := math.Min(open, closeP) - 0.5
		out[i] = Candle{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeP,
			Volume: 1000 + float64(i%13)*10,
		}
		price = closeP
	}
	return out
}

func TestBuildFeaturesDeterministic(t *testing.T) {
	candles := syntheticCandles(260)
	first := BuildFeatures(candles)
	second := BuildFeatures(candles)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i], "row %d differs between runs", i)
	}
}

func TestBuildFeaturesNoNaNOrInf(t *testing.T) {
	candles := syntheticCandles(260)
	rows := BuildFeatures(candles)
	for i, r := range rows {
		for j, v := range r.FeatureValues() {
			assert.False(t, math.IsNaN(v), "row %d col %d is NaN", i, j)
			assert.False(t, math.IsInf(v, 0), "row %d col %d is Inf", i, j)
		}
	}
}

func TestFeatureColumnContract(t *testing.T) {
	names := FeatureColumnNames()
	a := BuildFeatures(syntheticCandles(260))
	b := BuildFeatures(syntheticCandles(300))
	require.Equal(t, len(names), len(a[0].FeatureValues()))
	require.Equal(t, len(names), len(b[0].FeatureValues()))
}

func TestCandleInvariantHoldsForSyntheticFixture(t *testing.T) {
	for _, c := range syntheticCandles(50) {
		assert.True(t, c.Valid(), "candle invariant violated: %+v", c)
	}
}

func TestBollingerPositionAndWidth(t *testing.T) {
	candles := syntheticCandles(260)
	rows := BuildFeatures(candles)
	last := rows[len(rows)-1]
	assert.False(t, math.IsNaN(last.BBPosition))
	assert.False(t, math.IsNaN(last.BBWidth))
}
