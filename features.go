// FILE: features.go
// Package main – Feature Builder (C4, §4.4).
//
// Pure, stateless transform from a candle history to a fully populated
// feature frame. Column order is part of the wire contract with the
// normalizer (§4.5) and must never change without a corresponding change
// to persisted NormalizerParameters. Grounded on the teacher's
// strategy.go (BuildExtendedFeatures/ComputePUpextended column-building
// style) and cross-checked against original_source's
// src/features/indicators.py for exact smoothing/window conventions
// (EWM adjust=False for EMA/MACD, cumulative VWAP/OBV, simple rolling
// mean ATR).
package main

import (
	"math"
	"time"
)

// FeatureRow is one row of the feature frame produced by BuildFeatures.
// Field order matches the normative column order in §4.4 exactly.
type FeatureRow struct {
	Timestamp time.Time

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	RSI    float64
	RSI6   float64
	StochK float64
	StochD float64

	MACD          float64
	MACDSignal    float64
	MACDHistogram float64

	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	BBWidth    float64
	BBPosition float64

	EMA9   float64
	EMA12  float64
	EMA26  float64
	EMA50  float64
	EMA200 float64

	SMA20  float64
	SMA50  float64
	SMA200 float64

	ATR  float64
	HV20 float64

	VWAP        float64
	OBV         float64
	VolumeRatio float64

	PriceChange1  float64
	PriceChange5  float64
	PriceChange10 float64

	BodySize    float64
	UpperShadow float64
	LowerShadow float64
}

// FeatureColumnNames returns the feature-matrix column names in the exact
// order FeatureValues emits them (timestamp excluded, per §4.5's input
// contract to the normalizer).
func FeatureColumnNames() []string {
	return []string{
		"open", "high", "low", "close", "volume",
		"rsi", "rsi_6", "stoch_k", "stoch_d",
		"macd", "macd_signal", "macd_histogram",
		"bb_upper", "bb_middle", "bb_lower", "bb_width", "bb_position",
		"ema_9", "ema_12", "ema_26", "ema_50", "ema_200",
		"sma_20", "sma_50", "sma_200",
		"atr", "hv_20",
		"vwap", "obv", "volume_ratio",
		"price_change_1", "price_change_5", "price_change_10",
		"body_size", "upper_shadow", "lower_shadow",
	}
}

// FeatureValues returns r's indicator values in FeatureColumnNames order.
func (r FeatureRow) FeatureValues() []float64 {
	return []float64{
		r.Open, r.High, r.Low, r.Close, r.Volume,
		r.RSI, r.RSI6, r.StochK, r.StochD,
		r.MACD, r.MACDSignal, r.MACDHistogram,
		r.BBUpper, r.BBMiddle, r.BBLower, r.BBWidth, r.BBPosition,
		r.EMA9, r.EMA12, r.EMA26, r.EMA50, r.EMA200,
		r.SMA20, r.SMA50, r.SMA200,
		r.ATR, r.HV20,
		r.VWAP, r.OBV, r.VolumeRatio,
		r.PriceChange1, r.PriceChange5, r.PriceChange10,
		r.BodySize, r.UpperShadow, r.LowerShadow,
	}
}

// BuildFeatures computes the full indicator battery over candles. It is a
// pure function: identical input always yields identical output. It
// performs no I/O.
func BuildFeatures(candles []Candle) []FeatureRow {
	n := len(candles)
	close := make([]float64, n)
	for i, c := range candles {
		close[i] = c.Close
	}

	rsi14 := RSI(candles, 14)
	rsi6 := RSI(candles, 6)
	stochK, stochD := StochRSI(rsi14, 14, 3, 3)
	macd, macdSignal, macdHist := MACD(close, 12, 26, 9)
	bbUpper, bbMiddle, bbLower := BollingerBands(close, 20, 2)
	ema9 := EMA(close, 9)
	ema12 := EMA(close, 12)
	ema26 := EMA(close, 26)
	ema50 := EMA(close, 50)
	ema200 := EMA(close, 200)
	sma20 := SMA(candles, 20)
	sma50 := SMA(candles, 50)
	sma200 := SMA(candles, 200)
	atr14 := ATR(candles, 14)
	hv20 := HistoricalVolatility(close, 20)
	vwap := VWAP(candles)
	obv := OBV(candles)

	volumes := make([]float64, n)
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	volSMA20 := smaOf(volumes, 20)

	rows := make([]FeatureRow, n)
	for i, c := range candles {
		r := FeatureRow{
			Timestamp: c.Time,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,

			RSI:    rsi14[i],
			RSI6:   rsi6[i],
			StochK: stochK[i],
			StochD: stochD[i],

			MACD:          macd[i],
			MACDSignal:    macdSignal[i],
			MACDHistogram: macdHist[i],

			BBUpper:  bbUpper[i],
			BBMiddle: bbMiddle[i],
			BBLower:  bbLower[i],

			EMA9:   ema9[i],
			EMA12:  ema12[i],
			EMA26:  ema26[i],
			EMA50:  ema50[i],
			EMA200: ema200[i],

			SMA20:  sma20[i],
			SMA50:  sma50[i],
			SMA200: sma200[i],

			ATR:  atr14[i],
			HV20: hv20[i],

			VWAP: vwap[i],
			OBV:  obv[i],
		}

		bandSpread := r.BBUpper - r.BBLower
		if r.BBMiddle != 0 {
			r.BBWidth = bandSpread / r.BBMiddle
		} else {
			r.BBWidth = math.NaN()
		}
		if bandSpread != 0 {
			r.BBPosition = (r.Close - r.BBLower) / bandSpread
		} else {
			r.BBPosition = math.NaN()
		}

		// volume_ratio intentionally omits a zero-mean guard (Open Question,
		// resolved in DESIGN.md: propagate, matching original_source).
		r.VolumeRatio = c.Volume / volSMA20[i]

		r.PriceChange1 = pctChange(close, i, 1)
		r.PriceChange5 = pctChange(close, i, 5)
		r.PriceChange10 = pctChange(close, i, 10)

		if c.Open != 0 {
			r.BodySize = math.Abs(c.Close-c.Open) / c.Open
			r.UpperShadow = (c.High - math.Max(c.Open, c.Close)) / c.Open
			r.LowerShadow = (math.Min(c.Open, c.Close) - c.Low) / c.Open
		} else {
			r.BodySize = math.NaN()
			r.UpperShadow = math.NaN()
			r.LowerShadow = math.NaN()
		}

		rows[i] = r
	}

	fillNaNInf(rows)
	return rows
}

func pctChange(close []float64, i, lag int) float64 {
	if i < lag || close[i-lag] == 0 {
		return math.NaN()
	}
	return (close[i] - close[i-lag]) / close[i-lag]
}

// fillNaNInf applies the normative three-step hygiene pass in place:
// ±Inf -> NaN, forward-fill, back-fill, then zero-fill any remainder.
// The order matters — skipping the forward fill corrupts recent values
// at warmup boundaries.
func fillNaNInf(rows []FeatureRow) {
	n := len(rows)
	if n == 0 {
		return
	}
	cols := len(rows[0].FeatureValues())

	matrix := make([][]float64, n)
	for i := range rows {
		matrix[i] = rows[i].FeatureValues()
		for j := 0; j < cols; j++ {
			if math.IsInf(matrix[i][j], 0) {
				matrix[i][j] = math.NaN()
			}
		}
	}

	for j := 0; j < cols; j++ {
		var last float64
		haveLast := false
		for i := 0; i < n; i++ {
			if math.IsNaN(matrix[i][j]) {
				if haveLast {
					matrix[i][j] = last
				}
			} else {
				last = matrix[i][j]
				haveLast = true
			}
		}
	}

	for j := 0; j < cols; j++ {
		var next float64
		haveNext := false
		for i := n - 1; i >= 0; i-- {
			if math.IsNaN(matrix[i][j]) {
				if haveNext {
					matrix[i][j] = next
				}
			} else {
				next = matrix[i][j]
				haveNext = true
			}
		}
	}

	for i := range matrix {
		for j := 0; j < cols; j++ {
			if math.IsNaN(matrix[i][j]) {
				matrix[i][j] = 0
			}
		}
	}

	for i := range rows {
		setFeatureValues(&rows[i], matrix[i])
	}
}

// setFeatureValues writes v back into r's fields in FeatureColumnNames
// order (the inverse of FeatureValues), used by fillNaNInf's final pass.
func setFeatureValues(r *FeatureRow, v []float64) {
	r.Open, r.High, r.Low, r.Close, r.Volume = v[0], v[1], v[2], v[3], v[4]
	r.RSI, r.RSI6, r.StochK, r.StochD = v[5], v[6], v[7], v[8]
	r.MACD, r.MACDSignal, r.MACDHistogram = v[9], v[10], v[11]
	r.BBUpper, r.BBMiddle, r.BBLower, r.BBWidth, r.BBPosition = v[12], v[13], v[14], v[15], v[16]
	r.EMA9, r.EMA12, r.EMA26, r.EMA50, r.EMA200 = v[17], v[18], v[19], v[20], v[21]
	r.SMA20, r.SMA50, r.SMA200 = v[22], v[23], v[24]
	r.ATR, r.HV20 = v[25], v[26]
	r.VWAP, r.OBV, r.VolumeRatio = v[27], v[28], v[29]
	r.PriceChange1, r.PriceChange5, r.PriceChange10 = v[30], v[31], v[32]
	r.BodySize, r.UpperShadow, r.LowerShadow = v[33], v[34], v[35]
}
