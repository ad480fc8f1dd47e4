// FILE: inference.go
// Package main – Inference Engine (C6, §4.6).
//
// Owns the model lifecycle: loads the frozen artifact, normalizer
// parameters, and metadata once at startup; serves predict() calls for
// the remainder of the process lifetime. Grounded on the teacher's
// model.go buildDataset/predict shape for the tensor-building step and on
// original_source's src/models/inference.py for the degraded-state
// fallback and the exact decision-rule reasoning strings.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// ModelMetadata describes the frozen artifact (§6 "Model artifact layout").
type ModelMetadata struct {
	ModelID     string            `json:"model_id"`
	NFeatures   int               `json:"n_features"`
	SeqLen      int               `json:"seq_len"`
	Symbols     []string          `json:"symbols"`
	Timeframe   string            `json:"timeframe"`
	TrainedAt   time.Time         `json:"trained_at"`
	TestMetrics map[string]float64 `json:"test_metrics"`
}

// EngineState is C6's lifecycle state machine (§4.6.1 "State machine").
type EngineState string

const (
	EngineLoaded   EngineState = "LOADED"
	EngineDegraded EngineState = "DEGRADED"
)

// InferenceEngine owns the single Model, NormalizerParameters, and
// metadata for the process. C7 and C8 hold read-only references to one
// shared instance (§3 "Ownership").
type InferenceEngine struct {
	settings Settings
	log      *slog.Logger

	state      EngineState
	model      Model
	stochastic *StochasticModel
	normalizer *Normalizer
	metadata   ModelMetadata
	loadErr    error
}

// LoadInferenceEngine attempts to load saved_model.bin, norm_median.bin,
// norm_scale.bin, and metadata.json from settings.ModelDir. On any failure
// it returns an engine in the degraded state rather than an error — the
// service stays up and always answers PASS (§4.6).
func LoadInferenceEngine(settings Settings, log *slog.Logger) *InferenceEngine {
	e := &InferenceEngine{settings: settings, log: log}

	meta, err := loadMetadata(settings.ModelDir + "/metadata.json")
	if err != nil {
		e.degrade(fmt.Errorf("metadata: %w", err))
		return e
	}
	e.metadata = meta

	model, err := LoadLogisticSequenceModel(settings.ModelDir+"/saved_model.bin", meta.SeqLen, meta.NFeatures)
	if err != nil {
		e.degrade(fmt.Errorf("model artifact: %w", err))
		return e
	}

	norm := LoadNormalizer(settings.ModelDir, meta.NFeatures, log)
	if norm.Identity() {
		e.degrade(fmt.Errorf("normalizer parameters unavailable"))
		return e
	}

	e.model = model
	e.stochastic = NewStochasticModel(model, 0.01, 42)
	e.normalizer = norm
	e.state = EngineLoaded
	mtxModelLoaded.Set(1)
	return e
}

func (e *InferenceEngine) degrade(cause error) {
	e.state = EngineDegraded
	e.loadErr = &ModelUnavailable{Cause: cause}
	mtxModelLoaded.Set(0)
	e.log.Warn("inference engine: entering degraded state", "error", cause)
}

// State reports the current lifecycle state.
func (e *InferenceEngine) State() EngineState { return e.state }

// Loaded reports whether a usable model is present (used by /healthz).
func (e *InferenceEngine) Loaded() bool { return e.state == EngineLoaded }

func loadMetadata(path string) (ModelMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelMetadata{}, err
	}
	var meta ModelMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return ModelMetadata{}, err
	}
	return meta, nil
}

// Predict runs the full C4->C5->C6 pipeline over candles and emits a
// Signal (§4.6 steps 1-6). calculateUncertainty requests 10 stochastic
// forward passes instead of one deterministic pass.
func (e *InferenceEngine) Predict(candles []Candle, calculateUncertainty bool, requestID string) (Signal, error) {
	start := time.Now()
	defer func() { mtxInferenceLatency.Observe(time.Since(start).Seconds()) }()

	if e.state != EngineLoaded {
		return Signal{
			Decision:    DecisionPass,
			Confidence:  0,
			Probability: 0,
			ModelID:     "unloaded",
			Reasoning:   []string{"Model not loaded - using mock prediction"},
			RequestID:   requestID,
		}, nil
	}

	seqLen := e.metadata.SeqLen
	rows := BuildFeatures(candles)
	if len(rows) < seqLen {
		return Signal{}, &InsufficientData{Got: len(rows), Need: seqLen}
	}
	window := rows[len(rows)-seqLen:]

	matrix := make([][]float64, len(window))
	for i, r := range window {
		matrix[i] = r.FeatureValues()
	}
	normalized := e.normalizer.Transform(matrix)

	var prob, uncertainty float64
	var haveUncertainty bool
	var err error
	if calculateUncertainty {
		prob, uncertainty, err = e.stochastic.PredictWithUncertainty(normalized)
		haveUncertainty = true
	} else {
		prob, err = e.model.Predict(normalized)
	}
	if err != nil {
		return Signal{}, err
	}

	latest := window[len(window)-1]
	var uncertaintyPtr *float64
	if haveUncertainty {
		u := uncertainty
		uncertaintyPtr = &u
	}
	return decide(prob, latest, e.settings, uncertaintyPtr, e.metadata.ModelID, requestID), nil
}

// decide implements the normative decision rule of §4.6.1. It is a pure
// function of its arguments so replaying identical inputs is bit-exact.
func decide(prob float64, latest FeatureRow, s Settings, uncertainty *float64, modelID, requestID string) Signal {
	votes := 0.0
	var voteReasons []string

	switch {
	case latest.RSI < 30:
		votes += 1
		voteReasons = append(voteReasons, "RSI oversold")
	case latest.RSI < 40:
		votes += 0.5
		voteReasons = append(voteReasons, "RSI approaching oversold")
	}
	if latest.MACDHistogram > 0 {
		votes += 1
		voteReasons = append(voteReasons, "MACD histogram positive")
	}
	if latest.BBPosition < 0.2 {
		votes += 1
		voteReasons = append(voteReasons, "price near lower Bollinger band")
	}
	if latest.EMA9 > latest.EMA26 {
		votes += 0.5
		voteReasons = append(voteReasons, "EMA9 above EMA26")
	}

	confidence := prob

	reasoning := []string{
		fmt.Sprintf("model probability %.2f vs threshold %.2f", prob, s.ThreshBuy),
		fmt.Sprintf("indicator votes %.1f vs threshold %.1f", votes, s.MinIndicatorConf),
	}
	reasoning = append(reasoning, voteReasons...)

	if uncertainty != nil && *uncertainty > 0.15 {
		reasoning = append(reasoning, fmt.Sprintf("high prediction uncertainty (%.2f%%)", *uncertainty*100))
		confidence *= 0.85
	}

	var decision Decision
	switch {
	case prob > s.ThreshBuy && votes >= s.MinIndicatorConf:
		decision = DecisionBuy
	case prob > 0.8*s.ThreshBuy && votes >= 2:
		decision = DecisionHold
	default:
		decision = DecisionPass
	}

	return Signal{
		Decision:    decision,
		Confidence:  confidence,
		Probability: prob,
		Uncertainty: uncertainty,
		ModelID:     modelID,
		Reasoning:   reasoning,
		RequestID:   requestID,
	}
}
