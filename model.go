// FILE: model.go
// Package main – Model abstraction (C6, §3, §9).
//
// The spec normatively treats the model architecture as out of scope: any
// model honoring the `(1, seq_len, n_features) -> probability` contract is
// valid. Model is the seam; LogisticSequenceModel is a concrete, always
// -loadable implementation adapted from the teacher's AIMicroModel (a
// weight vector plus bias run through a sigmoid), generalized from the
// teacher's fixed 4-feature dataset to an arbitrary flattened sequence
// tensor. StochasticModel substitutes repeated stochastic forward passes
// for the "dropout at inference" requirement (§9) since no model framework
// in the pack exposes training-mode inference.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"
)

// Model is the frozen inference contract C6 owns. tensor is shaped
// (seq_len, n_features) — the leading batch dimension of 1 is implicit.
type Model interface {
	Predict(tensor [][]float64) (probability float64, err error)
}

// LogisticSequenceModel is a logistic-regression read of a flattened
// (seq_len * n_features) input, weights loaded from a frozen binary
// artifact. It is the teacher's AIMicroModel generalized from 4 fixed
// features to the full feature battery.
type LogisticSequenceModel struct {
	Weights []float64 // length seq_len * n_features
	Bias    float64
}

// LoadLogisticSequenceModel reads saved_model.bin: a little-endian stream
// of (seq_len*n_features) weight float64s followed by one bias float64.
func LoadLogisticSequenceModel(path string, seqLen, nFeatures int) (*LogisticSequenceModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	want := seqLen*nFeatures + 1
	if len(data) != want*8 {
		return nil, fmt.Errorf("saved_model.bin: expected %d float64s, got %d bytes", want, len(data))
	}
	vals := make([]float64, want)
	for i := range vals {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		vals[i] = math.Float64frombits(bits)
	}
	return &LogisticSequenceModel{Weights: vals[:want-1], Bias: vals[want-1]}, nil
}

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

// Predict flattens tensor row-major and evaluates sigmoid(w·x + b).
func (m *LogisticSequenceModel) Predict(tensor [][]float64) (float64, error) {
	var z float64
	idx := 0
	for _, row := range tensor {
		for _, v := range row {
			if idx >= len(m.Weights) {
				break
			}
			z += m.Weights[idx] * v
			idx++
		}
	}
	z += m.Bias
	return sigmoid(z), nil
}

// StubModel returns a fixed probability regardless of input; used by tests
// and by the concrete scenarios in §8 that seed a known prob.
type StubModel struct {
	Probability float64
}

func (m StubModel) Predict(tensor [][]float64) (float64, error) { return m.Probability, nil }

// StochasticModel decorates a Model with repeated stochastic forward
// passes, injecting small Gaussian jitter per call to emulate dropout
// variance (§9's substitution clause). Access to rng is serialized by mu,
// so one instance may be shared across concurrent goroutines.
type StochasticModel struct {
	Inner  Model
	Jitter float64 // standard deviation of the per-pass input perturbation
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewStochasticModel wraps inner with jitter-based uncertainty estimation.
func NewStochasticModel(inner Model, jitter float64, seed int64) *StochasticModel {
	return &StochasticModel{Inner: inner, Jitter: jitter, rng: rand.New(rand.NewSource(seed))}
}

// PredictWithUncertainty runs 10 stochastic forward passes and returns the
// mean probability and sample standard deviation, per §4.6 step 5.
func (m *StochasticModel) PredictWithUncertainty(tensor [][]float64) (mean, std float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	const passes = 10
	samples := make([]float64, passes)
	for i := 0; i < passes; i++ {
		jittered := m.jitterTensor(tensor)
		p, perr := m.Inner.Predict(jittered)
		if perr != nil {
			return 0, 0, perr
		}
		samples[i] = p
	}
	mean = meanOf(samples)
	std = stdDevOf(samples, mean)
	return mean, std, nil
}

func (m *StochasticModel) jitterTensor(tensor [][]float64) [][]float64 {
	out := make([][]float64, len(tensor))
	for i, row := range tensor {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v + m.rng.NormFloat64()*m.Jitter
		}
	}
	return out
}

func meanOf(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

func stdDevOf(x []float64, mean float64) float64 {
	if len(x) < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range x {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(x)-1))
}
