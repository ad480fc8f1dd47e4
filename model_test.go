package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubModelReturnsFixedProbability(t *testing.T) {
	m := StubModel{Probability: 0.42}
	p, err := m.Predict([][]float64{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 0.42, p)
}

func TestStochasticModelReturnsMeanAndStd(t *testing.T) {
	inner := StubModel{Probability: 0.5}
	sm := NewStochasticModel(inner, 0.05, 1)

	tensor := [][]float64{{1, 2}, {3, 4}}
	mean, std, err := sm.PredictWithUncertainty(tensor)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mean, 0.5) // StubModel ignores the jittered input, so every pass returns 0.5
	assert.GreaterOrEqual(t, std, 0.0)
}

func TestLogisticSequenceModelFlattensRowMajor(t *testing.T) {
	m := &LogisticSequenceModel{Weights: []float64{1, -1, 0.5}, Bias: 0}
	p, err := m.Predict([][]float64{{2, 1, 4}})
	require.NoError(t, err)
	// z = 2*1 + 1*-1 + 4*0.5 = 3 -> sigmoid(3)
	assert.InDelta(t, sigmoid(3), p, 1e-9)
}
