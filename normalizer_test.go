package main

import (
	"encoding/binary"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFloat64Vector(t *testing.T, path string, values []float64) {
	t.Helper()
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], math.Float64bits(v))
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestNormalizerTransform(t *testing.T) {
	dir := t.TempDir()
	writeFloat64Vector(t, filepath.Join(dir, "norm_median.bin"), []float64{10, 0})
	writeFloat64Vector(t, filepath.Join(dir, "norm_scale.bin"), []float64{2, 1})

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	norm := LoadNormalizer(dir, 2, log)
	require.False(t, norm.Identity())

	out := norm.Transform([][]float64{{12, 5}})
	assert.InDelta(t, 1.0, out[0][0], 1e-9)
	assert.InDelta(t, 5.0, out[0][1], 1e-9)
}

func TestNormalizerFallsBackToIdentityWhenMissing(t *testing.T) {
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	norm := LoadNormalizer(dir, 2, log)
	require.True(t, norm.Identity())

	out := norm.Transform([][]float64{{12, 5}})
	assert.Equal(t, []float64{12, 5}, out[0])
}

func TestNormalizerClampsZeroScale(t *testing.T) {
	dir := t.TempDir()
	writeFloat64Vector(t, filepath.Join(dir, "norm_median.bin"), []float64{0})
	writeFloat64Vector(t, filepath.Join(dir, "norm_scale.bin"), []float64{0})

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	norm := LoadNormalizer(dir, 1, log)
	require.False(t, norm.Identity())

	out := norm.Transform([][]float64{{3}})
	assert.InDelta(t, 3.0, out[0][0], 1e-9) // scale clamped to 1.0, not divide-by-zero
}
