// FILE: normalizer.go
// Package main – Normalizer (C5, §4.5).
//
// Applies a frozen robust scaler (median / IQR) to feature matrices. The
// parameter files are little-endian float64 vectors, the layout the
// teacher's model.go uses for its own weight persistence (encoding/binary,
// binary.LittleEndian) — extended here to two named vectors instead of one.
package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// NormalizerParameters holds the frozen median/scale vectors used to
// robust-scale a raw feature matrix (§3). Both vectors have length
// n_features; scale[i] > 0 for all i.
type NormalizerParameters struct {
	Median []float64
	Scale  []float64
}

// Normalizer applies X_norm = (X - median) / scale column-wise.
type Normalizer struct {
	params   NormalizerParameters
	identity bool // true when params could not be loaded
	log      *slog.Logger
}

// LoadNormalizer reads norm_median.bin and norm_scale.bin from dir. On any
// read failure it falls back to an identity transform and logs a warning;
// the caller is responsible for reflecting this in the engine's degraded
// state (§4.5's "serving remains available" contract).
func LoadNormalizer(dir string, nFeatures int, log *slog.Logger) *Normalizer {
	median, errM := readFloat64Vector(dir + "/norm_median.bin")
	scale, errS := readFloat64Vector(dir + "/norm_scale.bin")

	if errM != nil || errS != nil || len(median) != nFeatures || len(scale) != nFeatures {
		log.Warn("normalizer: parameters unavailable, falling back to identity transform",
			"median_error", errM, "scale_error", errS)
		return &Normalizer{identity: true, log: log}
	}

	for i := range scale {
		if scale[i] <= 0 {
			scale[i] = 1.0
		}
	}
	return &Normalizer{params: NormalizerParameters{Median: median, Scale: scale}, log: log}
}

// Identity reports whether this normalizer is operating in the fallback
// identity-transform mode (no parameters were loaded).
func (n *Normalizer) Identity() bool { return n.identity }

// Transform returns a new matrix with each row robust-scaled column-wise.
// row is mutated in neither direction; a fresh slice is returned.
func (n *Normalizer) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = n.transformRow(row)
	}
	return out
}

func (n *Normalizer) transformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	if n.identity {
		copy(out, row)
		return out
	}
	for j, v := range row {
		if j >= len(n.params.Median) {
			out[j] = v
			continue
		}
		out[j] = (v - n.params.Median[j]) / n.params.Scale[j]
	}
	return out
}

func readFloat64Vector(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("normalizer: %s: length %d not a multiple of 8", path, len(data))
	}
	out := make([]float64, len(data)/8)
	for i := range out {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		out[i] = math.Float64frombits(bits)
	}
	return out, nil
}
