// Package fusion implements C10: AdaptiveFusion, a gated mixing of a
// time-series global summary with a text embedding into a single vector.
package fusion

import "math"

// Defaults per §4.9.
const (
	DefaultWMin = 0.10
	DefaultWMax = 0.30
)

// Gate computes the fusion weight w from concat(tsGlobal, textVec) via a
// small frozen feedforward layer with a logistic activation rescaled to
// [wMin, wMax].
type Gate struct {
	wMin, wMax float64
	weights    []float64 // length len(tsGlobal)+len(textVec)
	bias       float64
}

// New constructs a Gate sized for vectors of width tsWidth and textWidth,
// with deterministically seeded weights.
func New(seed int64, tsWidth, textWidth int, wMin, wMax float64) *Gate {
	if wMin <= 0 {
		wMin = DefaultWMin
	}
	if wMax <= 0 || wMax <= wMin {
		wMax = DefaultWMax
	}
	rng := newRNG(uint64(seed))
	n := tsWidth + textWidth
	w := make([]float64, n)
	for i := range w {
		w[i] = rng.normal() * 0.1
	}
	return &Gate{wMin: wMin, wMax: wMax, weights: w, bias: 0}
}

// Weight returns the mixing weight w for a given (tsGlobal, textVec) pair.
// It does not itself special-case the absent-text path; callers use
// Fuse below for the full contract, which bypasses the gate when text is
// absent.
func (g *Gate) Weight(tsGlobal, textVec []float64) float64 {
	var logit = g.bias
	i := 0
	for _, v := range tsGlobal {
		logit += g.weights[i] * v
		i++
	}
	for _, v := range textVec {
		logit += g.weights[i] * v
		i++
	}
	sigmoid := 1.0 / (1.0 + math.Exp(-logit))
	return g.wMin + sigmoid*(g.wMax-g.wMin)
}

// Fuse combines tsGlobal and textVec into a single vector of the same
// width, per §4.9's contract. When textAbsent is set, w is pinned to
// wMin and the gate is never evaluated.
func (g *Gate) Fuse(tsGlobal, textVec []float64, textAbsent bool) (fused []float64, w float64) {
	if textAbsent {
		w = g.wMin
	} else {
		w = g.Weight(tsGlobal, textVec)
	}
	fused = make([]float64, len(tsGlobal))
	for i := range fused {
		fused[i] = (1-w)*tsGlobal[i] + w*textVec[i]
	}
	return fused, w
}

// GlobalSummary reduces a (H x D) contextual series representation to a
// single D-wide vector by averaging over time, per §4.9's `ts_global`.
func GlobalSummary(context [][]float64) []float64 {
	if len(context) == 0 {
		return nil
	}
	d := len(context[0])
	out := make([]float64, d)
	for _, row := range context {
		for i, v := range row {
			out[i] += v
		}
	}
	n := float64(len(context))
	for i := range out {
		out[i] /= n
	}
	return out
}
