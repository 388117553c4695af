// Package seriesenc implements C9: a multi-head self-attention stack that
// encodes a (H×V) standardized numeric history into a (H×D) contextual
// representation, with a learned position embedding added to a linear
// lift from V to D.
package seriesenc

import (
	"math"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// Defaults per §4.8.
const (
	DefaultD      = 128
	DefaultHeads  = 4
	DefaultLayers = 2
)

// Encoder is a frozen-after-construction multi-head self-attention stack.
// GitPulse trains only the thin forecaster head and fusion gate (§4.10);
// the series encoder's weights are seeded once and held fixed thereafter,
// matching the teacher-domain convention (carried from C8) that only a
// small head sits atop a larger fixed representation.
type Encoder struct {
	d      int
	heads  int
	layers int

	lift     [][]float64 // D x V
	liftBias []float64
	posEmbed [][]float64 // H_max x D

	blocks []attentionBlock
}

type attentionBlock struct {
	wq, wk, wv [][]float64 // D x D, split across heads at call time
	wo         [][]float64 // D x D
	ffn1       [][]float64 // D x D
	ffn1Bias   []float64
	ffn2       [][]float64 // D x D
	ffn2Bias   []float64
}

// maxPositions bounds the learned position embedding table; H never
// exceeds schema.DefaultHistoryMonths in practice.
const maxPositions = 256

// New constructs an Encoder with deterministically seeded weights.
func New(seed int64, d, heads, layers int) *Encoder {
	if d <= 0 {
		d = DefaultD
	}
	if heads <= 0 {
		heads = DefaultHeads
	}
	if layers <= 0 {
		layers = DefaultLayers
	}

	rng := newRNG(uint64(seed))
	e := &Encoder{d: d, heads: heads, layers: layers}

	e.lift = randMatrix(rng, d, schema.NumChannels, 0.1)
	e.liftBias = randVector(rng, d, 0.0)
	e.posEmbed = randMatrix(rng, maxPositions, d, 0.02)

	e.blocks = make([]attentionBlock, layers)
	for l := range e.blocks {
		e.blocks[l] = attentionBlock{
			wq:       randMatrix(rng, d, d, 0.1),
			wk:       randMatrix(rng, d, d, 0.1),
			wv:       randMatrix(rng, d, d, 0.1),
			wo:       randMatrix(rng, d, d, 0.1),
			ffn1:     randMatrix(rng, d, d, 0.1),
			ffn1Bias: randVector(rng, d, 0.0),
			ffn2:     randMatrix(rng, d, d, 0.1),
			ffn2Bias: randVector(rng, d, 0.0),
		}
	}
	return e
}

// Encode maps hist (length H, each row V-wide) to a (H x D) contextual
// representation.
func (e *Encoder) Encode(hist [][schema.NumChannels]float64) [][]float64 {
	h := len(hist)
	x := make([][]float64, h)
	for t := 0; t < h; t++ {
		x[t] = make([]float64, e.d)
		for i := 0; i < e.d; i++ {
			sum := e.liftBias[i]
			for v := 0; v < schema.NumChannels; v++ {
				sum += e.lift[i][v] * hist[t][v]
			}
			pos := t
			if pos >= maxPositions {
				pos = maxPositions - 1
			}
			x[t][i] = sum + e.posEmbed[pos][i]
		}
	}

	for _, block := range e.blocks {
		x = block.apply(x, e.heads, e.d)
	}
	return x
}

func (b attentionBlock) apply(x [][]float64, heads, d int) [][]float64 {
	h := len(x)
	headDim := d / heads

	q := matMul(x, b.wq)
	k := matMul(x, b.wk)
	v := matMul(x, b.wv)

	attnOut := make([][]float64, h)
	for t := range attnOut {
		attnOut[t] = make([]float64, d)
	}

	for head := 0; head < heads; head++ {
		lo := head * headDim
		hi := lo + headDim
		scale := 1.0 / math.Sqrt(float64(headDim))

		scores := make([][]float64, h)
		for i := 0; i < h; i++ {
			scores[i] = make([]float64, h)
			var maxScore = math.Inf(-1)
			for j := 0; j < h; j++ {
				var dot float64
				for c := lo; c < hi; c++ {
					dot += q[i][c] * k[j][c]
				}
				dot *= scale
				scores[i][j] = dot
				if dot > maxScore {
					maxScore = dot
				}
			}
			var denom float64
			for j := 0; j < h; j++ {
				scores[i][j] = math.Exp(scores[i][j] - maxScore)
				denom += scores[i][j]
			}
			for j := 0; j < h; j++ {
				scores[i][j] /= denom
			}
		}

		for i := 0; i < h; i++ {
			for c := lo; c < hi; c++ {
				var sum float64
				for j := 0; j < h; j++ {
					sum += scores[i][j] * v[j][c]
				}
				attnOut[i][c] = sum
			}
		}
	}

	projected := matMul(attnOut, b.wo)
	residual1 := make([][]float64, h)
	for i := range residual1 {
		residual1[i] = addVec(x[i], projected[i])
	}

	ffnOut := make([][]float64, h)
	for i := range ffnOut {
		hidden := make([]float64, d)
		for j := 0; j < d; j++ {
			sum := b.ffn1Bias[j]
			for c := 0; c < d; c++ {
				sum += b.ffn1[j][c] * residual1[i][c]
			}
			hidden[j] = relu(sum)
		}
		out := make([]float64, d)
		for j := 0; j < d; j++ {
			sum := b.ffn2Bias[j]
			for c := 0; c < d; c++ {
				sum += b.ffn2[j][c] * hidden[c]
			}
			out[j] = sum
		}
		ffnOut[i] = addVec(residual1[i], out)
	}

	return ffnOut
}

func relu(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// matMul computes x (h x d) times w^T (d x d), i.e. out[t][i] = sum_c x[t][c]*w[i][c].
func matMul(x [][]float64, w [][]float64) [][]float64 {
	h := len(x)
	d := len(w)
	out := make([][]float64, h)
	for t := 0; t < h; t++ {
		out[t] = make([]float64, d)
		for i := 0; i < d; i++ {
			var sum float64
			row := w[i]
			for c, xv := range x[t] {
				sum += xv * row[c]
			}
			out[t][i] = sum
		}
	}
	return out
}
