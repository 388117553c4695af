// Package forecaster implements C11: a thin forecasting head mapping a
// fused representation to a standardized multi-step, multi-channel
// prediction.
package forecaster

import (
	"math"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// Model is a frozen-after-training two-stage feedforward head: a
// feedforward projection from the fusion width D to a hidden width D',
// a temporal projection expanding D' into P timesteps, and a final
// per-step linear projection down to V channels. Per §4.10, only this
// thin head (plus the fusion gate in pkg/fusion) is ever trained; the
// series/text encoders upstream of it stay frozen.
type Model struct {
	d, dPrime, maxHorizon int

	proj1     [][]float64 // D' x D
	proj1Bias []float64

	temporal     [][]float64 // P_max x D'  (per-step gate over the D'-wide hidden state)
	temporalBias []float64

	final     [][]float64 // V x D'
	finalBias []float64

	// Version identifies the checkpoint this Model was loaded from, for
	// ForecastRecord.ModelVersion.
	Version string
}

// New constructs a Model with deterministically seeded weights. Load (in
// checkpoint.go) reconstructs a checkpoint's Model by calling New with the
// manifest's seed and dimensions; tests call New directly.
func New(seed int64, d, dPrime, maxHorizon int, version string) *Model {
	if d <= 0 {
		d = 128
	}
	if dPrime <= 0 {
		dPrime = 64
	}
	if maxHorizon <= 0 {
		maxHorizon = schema.MaxHorizonMonths
	}
	rng := newRNG(uint64(seed))
	m := &Model{d: d, dPrime: dPrime, maxHorizon: maxHorizon, Version: version}

	m.proj1 = randMatrix(rng, dPrime, d, 0.05)
	m.proj1Bias = randVector(rng, dPrime, 0.0)

	m.temporal = randMatrix(rng, maxHorizon, dPrime, 0.05)
	m.temporalBias = randVector(rng, maxHorizon, 0.0)

	m.final = randMatrix(rng, schema.NumChannels, dPrime, 0.05)
	m.finalBias = randVector(rng, schema.NumChannels, 0.0)

	return m
}

// Forecast maps a fused D-wide vector to P standardized prediction rows,
// each V-wide. horizon must not exceed the Model's maxHorizon.
func (m *Model) Forecast(fused []float64, horizon int) [][schema.NumChannels]float64 {
	if horizon > m.maxHorizon {
		horizon = m.maxHorizon
	}

	hidden := make([]float64, m.dPrime)
	for i := 0; i < m.dPrime; i++ {
		sum := m.proj1Bias[i]
		for c, v := range fused {
			sum += m.proj1[i][c] * v
		}
		hidden[i] = gelu(sum)
	}

	out := make([][schema.NumChannels]float64, horizon)
	for step := 0; step < horizon; step++ {
		// Temporal projection: a per-step gate reweights the hidden state
		// before the final linear, giving each forecast step a distinct
		// (but still linear-in-hidden) view of the fused representation.
		gated := make([]float64, m.dPrime)
		for i := 0; i < m.dPrime; i++ {
			gated[i] = hidden[i] * sigmoid(m.temporal[step][i]+m.temporalBias[step])
		}
		for c := 0; c < schema.NumChannels; c++ {
			sum := m.finalBias[c]
			for i, g := range gated {
				sum += m.final[c][i] * g
			}
			out[step][c] = sum
		}
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// gelu is the tanh approximation of the Gaussian Error Linear Unit,
// matching the nonlinearity used by pkg/textenc's projection head.
func gelu(x float64) float64 {
	const c = 0.7978845608028654 // sqrt(2/pi)
	return 0.5 * x * (1 + math.Tanh(c*(x+0.044715*x*x*x)))
}
