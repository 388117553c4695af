// Package textenc implements C8: a frozen text encoder producing a
// fixed-width embedding via hashed token embeddings, attention pooling, and
// two projections with a GELU between them — the "pragmatic route" described in §9's
// design notes for ports without a mature transformer-training library:
// a frozen representation, computed once per (repository, text-version)
// pair and cached on disk, rather than a trained transformer.
package textenc

import (
	"math"
)

// OutputWidth is E, the encoder's output embedding width (§4.7 default).
const OutputWidth = 128

// tokenEmbedWidth is the hashed-token embedding width before pooling and
// projection.
const tokenEmbedWidth = 64

// hiddenWidth is the width of the first projection's nonlinear layer.
const hiddenWidth = 96

// vocabBuckets is the hashing-trick bucket count token embeddings are
// drawn from, standing in for a fixed pretrained vocabulary.
const vocabBuckets = 1 << 13

// Encoder is a frozen, deterministic text encoder. Its weights never
// change after construction — there is no training step — matching the
// "frozen pretrained transformer" contract of §4.7.
type Encoder struct {
	tokenEmbed [vocabBuckets][tokenEmbedWidth]float64
	query      [tokenEmbedWidth]float64
	proj1      [hiddenWidth][tokenEmbedWidth]float64
	proj1Bias  [hiddenWidth]float64
	proj2      [OutputWidth][hiddenWidth]float64
	proj2Bias  [OutputWidth]float64
}

// New constructs an Encoder with deterministically seeded frozen weights.
// No weights are loaded from disk (Config.TextEncoderWeightsPath is used
// only as the embedding cache directory); this seeded construction keeps
// the encoder's behavior reproducible without shipping a weights blob.
func New(seed int64) *Encoder {
	rng := newSplitMix64(uint64(seed))
	e := &Encoder{}
	for i := range e.tokenEmbed {
		for j := range e.tokenEmbed[i] {
			e.tokenEmbed[i][j] = rng.normal() * 0.1
		}
	}
	for j := range e.query {
		e.query[j] = rng.normal() * 0.1
	}
	for i := range e.proj1 {
		for j := range e.proj1[i] {
			e.proj1[i][j] = rng.normal() * 0.1
		}
		e.proj1Bias[i] = 0
	}
	for i := range e.proj2 {
		for j := range e.proj2[i] {
			e.proj2[i][j] = rng.normal() * 0.1
		}
		e.proj2Bias[i] = 0
	}
	return e
}

// Encode computes the fixed-width embedding of text. Empty or
// whitespace-only text returns the zero vector with absent=true, per
// §4.7's "absent text" flag consumed by AdaptiveFusion.
func (e *Encoder) Encode(text string) (vector [OutputWidth]float64, absent bool) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vector, true
	}

	// Attention pooling over token positions: score each token embedding
	// against the frozen query vector, softmax-normalize, then take the
	// weighted sum.
	scores := make([]float64, len(tokens))
	embeds := make([][tokenEmbedWidth]float64, len(tokens))
	maxScore := math.Inf(-1)
	for i, tok := range tokens {
		bucket := hashToken(tok) % vocabBuckets
		embeds[i] = e.tokenEmbed[bucket]
		var dot float64
		for j := 0; j < tokenEmbedWidth; j++ {
			dot += embeds[i][j] * e.query[j]
		}
		scores[i] = dot
		if dot > maxScore {
			maxScore = dot
		}
	}

	var denom float64
	weights := make([]float64, len(tokens))
	for i, s := range scores {
		w := math.Exp(s - maxScore)
		weights[i] = w
		denom += w
	}

	var pooled [tokenEmbedWidth]float64
	for i := range embeds {
		w := weights[i] / denom
		for j := 0; j < tokenEmbedWidth; j++ {
			pooled[j] += w * embeds[i][j]
		}
	}

	// Two linear projections with a nonlinearity between them, per §4.7.
	var hidden [hiddenWidth]float64
	for i := 0; i < hiddenWidth; i++ {
		sum := e.proj1Bias[i]
		for j := 0; j < tokenEmbedWidth; j++ {
			sum += e.proj1[i][j] * pooled[j]
		}
		hidden[i] = gelu(sum)
	}

	for i := 0; i < OutputWidth; i++ {
		sum := e.proj2Bias[i]
		for j := 0; j < hiddenWidth; j++ {
			sum += e.proj2[i][j] * hidden[j]
		}
		vector[i] = sum
	}

	return vector, false
}

func gelu(x float64) float64 {
	return 0.5 * x * (1 + math.Tanh(math.Sqrt(2/math.Pi)*(x+0.044715*x*x*x)))
}
