// Package normalize implements C6: per-channel z-score standardization
// fitted on one repository's training window, with round-trip invert and
// absent-cell imputation.
package normalize

import (
	"math"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// Fit computes per-channel mean and standard deviation over
// panel.Axis[0:trainLen], never touching the prediction window beyond it.
// Channels with fewer than two observed values, or with zero variance,
// fall back to (mean=0, std=1) per §4.5.
func Fit(panel *schema.MonthlyPanel, trainLen int) *schema.NormalizationStats {
	if trainLen > panel.Len() {
		trainLen = panel.Len()
	}

	stats := &schema.NormalizationStats{}
	for c := 0; c < schema.NumChannels; c++ {
		ch := schema.Channel(c)
		var sum, sumSq float64
		var n int
		for i := 0; i < trainLen; i++ {
			v, ok := panel.Get(panel.Axis[i], ch)
			if !ok {
				continue
			}
			sum += v
			sumSq += v * v
			n++
		}

		if n < 2 {
			stats.Mean[c] = 0
			stats.Std[c] = 1
			continue
		}

		mean := sum / float64(n)
		variance := sumSq/float64(n) - mean*mean
		if variance < 0 {
			variance = 0
		}
		std := math.Sqrt(variance)
		if std < schema.Epsilon {
			stats.Mean[c] = 0
			stats.Std[c] = 1
			continue
		}

		stats.Mean[c] = mean
		stats.Std[c] = std
	}
	return stats
}

// Apply standardizes a single channel vector row, returning the
// standardized values and a present mask. Absent cells are mapped to the
// channel mean (i.e. zero in standardized space) per §4.5: "apply treats
// absent cells as zero after standardization."
func Apply(values [schema.NumChannels]float64, present [schema.NumChannels]bool, stats *schema.NormalizationStats) (standardized [schema.NumChannels]float64, mask [schema.NumChannels]bool) {
	for c := 0; c < schema.NumChannels; c++ {
		if !present[c] {
			standardized[c] = 0
			mask[c] = false
			continue
		}
		std := stats.Std[c]
		if std < schema.Epsilon {
			std = schema.Epsilon
		}
		standardized[c] = (values[c] - stats.Mean[c]) / std
		mask[c] = true
	}
	return standardized, mask
}

// Invert reverses Apply, mapping standardized values back to their
// original scale. It is applied only at the inference response boundary.
func Invert(standardized [schema.NumChannels]float64, stats *schema.NormalizationStats) [schema.NumChannels]float64 {
	var values [schema.NumChannels]float64
	for c := 0; c < schema.NumChannels; c++ {
		std := stats.Std[c]
		if std < schema.Epsilon {
			std = schema.Epsilon
		}
		values[c] = standardized[c]*std + stats.Mean[c]
	}
	return values
}

// ApplyPanel standardizes every month in panel, returning parallel
// standardized-value and mask slices aligned with panel.Axis.
func ApplyPanel(panel *schema.MonthlyPanel, stats *schema.NormalizationStats) (values [][schema.NumChannels]float64, mask [][schema.NumChannels]bool) {
	values = make([][schema.NumChannels]float64, panel.Len())
	mask = make([][schema.NumChannels]bool, panel.Len())
	for i := range panel.Axis {
		values[i], mask[i] = Apply(panel.Values[i], panel.Present[i], stats)
	}
	return values, mask
}
