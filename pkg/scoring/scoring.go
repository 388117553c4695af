// Package scoring implements C12: ScoringEngine, mapping a repository's
// MonthlyPanel into six weighted, outlier-attenuated health dimensions
// and an overall score.
package scoring

import (
	"sort"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// qualityCoverageThreshold is the 0.7 cutoff below which the data-quality
// penalty applies (§4.11 step 3).
const qualityCoverageThreshold = 0.7

// minCoverageToEvaluate is the 30% cutoff below which a dimension is
// skipped for the month entirely (§4.11 step 4).
const minCoverageToEvaluate = 0.3

// softFloor is the minimum dimension score once evaluated (§4.11 step 5).
const softFloor = 30.0

// outlierAttenuationWeight is the weight given to a month flagged as an
// outlier when computing the window's weighted mean (§4.11 window
// aggregation): down-weighted, never dropped.
const outlierAttenuationWeight = 0.3

// windowSize is the number of most-recent months evaluated per §4.11's
// window aggregation step.
const windowSize = 12

// Score computes a ScoreRecord for the given panel.
func Score(panel *schema.MonthlyPanel) *schema.ScoreRecord {
	rec := &schema.ScoreRecord{Repo: panel.Repo}

	var qualitySum float64
	var qualityCount int

	for _, spec := range dimensionSpecs {
		monthly := scoreDimensionMonthly(panel, spec)
		aggregate := aggregateWindow(monthly, spec.iqrMultiplier)
		rec.Dimensions[spec.dimension] = aggregate

		for _, m := range monthly {
			if m.Evaluated {
				qualitySum += m.Quality
				qualityCount++
			} else {
				rec.MonthsSkipped++
			}
		}
	}

	if qualityCount > 0 {
		rec.DataQualityMean = qualitySum / float64(qualityCount)
	}
	rec.MonthsEvaluated = len(panel.Axis)

	var overallSum float64
	for _, agg := range rec.Dimensions {
		overallSum += agg.Aggregate
	}
	rec.Overall = overallSum / float64(schema.NumDimensions)

	return rec
}

// scoreDimensionMonthly computes the raw per-month score for one
// dimension across the panel's full axis (§4.11 "Per-month algorithm").
func scoreDimensionMonthly(panel *schema.MonthlyPanel, spec dimensionSpec) []schema.MonthlyDimensionScore {
	channels := make([]schema.Channel, len(spec.channels))
	for i, wc := range spec.channels {
		channels[i] = wc.channel
	}

	// Precompute each channel's full adjusted history (growth-channel
	// substitution applied) once, so percentile rank for every month is
	// computed against a consistent population.
	histories := make(map[schema.Channel][]float64, len(channels))
	presents := make(map[schema.Channel][]bool, len(channels))
	for _, c := range channels {
		values, present := panel.ChannelSeries(c)
		if schema.IsGrowthChannel(c) {
			values = applyGrowthSubstitution(values, present)
		}
		histories[c] = values
		presents[c] = present
	}

	out := make([]schema.MonthlyDimensionScore, len(panel.Axis))
	for i, month := range panel.Axis {
		out[i] = scoreMonth(month, i, spec, histories, presents)
	}
	return out
}

// applyGrowthSubstitution replaces each present value with
// max(current, mean of last 3 months) per §4.11 step 2, so a single
// transient dip does not penalize an otherwise long-lived project.
func applyGrowthSubstitution(values []float64, present []bool) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	for i := range values {
		if !present[i] {
			continue
		}
		lo := i - 2
		if lo < 0 {
			lo = 0
		}
		var sum float64
		var n int
		for j := lo; j <= i; j++ {
			if present[j] {
				sum += values[j]
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean3 := sum / float64(n)
		if mean3 > out[i] {
			out[i] = mean3
		}
	}
	return out
}

func scoreMonth(
	month schema.Month,
	idx int,
	spec dimensionSpec,
	histories map[schema.Channel][]float64,
	presents map[schema.Channel][]bool,
) schema.MonthlyDimensionScore {
	var weightSum, scoreSum float64
	var presentCount int

	for _, wc := range spec.channels {
		present := presents[wc.channel]
		if !present[idx] {
			continue
		}
		presentCount++
		pct := percentileRank(histories[wc.channel], presents[wc.channel], idx)
		scoreSum += wc.weight * pct
		weightSum += wc.weight
	}

	coverage := float64(presentCount) / float64(len(spec.channels))
	result := schema.MonthlyDimensionScore{Month: month, Quality: coverage}

	if coverage < minCoverageToEvaluate {
		result.Evaluated = false
		return result
	}

	score := 0.0
	if weightSum > 0 {
		score = scoreSum / weightSum
	}
	score = applyQualityPenalty(score, coverage)
	score = applySoftFloor(score)

	result.Evaluated = true
	result.Score = score
	return result
}

// applyQualityPenalty applies §4.11 step 3's data-quality multiplier when
// channel coverage for the month falls below qualityCoverageThreshold.
func applyQualityPenalty(score, coverage float64) float64 {
	if coverage >= qualityCoverageThreshold {
		return score
	}
	return score * (1 - 0.3*(qualityCoverageThreshold-coverage))
}

// applySoftFloor enforces §4.11 step 5's floor of 30 on an evaluated
// dimension score.
func applySoftFloor(score float64) float64 {
	if score < softFloor {
		return softFloor
	}
	return score
}

// percentileRank returns the 0-100 percentile rank of the value at idx
// within the present values of the channel's full history: the fraction
// of other observed months at or below idx's value, scaled to 100.
func percentileRank(values []float64, present []bool, idx int) float64 {
	target := values[idx]
	var total, atOrBelow int
	for i, v := range values {
		if !present[i] {
			continue
		}
		total++
		if v <= target {
			atOrBelow++
		}
	}
	if total <= 1 {
		return 50.0
	}
	return 100.0 * float64(atOrBelow-1) / float64(total-1)
}

// aggregateWindow evaluates the most recent windowSize months (or fewer,
// if the panel is shorter), flags outliers via Tukey's IQR fences scaled
// by iqrMultiplier, and computes the down-weighted mean described in
// §4.11's window aggregation step.
func aggregateWindow(monthly []schema.MonthlyDimensionScore, iqrMultiplier float64) schema.DimensionAggregate {
	agg := schema.DimensionAggregate{Monthly: monthly}

	start := len(monthly) - windowSize
	if start < 0 {
		start = 0
	}
	window := monthly[start:]

	var evaluated []schema.MonthlyDimensionScore
	for _, m := range window {
		if m.Evaluated {
			evaluated = append(evaluated, m)
		}
	}
	if len(evaluated) == 0 {
		return agg
	}

	scores := make([]float64, len(evaluated))
	for i, m := range evaluated {
		scores[i] = m.Score
	}
	lo, hi := iqrFence(evaluated, iqrMultiplier)

	mean, outlierIdx := attenuatedMean(scores, lo, hi)
	agg.Aggregate = mean
	for _, i := range outlierIdx {
		agg.OutlierMonths = append(agg.OutlierMonths, evaluated[i].Month)
	}
	agg.OutliersAttenuated = len(outlierIdx)
	return agg
}

// attenuatedMean computes the weighted mean of scores, down-weighting any
// score outside [lo, hi] to outlierAttenuationWeight rather than dropping
// it, per §4.11's window aggregation step.
func attenuatedMean(scores []float64, lo, hi float64) (mean float64, outlierIdx []int) {
	var weightSum, scoreSum float64
	for i, s := range scores {
		weight := 1.0
		if s < lo || s > hi {
			weight = outlierAttenuationWeight
			outlierIdx = append(outlierIdx, i)
		}
		weightSum += weight
		scoreSum += weight * s
	}
	if weightSum == 0 {
		return 0, outlierIdx
	}
	return scoreSum / weightSum, outlierIdx
}

// iqrFence returns the [Q1 - c*IQR, Q3 + c*IQR] outlier fence for the
// given scores, using linear-interpolation quartiles.
func iqrFence(scores []schema.MonthlyDimensionScore, c float64) (lo, hi float64) {
	values := make([]float64, len(scores))
	for i, m := range scores {
		values[i] = m.Score
	}
	sort.Float64s(values)

	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	iqr := q3 - q1
	return q1 - c*iqr, q3 + c*iqr
}

// quantile computes the p-th quantile of sorted values via linear
// interpolation between closest ranks.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
