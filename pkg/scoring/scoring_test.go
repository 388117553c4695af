package scoring

import (
	"testing"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDataQualityPenaltyMatchesWorkedExample reproduces the literal
// "only 2 of 5 Activity channels present" scenario: a dimension score of
// 80 computed over quality=0.4 coverage is reduced to 80*0.91=72.8.
func TestDataQualityPenaltyMatchesWorkedExample(t *testing.T) {
	got := applyQualityPenalty(80.0, 0.4)
	assert.InDelta(t, 72.8, got, 1e-9)
}

func TestSoftFloorClampsLowScores(t *testing.T) {
	assert.Equal(t, 30.0, applySoftFloor(12.0))
	assert.Equal(t, 45.0, applySoftFloor(45.0))
}

// TestOutlierAttenuationDampensExtremeMonth reproduces the worked
// 12-month series from §4.11's window-aggregation example: naive mean
// ≈63.75, with the trailing 95 flagged as an outlier under c=1.5 and
// down-weighted (not dropped) to outlierAttenuationWeight in the
// weighted mean.
func TestOutlierAttenuationDampensExtremeMonth(t *testing.T) {
	scores := []float64{60, 62, 61, 63, 59, 60, 61, 62, 60, 63, 59, 95}

	var naive float64
	for _, s := range scores {
		naive += s
	}
	naive /= float64(len(scores))
	assert.InDelta(t, 63.75, naive, 1e-9)

	monthly := make([]schema.MonthlyDimensionScore, len(scores))
	for i, s := range scores {
		monthly[i] = schema.MonthlyDimensionScore{Score: s, Evaluated: true}
	}
	lo, hi := iqrFence(monthly, defaultOutlierC)

	attenuated, outlierIdx := attenuatedMean(scores, lo, hi)
	require.Len(t, outlierIdx, 1)
	assert.Equal(t, 11, outlierIdx[0])

	// Down-weighting the outlier to 0.3 relative weight must pull the
	// aggregate well below the naive mean, and the outlier's influence
	// on the aggregate is bounded to outlierAttenuationWeight's share
	// (§8 property 7: outlier-attenuation stability).
	assert.Less(t, attenuated, naive)
	wantMean := (670.0 + outlierAttenuationWeight*95.0) / (11.0 + outlierAttenuationWeight)
	assert.InDelta(t, wantMean, attenuated, 1e-6)
}

func TestGrowthSubstitutionUsesRecentMeanWhenHigher(t *testing.T) {
	values := []float64{100, 110, 120, 40} // transient dip in month 4
	present := []bool{true, true, true, true}
	out := applyGrowthSubstitution(values, present)
	// mean of months 2-4 (110,120,40) = 90, higher than the raw 40.
	assert.InDelta(t, 90.0, out[3], 1e-9)
	// earlier months are never reduced below their own raw value.
	assert.InDelta(t, 100.0, out[0], 1e-9)
}

func TestGrowthSubstitutionLeavesAbsentCellsAlone(t *testing.T) {
	values := []float64{100, 0, 120}
	present := []bool{true, false, true}
	out := applyGrowthSubstitution(values, present)
	assert.Equal(t, 0.0, out[1])
}

func TestPercentileRankOrdersMonotonically(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}
	present := []bool{true, true, true, true, true}
	var ranks []float64
	for i := range values {
		ranks = append(ranks, percentileRank(values, present, i))
	}
	for i := 1; i < len(ranks); i++ {
		assert.Greater(t, ranks[i], ranks[i-1])
	}
	assert.InDelta(t, 0.0, ranks[0], 1e-9)
	assert.InDelta(t, 100.0, ranks[len(ranks)-1], 1e-9)
}

func buildScoringPanel(t *testing.T, n int, fill func(i int, p *schema.MonthlyPanel, month schema.Month)) *schema.MonthlyPanel {
	t.Helper()
	first, err := schema.ParseMonth("2015-01")
	require.NoError(t, err)
	last := first.Add(n - 1)
	axis, err := schema.MonthRange(first, last)
	require.NoError(t, err)
	panel, err := schema.NewMonthlyPanel("acme/widgets", axis)
	require.NoError(t, err)
	for i, m := range axis {
		fill(i, panel, m)
	}
	return panel
}

// TestScoreMonotonicityUnderUniformGrowth (§8 property 6): a panel whose
// channel values grow monotonically over the full history should produce
// a non-decreasing Activity aggregate trend, reflecting the steadily
// rising percentile rank of the most recent months.
func TestScoreMonotonicityUnderUniformGrowth(t *testing.T) {
	panel := buildScoringPanel(t, 24, func(i int, p *schema.MonthlyPanel, m schema.Month) {
		v := float64(i + 1)
		p.Set(m, schema.OpenRank, v)
		p.Set(m, schema.Activity, v)
		p.Set(m, schema.ChangeRequests, v)
		p.Set(m, schema.AcceptedChangeRequests, v)
		p.Set(m, schema.NewIssues, v)
	})

	monthly := scoreDimensionMonthly(panel, dimensionSpecs[0])
	for i := 1; i < len(monthly); i++ {
		assert.GreaterOrEqual(t, monthly[i].Score, monthly[i-1].Score)
	}
}

func TestScoreSkipsDimensionBelowMinimumCoverage(t *testing.T) {
	panel := buildScoringPanel(t, 6, func(i int, p *schema.MonthlyPanel, m schema.Month) {
		// No channel is set, so ChangeRequestReviews is absent entirely
		// and Quality (single-channel dimension) has 0% coverage throughout.
	})
	rec := Score(panel)
	agg := rec.Dimensions[schema.DimQuality]
	for _, m := range agg.Monthly {
		assert.False(t, m.Evaluated)
	}
}

func TestScoreOverallIsMeanOfDimensionAggregates(t *testing.T) {
	panel := buildScoringPanel(t, 18, func(i int, p *schema.MonthlyPanel, m schema.Month) {
		for c := 0; c < schema.NumChannels; c++ {
			p.Set(m, schema.Channel(c), float64(i+c+1))
		}
	})
	rec := Score(panel)
	var sum float64
	for _, agg := range rec.Dimensions {
		sum += agg.Aggregate
	}
	assert.InDelta(t, sum/float64(schema.NumDimensions), rec.Overall, 1e-9)
}
