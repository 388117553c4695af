package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

func buildPanel(t *testing.T, starsByMonth map[string]float64) *schema.MonthlyPanel {
	t.Helper()
	axis, err := schema.MonthRange("2020-01", "2020-12")
	require.NoError(t, err)
	panel, err := schema.NewMonthlyPanel("acme/widgets", axis)
	require.NoError(t, err)
	for m, v := range starsByMonth {
		panel.Set(schema.Month(m), schema.Stars, v)
	}
	return panel
}

// TestRoundTripNormalization exercises §8 property 1: for any finite panel
// with nonzero variance, invert(apply(x, stats), stats) ≈ x within 1e-6.
func TestRoundTripNormalization(t *testing.T) {
	starsByMonth := map[string]float64{
		"2020-01": 100, "2020-02": 120, "2020-03": 90, "2020-04": 150,
		"2020-05": 200, "2020-06": 80, "2020-07": 175, "2020-08": 140,
		"2020-09": 110, "2020-10": 160, "2020-11": 95, "2020-12": 130,
	}
	panel := buildPanel(t, starsByMonth)
	stats := Fit(panel, panel.Len())

	for i := range panel.Axis {
		std, mask := Apply(panel.Values[i], panel.Present[i], stats)
		inv := Invert(std, stats)
		if mask[schema.Stars] {
			assert.InDelta(t, panel.Values[i][schema.Stars], inv[schema.Stars], 1e-6)
		}
	}
}

func TestFitFallsBackToIdentityForInsufficientData(t *testing.T) {
	panel := buildPanel(t, map[string]float64{"2020-01": 42})
	stats := Fit(panel, panel.Len())
	assert.Equal(t, 0.0, stats.Mean[schema.Stars])
	assert.Equal(t, 1.0, stats.Std[schema.Stars])
}

func TestFitFallsBackForZeroVariance(t *testing.T) {
	panel := buildPanel(t, map[string]float64{
		"2020-01": 50, "2020-02": 50, "2020-03": 50,
	})
	stats := Fit(panel, panel.Len())
	assert.Equal(t, 0.0, stats.Mean[schema.Stars])
	assert.Equal(t, 1.0, stats.Std[schema.Stars])
}

func TestApplyMapsAbsentCellsToZero(t *testing.T) {
	panel := buildPanel(t, map[string]float64{"2020-01": 100, "2020-02": 200})
	stats := Fit(panel, panel.Len())

	i := panel.IndexOf("2020-06") // never set, absent
	std, mask := Apply(panel.Values[i], panel.Present[i], stats)
	assert.False(t, mask[schema.Stars])
	assert.Equal(t, 0.0, std[schema.Stars])
}

func TestFitOnlyUsesTrainingWindow(t *testing.T) {
	panel := buildPanel(t, map[string]float64{
		"2020-01": 100, "2020-02": 100, "2020-03": 100, "2020-04": 100,
		// Large prediction-window outlier must not affect fitted stats.
		"2020-12": 1_000_000,
	})
	stats := Fit(panel, 6)
	assert.True(t, math.Abs(stats.Mean[schema.Stars]) < 1)
	assert.Equal(t, 1.0, stats.Std[schema.Stars], "constant training window falls back to identity")
}
