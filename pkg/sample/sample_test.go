package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

func buildAxis(t *testing.T, n int) []schema.Month {
	t.Helper()
	first := schema.Month("2010-01")
	last := first.Add(n - 1)
	axis, err := schema.MonthRange(first, last)
	require.NoError(t, err)
	return axis
}

// TestNoLeakage exercises §8 property 2: for every generated Sample,
// max(Hist months) < min(Target months), and attached text never reaches
// past the history window.
func TestNoLeakage(t *testing.T) {
	axis := buildAxis(t, 160)
	standardized := make([][schema.NumChannels]float64, len(axis))
	mask := make([][schema.NumChannels]bool, len(axis))
	for i := range axis {
		standardized[i][schema.Stars] = float64(i)
		mask[i][schema.Stars] = true
	}

	corpus := schema.NewTextCorpus("acme/widgets")
	corpus.Monthly[axis[127]] = schema.MonthText{
		Issues: []schema.IssueRecord{{Title: "in-window", Body: "ok"}},
	}
	corpus.Monthly[axis[140]] = schema.MonthText{
		Issues: []schema.IssueRecord{{Title: "FUTURE-LEAK", Body: "must never appear"}},
	}

	samples, err := Window("acme/widgets", axis, standardized, mask, corpus, 128, 32, 6, 0)
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	for _, s := range samples {
		lastHist := s.HistMonths[len(s.HistMonths)-1]
		firstTarget := s.TargetMonths[0]
		assert.True(t, lastHist.Before(firstTarget), "hist must fully precede target")
		assert.NotContains(t, s.Text, "FUTURE-LEAK")
	}
}

func TestWindowStepsByStride(t *testing.T) {
	axis := buildAxis(t, 172) // enough slack for three start indices 6 apart
	standardized := make([][schema.NumChannels]float64, len(axis))
	mask := make([][schema.NumChannels]bool, len(axis))

	samples, err := Window("acme/widgets", axis, standardized, mask, nil, 128, 32, 6, 0)
	require.NoError(t, err)
	require.Len(t, samples, 3) // start indices 0, 6, 12 each satisfy s+160<=172

	for i := 1; i < len(samples); i++ {
		prevStart := samples[i-1].HistMonths[0]
		curStart := samples[i].HistMonths[0]
		assert.Equal(t, prevStart.Add(6), curStart)
	}
}

func TestTreatRecentMonthsAsStaleShrinksUsableLength(t *testing.T) {
	axis := buildAxis(t, 160)
	standardized := make([][schema.NumChannels]float64, len(axis))
	mask := make([][schema.NumChannels]bool, len(axis))

	withoutStale, err := Window("acme/widgets", axis, standardized, mask, nil, 128, 32, 6, 0)
	require.NoError(t, err)
	withStale, err := Window("acme/widgets", axis, standardized, mask, nil, 128, 32, 6, 2)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(withoutStale), len(withStale))
}
