package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthsMust(t *testing.T, ss ...string) []Month {
	t.Helper()
	out := make([]Month, len(ss))
	for i, s := range ss {
		m, err := ParseMonth(s)
		require.NoError(t, err)
		out[i] = m
	}
	return out
}

func TestMonthRangeIsGapFree(t *testing.T) {
	axis, err := MonthRange(mustMonth(t, "2023-01"), mustMonth(t, "2023-06"))
	require.NoError(t, err)
	assert.True(t, IsGapFree(axis))
	assert.Len(t, axis, 6)
	assert.Equal(t, Month("2023-06"), axis[len(axis)-1])
}

func mustMonth(t *testing.T, s string) Month {
	t.Helper()
	m, err := ParseMonth(s)
	require.NoError(t, err)
	return m
}

// TestAxisGapRejection is scenario F: a panel whose axis skips a month must
// be rejected at construction with an AxisInvariantError.
func TestAxisGapRejection(t *testing.T) {
	axis := monthsMust(t, "2023-01", "2023-03")
	_, err := NewMonthlyPanel("example/repo", axis)
	require.Error(t, err)
	var axisErr *AxisInvariantError
	assert.ErrorAs(t, err, &axisErr)
}

func TestMonthlyPanelSetGet(t *testing.T) {
	axis := monthsMust(t, "2023-01", "2023-02", "2023-03")
	p, err := NewMonthlyPanel("example/repo", axis)
	require.NoError(t, err)

	ok := p.Set(mustMonth(t, "2023-02"), Stars, 42)
	require.True(t, ok)

	v, present := p.Get(mustMonth(t, "2023-02"), Stars)
	assert.True(t, present)
	assert.Equal(t, 42.0, v)

	_, present = p.Get(mustMonth(t, "2023-01"), Stars)
	assert.False(t, present)

	_, present = p.Get(mustMonth(t, "2023-12"), Stars)
	assert.False(t, present)
}

func TestChannelByNameRoundTrip(t *testing.T) {
	for i, name := range ChannelNames {
		c, ok := ChannelByName(name)
		require.True(t, ok)
		assert.Equal(t, Channel(i), c)
		assert.Equal(t, name, c.String())
	}
	_, ok := ChannelByName("NotAChannel")
	assert.False(t, ok)
}
