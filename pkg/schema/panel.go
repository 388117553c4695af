package schema

import "math"

// MonthlyPanel is a repository's month-indexed numeric history: a mapping
// month -> (channel -> value|absent). Absence is represented by a parallel
// present bitmap so a stored zero is never confused with a missing cell.
//
// Invariant: Axis is gap-free (consecutive months differ by exactly one
// calendar month). Values and Present are always sized len(Axis) x
// NumChannels and align by index with Axis.
type MonthlyPanel struct {
	Repo   string
	Axis   []Month
	Values [][NumChannels]float64
	// Present[i][c] is true when Values[i][c] is an observed value rather
	// than an imputed/zero placeholder.
	Present [][NumChannels]bool
}

// NewMonthlyPanel constructs an empty panel over the given gap-free axis.
// It returns an AxisInvariantError if axis is not gap-free.
func NewMonthlyPanel(repo string, axis []Month) (*MonthlyPanel, error) {
	if !IsGapFree(axis) {
		return nil, &AxisInvariantError{Repo: repo, Detail: "axis is not a contiguous monthly sequence"}
	}
	return &MonthlyPanel{
		Repo:    repo,
		Axis:    append([]Month(nil), axis...),
		Values:  make([][NumChannels]float64, len(axis)),
		Present: make([][NumChannels]bool, len(axis)),
	}, nil
}

// IndexOf returns the axis position of m, or -1 if m is not on the axis.
func (p *MonthlyPanel) IndexOf(m Month) int {
	for i, cur := range p.Axis {
		if cur == m {
			return i
		}
	}
	return -1
}

// Set records an observed value for channel c in month m. It is a no-op
// returning false if m is not on the panel's axis.
func (p *MonthlyPanel) Set(m Month, c Channel, value float64) bool {
	i := p.IndexOf(m)
	if i < 0 {
		return false
	}
	p.Values[i][c] = value
	p.Present[i][c] = true
	return true
}

// Get returns the value for channel c in month m and whether it was
// observed. ok is false both when the month is absent from the axis and
// when the cell itself was never populated.
func (p *MonthlyPanel) Get(m Month, c Channel) (value float64, ok bool) {
	i := p.IndexOf(m)
	if i < 0 {
		return 0, false
	}
	return p.Values[i][c], p.Present[i][c]
}

// Len returns the number of months on the axis.
func (p *MonthlyPanel) Len() int { return len(p.Axis) }

// ChannelSeries returns the full history of channel c as (value, present)
// parallel slices ordered by Axis.
func (p *MonthlyPanel) ChannelSeries(c Channel) (values []float64, present []bool) {
	values = make([]float64, len(p.Axis))
	present = make([]bool, len(p.Axis))
	for i := range p.Axis {
		values[i] = p.Values[i][c]
		present[i] = p.Present[i][c]
	}
	return values, present
}

// Validate re-checks the gap-free invariant and shape consistency; it is
// used by the cache layer before persisting a panel to disk.
func (p *MonthlyPanel) Validate() error {
	if !IsGapFree(p.Axis) {
		return &AxisInvariantError{Repo: p.Repo, Detail: "axis is not a contiguous monthly sequence"}
	}
	if len(p.Values) != len(p.Axis) || len(p.Present) != len(p.Axis) {
		return &AxisInvariantError{Repo: p.Repo, Detail: "value/present arrays do not align with axis length"}
	}
	return nil
}

// Slice returns the sub-panel covering axis positions [from, to).
func (p *MonthlyPanel) Slice(from, to int) *MonthlyPanel {
	return &MonthlyPanel{
		Repo:    p.Repo,
		Axis:    append([]Month(nil), p.Axis[from:to]...),
		Values:  append([][NumChannels]float64(nil), p.Values[from:to]...),
		Present: append([][NumChannels]bool(nil), p.Present[from:to]...),
	}
}

// PresentFraction returns the fraction of the given channels that are
// present in month index i, used by the scoring engine's data-quality gate.
func (p *MonthlyPanel) PresentFraction(i int, channels []Channel) float64 {
	if len(channels) == 0 {
		return 0
	}
	n := 0
	for _, c := range channels {
		if p.Present[i][c] {
			n++
		}
	}
	return float64(n) / float64(len(channels))
}

// HasNonzeroVariance reports whether channel c has more than one distinct
// observed value across the panel, used to guard normalization fitting.
func (p *MonthlyPanel) HasNonzeroVariance(c Channel) bool {
	var first float64
	seenFirst := false
	for i := range p.Axis {
		if !p.Present[i][c] {
			continue
		}
		if !seenFirst {
			first = p.Values[i][c]
			seenFirst = true
			continue
		}
		if math.Abs(p.Values[i][c]-first) > 1e-12 {
			return true
		}
	}
	return false
}
