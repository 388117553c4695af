package scoring

import "github.com/gitpulse-dev/gitpulse/pkg/schema"

// weightedChannel is one channel's contribution to a dimension, with its
// weight from the §4.11 table. Percentile rank is monotonic in the raw
// channel value for every channel, BusFactor included: a low BusFactor
// is a low percentile, matching the table's "lower is worse" note for
// Risk without any separate inversion step.
type weightedChannel struct {
	channel schema.Channel
	weight  float64
}

// dimensionSpec binds a dimension to its weighted channel subset and the
// IQR multiplier used to flag outliers during window aggregation.
type dimensionSpec struct {
	dimension    schema.Dimension
	channels     []weightedChannel
	iqrMultiplier float64
}

// defaultOutlierC and activityOutlierC are the two IQR multipliers named
// in §4.11: most dimensions use 1.5, Activity (intrinsically more
// volatile) uses 2.0.
const (
	defaultOutlierC  = 1.5
	activityOutlierC = 2.0
)

// dimensionSpecs is the fixed mapping of the six CHAOSS-style dimensions to
// their weighted channel subsets, taken verbatim from the §4.11 table.
var dimensionSpecs = []dimensionSpec{
	{
		dimension: schema.DimActivity,
		channels: []weightedChannel{
			{schema.OpenRank, 1.5},
			{schema.Activity, 1.5},
			{schema.ChangeRequests, 1.0},
			{schema.AcceptedChangeRequests, 1.0},
			{schema.NewIssues, 1.0},
		},
		iqrMultiplier: activityOutlierC,
	},
	{
		dimension: schema.DimContributors,
		channels: []weightedChannel{
			{schema.Participants, 1.3},
			{schema.Contributors, 1.3},
			{schema.NewContributors, 1.0},
		},
		iqrMultiplier: defaultOutlierC,
	},
	{
		dimension: schema.DimResponsiveness,
		channels: []weightedChannel{
			{schema.ClosedIssues, 1.0},
			{schema.IssueComments, 1.0},
		},
		iqrMultiplier: defaultOutlierC,
	},
	{
		dimension: schema.DimQuality,
		// §4.11: "ChangeRequestReviews and code-churn proxies when
		// present." GitPulse's sixteen canonical channels carry no
		// separate code-churn channel, so Quality draws solely on
		// ChangeRequestReviews; a future channel addition would extend
		// this slice without touching any other dimension.
		channels: []weightedChannel{
			{schema.ChangeRequestReviews, 1.0},
		},
		iqrMultiplier: defaultOutlierC,
	},
	{
		dimension: schema.DimRisk,
		channels: []weightedChannel{
			{schema.BusFactor, 1.0},
		},
		iqrMultiplier: defaultOutlierC,
	},
	{
		dimension: schema.DimCommunityInterest,
		channels: []weightedChannel{
			{schema.Stars, 1.0},
			{schema.Forks, 1.0},
		},
		iqrMultiplier: defaultOutlierC,
	},
}
