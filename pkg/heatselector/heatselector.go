// Package heatselector implements C4: deterministic top-K issue selection
// by engagement, bounding how many of a month's fetched issues TextSource
// keeps.
package heatselector

import (
	"sort"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// DefaultK is the product-chosen cap on issues selected per month (§4.3).
const DefaultK = 3

// Select returns the K issues from issues with the highest HeatScore, in
// descending rank order. Ties break by: higher comment count first, then
// more recent creation time, then lexically smaller issue ID. The result
// is deterministic for identical input, including tie order (§8 property 5).
//
// Select never mutates issues; it copies before sorting.
func Select(issues []schema.IssueRecord, k int) []schema.IssueRecord {
	if k <= 0 {
		k = DefaultK
	}

	ranked := make([]schema.IssueRecord, len(issues))
	copy(ranked, issues)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.HeatScore() != b.HeatScore() {
			return a.HeatScore() > b.HeatScore()
		}
		if a.CommentsCount != b.CommentsCount {
			return a.CommentsCount > b.CommentsCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
