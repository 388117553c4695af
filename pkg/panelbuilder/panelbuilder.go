// Package panelbuilder implements C5: aligning MetricSource's numeric
// output and TextSource's text onto a single canonical month axis.
//
// MetricSource (pkg/ingest) already assembles its own gap-free, validated
// MonthlyPanel while fetching (it must, to track per-month fetch progress
// for resume idempotence), so the numeric half of C5's job is done there.
// What remains — and what this package does — is restricting TextSource's
// corpus down to the panel's axis, so SampleWindower never sees text for a
// month outside the numeric history it is windowing over.
package panelbuilder

import (
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// TextWindow returns the subset of a TextCorpus's monthly records whose
// month lies on axis, used when PanelBuilder's caller wants to restrict
// text to the same month range as the numeric panel.
func TextWindow(corpus *schema.TextCorpus, axis []schema.Month) map[schema.Month]schema.MonthText {
	onAxis := make(map[schema.Month]bool, len(axis))
	for _, m := range axis {
		onAxis[m] = true
	}
	out := make(map[schema.Month]schema.MonthText, len(axis))
	for m, text := range corpus.Monthly {
		if onAxis[m] {
			out[m] = text
		}
	}
	return out
}
