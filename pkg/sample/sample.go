// Package sample implements C7: sliding-window (Hist, Text, Target) sample
// generation over a standardized panel.
package sample

import (
	"fmt"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// DefaultStride is the default step between consecutive sample start
// indices (§4.6).
const DefaultStride = 6

// Window produces one sample per start index s such that s+H+P <= L,
// stepping by stride, where L is the length of standardized/mask (the
// panel's axis length). TreatRecentMonthsAsStale, when > 0, excludes that
// many trailing months from the start-index enumeration — the explicit
// knob resolving the §9 data-delay open question (see SPEC_FULL.md §E).
//
// The text assigned to each sample is corpus text valid as of the window's
// last historical month, never the target months, preventing leakage
// (§8 property 2).
func Window(repo string, axis []schema.Month, standardized [][schema.NumChannels]float64, mask [][schema.NumChannels]bool, corpus *schema.TextCorpus, h, p, stride, treatRecentMonthsAsStale int) ([]schema.Sample, error) {
	if h <= 0 || p <= 0 {
		return nil, fmt.Errorf("sample window: h and p must be positive")
	}
	if stride <= 0 {
		stride = DefaultStride
	}
	l := len(axis)
	if len(standardized) != l || len(mask) != l {
		return nil, fmt.Errorf("sample window: standardized/mask must align with axis")
	}

	usableLen := l - treatRecentMonthsAsStale
	if usableLen < 0 {
		usableLen = 0
	}

	var samples []schema.Sample
	for s := 0; s+h+p <= usableLen; s += stride {
		histEnd := s + h // exclusive
		targetEnd := histEnd + p

		hist := append([][schema.NumChannels]float64(nil), standardized[s:histEnd]...)
		histMask := append([][schema.NumChannels]bool(nil), mask[s:histEnd]...)
		target := append([][schema.NumChannels]float64(nil), standardized[histEnd:targetEnd]...)

		lastHistMonth := axis[histEnd-1]
		var text string
		if corpus != nil {
			text = corpus.TextForWindow(lastHistMonth)
		}

		samples = append(samples, schema.Sample{
			Repo:         repo,
			Hist:         hist,
			Mask:         histMask,
			Text:         text,
			Target:       target,
			HistMonths:   append([]schema.Month(nil), axis[s:histEnd]...),
			TargetMonths: append([]schema.Month(nil), axis[histEnd:targetEnd]...),
		})
	}
	return samples, nil
}
