package panelbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

func TestTextWindowFiltersToAxis(t *testing.T) {
	corpus := schema.NewTextCorpus("acme/widgets")
	corpus.Monthly["2023-01"] = schema.MonthText{}
	corpus.Monthly["2023-05"] = schema.MonthText{}

	out := TextWindow(corpus, []schema.Month{"2023-01", "2023-02", "2023-03"})
	assert.Len(t, out, 1)
	_, ok := out["2023-01"]
	assert.True(t, ok)
}
