package heatselector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

func issueAt(id string, comments, reactions int, month string) schema.IssueRecord {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		panic(err)
	}
	return schema.IssueRecord{
		ID:             id,
		CommentsCount:  comments,
		ReactionsCount: reactions,
		CreatedAt:      t,
	}
}

// TestHeatSelectorTieBreak reproduces scenario C exactly: 5 issues with
// comment counts [10,10,10,5,3], zero reactions, created at months
// 2023-01..2023-05, K=3. Expected order: 2023-03, 2023-02, 2023-01.
func TestHeatSelectorTieBreak(t *testing.T) {
	issues := []schema.IssueRecord{
		issueAt("i-jan", 10, 0, "2023-01"),
		issueAt("i-feb", 10, 0, "2023-02"),
		issueAt("i-mar", 10, 0, "2023-03"),
		issueAt("i-apr", 5, 0, "2023-04"),
		issueAt("i-may", 3, 0, "2023-05"),
	}

	got := Select(issues, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "i-mar", got[0].ID)
	assert.Equal(t, "i-feb", got[1].ID)
	assert.Equal(t, "i-jan", got[2].ID)
}

func TestHeatSelectorDefaultK(t *testing.T) {
	issues := []schema.IssueRecord{
		issueAt("a", 1, 0, "2023-01"),
		issueAt("b", 2, 0, "2023-01"),
		issueAt("c", 3, 0, "2023-01"),
		issueAt("d", 4, 0, "2023-01"),
	}
	got := Select(issues, 0)
	assert.Len(t, got, DefaultK)
	assert.Equal(t, "d", got[0].ID)
}

func TestHeatSelectorLexicalTieBreak(t *testing.T) {
	sameTime := issueAt("", 5, 0, "2023-01").CreatedAt
	issues := []schema.IssueRecord{
		{ID: "zeta", CommentsCount: 5, ReactionsCount: 0, CreatedAt: sameTime},
		{ID: "alpha", CommentsCount: 5, ReactionsCount: 0, CreatedAt: sameTime},
	}
	got := Select(issues, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].ID)
	assert.Equal(t, "zeta", got[1].ID)
}

func TestHeatSelectorDeterministicAcrossRuns(t *testing.T) {
	issues := []schema.IssueRecord{
		issueAt("a", 10, 1, "2023-01"),
		issueAt("b", 10, 1, "2023-02"),
		issueAt("c", 2, 0, "2023-03"),
	}
	first := Select(issues, 3)
	second := Select(issues, 3)
	assert.Equal(t, first, second)
	// Original slice must be untouched.
	assert.Equal(t, "a", issues[0].ID)
}

func TestSelectReturnsFewerThanKWhenShortOfIssues(t *testing.T) {
	issues := []schema.IssueRecord{issueAt("only", 1, 0, "2023-01")}
	got := Select(issues, 3)
	assert.Len(t, got, 1)
}
