package schema

import "time"

// CommitRecord carries only the textual fields C8 needs from a commit.
type CommitRecord struct {
	Message    string    `json:"message"`
	AuthorName string    `json:"author_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// IssueRecord carries only the textual fields C8 needs from an issue,
// plus the engagement counters HeatSelector ranks on (never persisted as a
// model feature — HeatScore is ranking-only per §3).
type IssueRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Labels         []string  `json:"labels"`
	TopComments    []string  `json:"top_comments"`
	CommentsCount  int       `json:"-"`
	ReactionsCount int       `json:"-"`
	CreatedAt      time.Time `json:"-"`
}

// HeatScore is the ranking statistic used solely by HeatSelector.
func (r IssueRecord) HeatScore() int {
	return r.CommentsCount + r.ReactionsCount
}

// ReleaseRecord carries only the textual fields C8 needs from a release.
type ReleaseRecord struct {
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
}

// MonthText is the per-month textual bundle assembled by TextSource.
type MonthText struct {
	Commits  []CommitRecord  `json:"commits"`
	Issues   []IssueRecord   `json:"issues"`
	Releases []ReleaseRecord `json:"releases"`
}

// StaticDocs holds the long-form, non-time-indexed project documents.
type StaticDocs struct {
	Readme  string            `json:"readme"`
	License string            `json:"license"`
	Docs    map[string]string `json:"docs"`
}

// TextCorpus is the complete textual corpus for one repository: static
// documents plus per-month commit/issue/release text.
type TextCorpus struct {
	Repo    string
	Static  StaticDocs
	Monthly map[Month]MonthText
}

// NewTextCorpus returns an empty corpus ready for incremental population.
func NewTextCorpus(repo string) *TextCorpus {
	return &TextCorpus{
		Repo:    repo,
		Static:  StaticDocs{Docs: map[string]string{}},
		Monthly: map[Month]MonthText{},
	}
}

// TextForWindow returns the text assigned to a training sample whose
// history ends at lastHistMonth: the static corpus text as of that window,
// never text from months after it. This is the leakage boundary described
// in §4.6 — SampleWindower must never attach text from a later month.
func (c *TextCorpus) TextForWindow(lastHistMonth Month) string {
	var sb []byte
	sb = append(sb, c.Static.Readme...)
	if mt, ok := c.Monthly[lastHistMonth]; ok {
		for _, issue := range mt.Issues {
			sb = append(sb, ' ')
			sb = append(sb, issue.Title...)
			sb = append(sb, ' ')
			sb = append(sb, issue.Body...)
		}
	}
	return string(sb)
}
