// Package ingest implements C1 (MetricSource) and C2 (TextSource): fetching
// a repository's monthly numeric panel and textual corpus from an external
// hosting provider, paced by RateGovernor and resumable via durable
// progress state (§4.1).
package ingest

import (
	"context"
	"time"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// RepoRef identifies a single tracked repository at one provider.
type RepoRef struct {
	Provider string // "github" or "gitlab"
	Owner    string
	Name     string
	BaseURL  string
	Token    string
}

// Key is the cache/progress key for this repository: "<provider>/<owner>/<name>".
func (r RepoRef) Key() string {
	return r.Provider + "/" + r.Owner + "/" + r.Name
}

// Host returns the API host RateGovernor paces against.
func (r RepoRef) Host() string {
	if r.BaseURL != "" {
		return r.BaseURL
	}
	return r.Provider
}

// RawIssue is the subset of an issue's fields a Provider returns for one
// month, prior to HeatSelector filtering and text-record projection.
type RawIssue struct {
	ID             string
	Title          string
	Body           string
	Labels         []string
	TopComments    []string
	CommentsCount  int
	ReactionsCount int
	CreatedAt      time.Time
}

// Provider is the narrow, mockable surface MetricSource and TextSource
// drive. Concrete implementations (GitHubProvider, GitLabProvider) wrap the
// respective SDK client; tests inject a fake satisfying this interface
// directly, exercising resume idempotence without any network dependency
// (§8 property 8).
type Provider interface {
	// RepoCreatedMonth returns the calendar month the repository was
	// created, which anchors PanelBuilder's axis lower bound (§4.4).
	RepoCreatedMonth(ctx context.Context, repo RepoRef) (schema.Month, error)

	// MonthlyMetrics returns the observed channel values for repo in month.
	// Channels absent from the returned map are treated as unobserved, not
	// zero. Implementations must not return zeros for channels the
	// provider cannot compute.
	MonthlyMetrics(ctx context.Context, repo RepoRef, month schema.Month) (map[schema.Channel]float64, error)

	// StaticDocs returns the long-form, non-time-indexed project documents
	// (README, license, other docs).
	StaticDocs(ctx context.Context, repo RepoRef) (schema.StaticDocs, error)

	// MonthlyCommits, MonthlyIssues, and MonthlyReleases return the raw
	// textual records observed in month, prior to HeatSelector filtering.
	MonthlyCommits(ctx context.Context, repo RepoRef, month schema.Month) ([]schema.CommitRecord, error)
	MonthlyIssues(ctx context.Context, repo RepoRef, month schema.Month) ([]RawIssue, error)
	MonthlyReleases(ctx context.Context, repo RepoRef, month schema.Month) ([]schema.ReleaseRecord, error)
}

// Clock abstracts "now" so PanelBuilder's "restrict axis to [created, today)"
// rule is testable without depending on wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
