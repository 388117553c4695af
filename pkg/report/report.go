// Package report aggregates forecasts and health scores across multiple
// tracked repositories into a single renderable result, the same role
// this package plays for dependency analysis in the dependency-report
// tooling this module was adapted from.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gitpulse-dev/gitpulse/pkg/config"
	"github.com/gitpulse-dev/gitpulse/pkg/ingest"
	"github.com/gitpulse-dev/gitpulse/pkg/orchestrator"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// Report holds the forecast/score results for every repository a single
// CLI invocation was asked to cover.
type Report struct {
	Repositories []RepositoryReport
}

// RepositoryReport holds one repository's forecast and score outcomes.
// Forecast and Score are independent operations (§4.12) with independent
// failure modes — a repository can have insufficient history for a
// forecast while still scoring fine, or vice versa — so each carries its
// own result/error pair rather than a single repository-wide error.
type RepositoryReport struct {
	Provider   string
	Owner      string
	Repository string

	Forecast      *schema.ForecastRecord
	ForecastError error

	Score      *schema.ScoreRecord
	ScoreError error
}

// GetRepoIdentifier returns a human-readable identifier for a repository report.
func (r *RepositoryReport) GetRepoIdentifier() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Repository)
}

// Generator runs Forecast and Score for a set of configured repositories
// against a shared Orchestrator.
type Generator struct {
	Orchestrator  *orchestrator.Orchestrator
	HorizonMonths int
}

// NewGenerator constructs a Generator. A horizonMonths of 0 defers to the
// Orchestrator's own configured default.
func NewGenerator(o *orchestrator.Orchestrator, horizonMonths int) *Generator {
	return &Generator{Orchestrator: o, HorizonMonths: horizonMonths}
}

// Generate produces a Report covering every repository in repos, running
// each repository's Forecast and Score concurrently with the others —
// cross-repository ordering carries no guarantee per §5.
func (g *Generator) Generate(ctx context.Context, repos []config.RepoWithProvider) (*Report, error) {
	slog.Info("starting report generation", "repoCount", len(repos))

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var wg sync.WaitGroup
	reports := make([]RepositoryReport, len(repos))

	for i, repo := range repos {
		wg.Add(1)
		go func(index int, r config.RepoWithProvider) {
			defer wg.Done()
			reports[index] = g.analyzeRepository(ctx, r)
		}(i, repo)
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	slog.Info("report generation complete", "repoCount", len(repos))
	return &Report{Repositories: reports}, nil
}

func (g *Generator) analyzeRepository(ctx context.Context, repo config.RepoWithProvider) RepositoryReport {
	rr := RepositoryReport{
		Provider:   repo.Provider,
		Owner:      repo.Config.Owner,
		Repository: repo.Config.Repository,
	}

	ref := ingest.RepoRef{
		Provider: repo.Provider,
		Owner:    repo.Config.Owner,
		Name:     repo.Config.Repository,
		BaseURL:  repo.Config.BaseURL,
		Token:    repo.Config.Token,
	}

	slog.Debug("analyzing repository", "provider", ref.Provider, "owner", ref.Owner, "repo", ref.Name)

	rr.Forecast, rr.ForecastError = g.Orchestrator.Forecast(ctx, ref, g.HorizonMonths)
	if rr.ForecastError != nil {
		slog.Debug("forecast failed", "repo", ref.Key(), "error", rr.ForecastError)
	}

	rr.Score, rr.ScoreError = g.Orchestrator.Score(ref)
	if rr.ScoreError != nil {
		slog.Debug("score failed", "repo", ref.Key(), "error", rr.ScoreError)
	}

	return rr
}

// HasErrors reports whether any repository hit a forecast or score error.
func (r *Report) HasErrors() bool {
	for _, rr := range r.Repositories {
		if rr.ForecastError != nil || rr.ScoreError != nil {
			return true
		}
	}
	return false
}

// GetErrors returns every encountered error keyed by "<kind>: <repo>".
func (r *Report) GetErrors() map[string]error {
	errs := make(map[string]error)
	for _, rr := range r.Repositories {
		id := rr.GetRepoIdentifier()
		if rr.ForecastError != nil {
			errs["forecast: "+id] = rr.ForecastError
		}
		if rr.ScoreError != nil {
			errs["score: "+id] = rr.ScoreError
		}
	}
	return errs
}
